package model

// Interval is one offered drop-off slot. From and To are RFC 3339
// timestamps in the warehouse timezone, as reported upstream.
type Interval struct {
	From string `json:"from_in_timezone"`
	To   string `json:"to_in_timezone"`
}

type Day struct {
	Date      string     `json:"date_in_timezone"`
	Intervals []Interval `json:"timeslots"`
}

// Candidate is a delivery point together with the slots it currently offers.
type Candidate struct {
	WarehouseID int64  `json:"warehouse_id"`
	Timezone    string `json:"timezone,omitempty"`
	Days        []Day  `json:"days"`
}

// Match locates the winning interval.
type Match struct {
	WarehouseID   int64    `json:"warehouse_id"`
	DayIndex      int      `json:"day_index"`
	Date          string   `json:"date"`
	IntervalIndex int      `json:"interval_index"`
	Interval      Interval `json:"interval"`
}
