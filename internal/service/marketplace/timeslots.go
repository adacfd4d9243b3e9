package marketplace

import (
	"context"
	"time"

	"github.com/andres10976/slotwatch/internal/model"
)

// TimeslotQuery asks for drop-off slots offered in [From, To).
type TimeslotQuery struct {
	DraftID      int64
	WarehouseIDs []int64
	From         time.Time
	To           time.Time
}

type timeslotRequest struct {
	DateFrom     string   `json:"date_from"`
	DateTo       string   `json:"date_to"`
	DraftID      int64    `json:"draft_id"`
	WarehouseIDs []string `json:"warehouse_ids"`
}

type timeslotResponse struct {
	DropOffWarehouseTimeslots []struct {
		DropOffWarehouseID int64       `json:"drop_off_warehouse_id"`
		WarehouseTimezone  string      `json:"warehouse_timezone"`
		CurrentTime        string      `json:"current_time_in_timezone"`
		Days               []model.Day `json:"days"`
	} `json:"drop_off_warehouse_timeslots"`
	RequestedDateFrom string `json:"requested_date_from"`
	RequestedDateTo   string `json:"requested_date_to"`
}

// Timeslots returns the slots currently offered for the draft, one
// candidate per returned drop-off group in upstream order. When a single
// warehouse is queried, the candidates carry that warehouse id, which is the
// id a supply must later be created against.
func (c *Client) Timeslots(ctx context.Context, q TimeslotQuery) ([]model.Candidate, error) {
	req := timeslotRequest{
		DateFrom:     q.From.UTC().Format(time.RFC3339),
		DateTo:       q.To.UTC().Format(time.RFC3339),
		DraftID:      q.DraftID,
		WarehouseIDs: formatIDs(q.WarehouseIDs),
	}

	var resp timeslotResponse
	if err := c.post(ctx, "timeslot info", "/v1/draft/timeslot/info", req, &resp); err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(resp.DropOffWarehouseTimeslots))
	for _, g := range resp.DropOffWarehouseTimeslots {
		id := g.DropOffWarehouseID
		if len(q.WarehouseIDs) == 1 {
			id = q.WarehouseIDs[0]
		}
		candidates = append(candidates, model.Candidate{
			WarehouseID: id,
			Timezone:    g.WarehouseTimezone,
			Days:        g.Days,
		})
	}
	return candidates, nil
}

// SupplyRequest commits a draft to one slot at one warehouse.
type SupplyRequest struct {
	DraftID     int64
	WarehouseID int64
	Interval    model.Interval
}

type supplyCreateRequest struct {
	DraftID     int64          `json:"draft_id"`
	Timeslot    model.Interval `json:"timeslot"`
	WarehouseID int64          `json:"warehouse_id"`
}

// CreateSupply books the slot. The upstream treats it as final.
func (c *Client) CreateSupply(ctx context.Context, req SupplyRequest) (string, error) {
	const op = "supply create"

	var resp operationResponse
	err := c.post(ctx, op, "/v1/draft/supply/create", supplyCreateRequest{
		DraftID:     req.DraftID,
		Timeslot:    req.Interval,
		WarehouseID: req.WarehouseID,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.OperationID == "" {
		return "", &APIError{Op: op, Message: "empty operation_id", Kind: ErrUpstream}
	}
	return resp.OperationID, nil
}
