package model

import (
	"slices"
	"time"
)

// Item is one SKU queued for the supply.
type Item struct {
	SKU      int64 `json:"sku"`
	Quantity int   `json:"quantity"`
}

// MonitoringConfig is the single persisted monitoring record.
// Active is owned by the monitoring engine; everything else is user configuration.
type MonitoringConfig struct {
	Active               bool      `json:"active"`
	SourceCluster        *int64    `json:"source_cluster"`
	DestinationWarehouse *int64    `json:"destination_warehouse"`
	DestinationCluster   *int64    `json:"destination_cluster"`
	Window               *Window   `json:"window"`
	Items                []Item    `json:"items"`
	DraftID              *int64    `json:"draft_id"`
	DraftOperationID     string    `json:"draft_operation_id,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Clone returns a deep copy.
func (c *MonitoringConfig) Clone() *MonitoringConfig {
	out := *c
	out.SourceCluster = clonePtr(c.SourceCluster)
	out.DestinationWarehouse = clonePtr(c.DestinationWarehouse)
	out.DestinationCluster = clonePtr(c.DestinationCluster)
	out.DraftID = clonePtr(c.DraftID)
	out.Window = clonePtr(c.Window)
	out.Items = slices.Clone(c.Items)
	return &out
}

// PutItem sets the quantity for sku. A SKU that is already queued is
// replaced and moved to the end of the list.
func (c *MonitoringConfig) PutItem(sku int64, quantity int) {
	c.Items = slices.DeleteFunc(c.Items, func(it Item) bool { return it.SKU == sku })
	c.Items = append(c.Items, Item{SKU: sku, Quantity: quantity})
}

// RemoveItem drops sku and reports whether it was present.
func (c *MonitoringConfig) RemoveItem(sku int64) bool {
	n := len(c.Items)
	c.Items = slices.DeleteFunc(c.Items, func(it Item) bool { return it.SKU == sku })
	return len(c.Items) != n
}

// Quantity returns the queued quantity for sku, or 0.
func (c *MonitoringConfig) Quantity(sku int64) int {
	for _, it := range c.Items {
		if it.SKU == sku {
			return it.Quantity
		}
	}
	return 0
}

// SKUs returns the queued SKUs in list order.
func (c *MonitoringConfig) SKUs() []int64 {
	out := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, it.SKU)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Int64 is a convenience for building optional identifiers.
func Int64(v int64) *int64 { return &v }
