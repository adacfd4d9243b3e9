package model

import "time"

// Warehouse types reported by the cluster list.
const (
	WarehouseFulfillment = "FULL_FILLMENT"
	WarehouseCrossDock   = "CROSS_DOCK"
	WarehouseSorting     = "SORTING_CENTER"
)

type Warehouse struct {
	ID   int64  `json:"warehouse_id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Cluster is a logistics grouping of warehouses.
type Cluster struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Warehouses []Warehouse `json:"warehouses"`
}

// Warehouse looks up a warehouse of the cluster by id.
func (c Cluster) Warehouse(id int64) (Warehouse, bool) {
	for _, w := range c.Warehouses {
		if w.ID == id {
			return w, true
		}
	}
	return Warehouse{}, false
}

type Product struct {
	SKU     int64  `json:"sku"`
	Name    string `json:"name"`
	OfferID string `json:"offer_id"`
}

// DropOffPoint is a warehouse that accepts cross-dock supplies.
type DropOffPoint struct {
	ID      int64  `json:"warehouse_id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Type    string `json:"warehouse_type"`
}

// FavoriteWarehouse is an entry of the user's saved drop-off point list.
type FavoriteWarehouse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
