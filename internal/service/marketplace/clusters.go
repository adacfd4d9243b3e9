package marketplace

import (
	"context"
	"strconv"

	"github.com/andres10976/slotwatch/internal/model"
)

type clusterListRequest struct {
	ClusterIDs  []string `json:"cluster_ids,omitempty"`
	ClusterType string   `json:"cluster_type"`
}

type clusterListResponse struct {
	Clusters []struct {
		ID               int64  `json:"id"`
		Name             string `json:"name"`
		Type             string `json:"type"`
		LogisticClusters []struct {
			Warehouses []model.Warehouse `json:"warehouses"`
		} `json:"logistic_clusters"`
	} `json:"clusters"`
}

// Clusters lists logistics clusters, optionally restricted to ids.
func (c *Client) Clusters(ctx context.Context, ids ...int64) ([]model.Cluster, error) {
	var resp clusterListResponse
	req := clusterListRequest{ClusterIDs: formatIDs(ids), ClusterType: clusterTypeOzon}
	if err := c.post(ctx, "cluster list", "/v1/cluster/list", req, &resp); err != nil {
		return nil, err
	}

	clusters := make([]model.Cluster, 0, len(resp.Clusters))
	for _, rc := range resp.Clusters {
		cl := model.Cluster{ID: rc.ID, Name: rc.Name}
		for _, lc := range rc.LogisticClusters {
			cl.Warehouses = append(cl.Warehouses, lc.Warehouses...)
		}
		clusters = append(clusters, cl)
	}
	return clusters, nil
}

// Cluster fetches a single cluster, failing with ErrNotFound when the
// upstream does not know it.
func (c *Client) Cluster(ctx context.Context, id int64) (*model.Cluster, error) {
	return findCluster(ctx, c, id)
}

type clusterLister interface {
	Clusters(ctx context.Context, ids ...int64) ([]model.Cluster, error)
}

func findCluster(ctx context.Context, cl clusterLister, id int64) (*model.Cluster, error) {
	clusters, err := cl.Clusters(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range clusters {
		if clusters[i].ID == id {
			return &clusters[i], nil
		}
	}
	return nil, &APIError{Op: "cluster list", Message: "cluster " + strconv.FormatInt(id, 10) + " not found", Kind: ErrNotFound}
}

// FulfillmentWarehouses returns the ids of the fulfillment warehouses of a
// cluster, in upstream order. These are the candidate delivery points.
func (c *Client) FulfillmentWarehouses(ctx context.Context, clusterID int64) ([]int64, error) {
	return fulfillmentWarehouses(ctx, c, clusterID)
}

func fulfillmentWarehouses(ctx context.Context, cl clusterLister, clusterID int64) ([]int64, error) {
	cluster, err := findCluster(ctx, cl, clusterID)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, w := range cluster.Warehouses {
		if w.Type == model.WarehouseFulfillment {
			ids = append(ids, w.ID)
		}
	}
	return ids, nil
}

type dropOffSearchRequest struct {
	FilterBySupplyType []string `json:"filter_by_supply_type"`
	Search             string   `json:"search"`
}

// SearchDropOffPoints finds warehouses that accept cross-dock supplies.
func (c *Client) SearchDropOffPoints(ctx context.Context, query string) ([]model.DropOffPoint, error) {
	var resp struct {
		Search []model.DropOffPoint `json:"search"`
	}
	req := dropOffSearchRequest{FilterBySupplyType: []string{supplyTypeCrossdock}, Search: query}
	if err := c.post(ctx, "drop-off search", "/v1/warehouse/fbo/list", req, &resp); err != nil {
		return nil, err
	}
	return resp.Search, nil
}

// Products resolves SKUs against the product catalog. Unknown SKUs are
// simply absent from the result.
func (c *Client) Products(ctx context.Context, skus []int64) ([]model.Product, error) {
	var resp struct {
		Items []model.Product `json:"items"`
	}
	if err := c.post(ctx, "product info", "/v3/product/info/list",
		map[string][]string{"sku": formatIDs(skus)}, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

const productPageSize = 1000

type productListRequest struct {
	Filter struct {
		Visibility string `json:"visibility"`
	} `json:"filter"`
	LastID string `json:"last_id"`
	Limit  int    `json:"limit"`
}

type productListResponse struct {
	Result struct {
		Items []struct {
			ProductID int64 `json:"product_id"`
		} `json:"items"`
		Total  int    `json:"total"`
		LastID string `json:"last_id"`
	} `json:"result"`
}

// ProductList returns every product of the seller, archived ones included,
// resolved to SKU and name. Pages of product ids are resolved as they come.
func (c *Client) ProductList(ctx context.Context) ([]model.Product, error) {
	var (
		products []model.Product
		req      productListRequest
	)
	req.Filter.Visibility = "ALL"
	req.Limit = productPageSize
	for {
		var page productListResponse
		if err := c.post(ctx, "product list", "/v3/product/list", req, &page); err != nil {
			return nil, err
		}
		ids := make([]int64, len(page.Result.Items))
		for i, it := range page.Result.Items {
			ids[i] = it.ProductID
		}
		if len(ids) > 0 {
			var info struct {
				Items []model.Product `json:"items"`
			}
			if err := c.post(ctx, "product info", "/v3/product/info/list",
				map[string][]string{"product_id": formatIDs(ids)}, &info); err != nil {
				return nil, err
			}
			products = append(products, info.Items...)
		}
		if len(ids) < productPageSize || page.Result.LastID == "" || page.Result.LastID == req.LastID {
			return products, nil
		}
		req.LastID = page.Result.LastID
	}
}
