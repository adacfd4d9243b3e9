package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andres10976/slotwatch/internal/model"
)

func newTestClient(url string, opts ...Option) *Client {
	return NewClient(Config{
		BaseURL:    url,
		ClientID:   "42",
		APIKey:     "secret",
		DraftRetry: RetryPolicy{MaxAttempts: 3, BaseDelay: 30 * time.Second},
	}, opts...)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return body
}

const clusterListJSON = `{"clusters": [{
	"id": 154, "name": "Moscow", "type": "CLUSTER_TYPE_OZON",
	"logistic_clusters": [
		{"warehouses": [
			{"warehouse_id": 1, "name": "Khorugvino", "type": "FULL_FILLMENT"},
			{"warehouse_id": 2, "name": "Sofyino XD", "type": "CROSS_DOCK"}
		]},
		{"warehouses": [
			{"warehouse_id": 3, "name": "Noginsk", "type": "FULL_FILLMENT"}
		]}
	]
}]}`

func TestClusters_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/cluster/list" {
			t.Errorf("path = %q, want /v1/cluster/list", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if got := r.Header.Get("Client-Id"); got != "42" {
			t.Errorf("Client-Id = %q, want 42", got)
		}
		if got := r.Header.Get("Api-Key"); got != "secret" {
			t.Errorf("Api-Key = %q, want secret", got)
		}
		body := decodeBody(t, r)
		if body["cluster_type"] != "CLUSTER_TYPE_OZON" {
			t.Errorf("cluster_type = %v", body["cluster_type"])
		}
		ids, _ := body["cluster_ids"].([]any)
		if len(ids) != 1 || ids[0] != "154" {
			t.Errorf("cluster_ids = %v, want [\"154\"]", body["cluster_ids"])
		}
		w.Write([]byte(clusterListJSON))
	}))
	defer srv.Close()

	clusters, err := newTestClient(srv.URL).Clusters(context.Background(), 154)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if clusters[0].Name != "Moscow" {
		t.Errorf("Name = %q, want Moscow", clusters[0].Name)
	}
	if len(clusters[0].Warehouses) != 3 {
		t.Errorf("got %d warehouses, want 3 (flattened)", len(clusters[0].Warehouses))
	}
}

func TestProductList_PagesAndResolves(t *testing.T) {
	var lastIDs []string
	var resolved [][]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		switch r.URL.Path {
		case "/v3/product/list":
			filter, _ := body["filter"].(map[string]any)
			if filter["visibility"] != "ALL" {
				t.Errorf("visibility = %v, want ALL", filter["visibility"])
			}
			lastID, _ := body["last_id"].(string)
			lastIDs = append(lastIDs, lastID)
			if lastID == "" {
				var items []string
				for i := range productPageSize {
					items = append(items, fmt.Sprintf(`{"product_id": %d}`, 1000+i))
				}
				fmt.Fprintf(w, `{"result": {"items": [%s], "total": 1001, "last_id": "page-2"}}`, strings.Join(items, ","))
				return
			}
			w.Write([]byte(`{"result": {"items": [{"product_id": 5}], "total": 1001, "last_id": "page-3"}}`))
		case "/v3/product/info/list":
			ids, _ := body["product_id"].([]any)
			resolved = append(resolved, ids)
			if len(ids) == 1 {
				w.Write([]byte(`{"items": [{"sku": 11, "name": "Kettle", "offer_id": "K-1"}]}`))
				return
			}
			w.Write([]byte(`{"items": [{"sku": 12, "name": "Toaster", "offer_id": "T-1"}]}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	products, err := newTestClient(srv.URL).ProductList(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(lastIDs, "|") != "|page-2" {
		t.Errorf("last_id sequence = %q, want two pages", lastIDs)
	}
	if len(resolved) != 2 || len(resolved[0]) != productPageSize || resolved[1][0] != "5" {
		t.Errorf("resolved product ids = %d batches", len(resolved))
	}
	want := []model.Product{{SKU: 12, Name: "Toaster", OfferID: "T-1"}, {SKU: 11, Name: "Kettle", OfferID: "K-1"}}
	if len(products) != 2 || products[0] != want[0] || products[1] != want[1] {
		t.Errorf("products = %+v, want %+v", products, want)
	}
}

func TestProductList_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/product/list" {
			t.Errorf("info requested for an empty page: %s", r.URL.Path)
		}
		w.Write([]byte(`{"result": {"items": [], "total": 0, "last_id": ""}}`))
	}))
	defer srv.Close()

	products, err := newTestClient(srv.URL).ProductList(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("products = %v, want none", products)
	}
}

func TestFulfillmentWarehouses_FiltersByType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(clusterListJSON))
	}))
	defer srv.Close()

	ids, err := newTestClient(srv.URL).FulfillmentWarehouses(context.Background(), 154)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("ids = %v, want [1 3]", ids)
	}
}

func TestFulfillmentWarehouses_UnknownCluster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"clusters": []}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FulfillmentWarehouses(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"code": 13, "message": "internal"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Clusters(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %q, want mention of status 500", err.Error())
	}
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "internal" {
		t.Errorf("APIError = %+v, want message %q", apiErr, "internal")
	}
}

func TestClient_NotFoundStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Products(context.Background(), []int64{1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Clusters(context.Background())
	if err == nil {
		t.Fatal("expected error for bad JSON")
	}
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

func TestClient_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(clusterListJSON))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL).Clusters(ctx)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestDraftInfo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/draft/create/info" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if body := decodeBody(t, r); body["operation_id"] != "op-1" {
			t.Errorf("operation_id = %v, want op-1", body["operation_id"])
		}
		w.Write([]byte(`{"status": "CALCULATION_STATUS_SUCCESS", "draft_id": 777,
			"clusters": [{"cluster_id": 154, "cluster_name": "Moscow", "warehouses": []}],
			"errors": []}`))
	}))
	defer srv.Close()

	info, err := newTestClient(srv.URL).DraftInfo(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Status != DraftStatusSuccess || !info.Status.Final() {
		t.Errorf("Status = %q, want final success", info.Status)
	}
	if info.DraftID != 777 {
		t.Errorf("DraftID = %d, want 777", info.DraftID)
	}
}

func TestDraftInfo_ErrorSummary(t *testing.T) {
	var info DraftInfo
	err := json.Unmarshal([]byte(`{"status": "CALCULATION_STATUS_FAILED", "errors": [
		{"error_message": "bad items", "items_validation": [{"sku": 5, "reasons": ["TOO_BIG", "NO_STOCK"]}],
		 "unknown_cluster_ids": ["9"]}]}`), &info)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := "bad items; sku 5: TOO_BIG, NO_STOCK; unknown clusters: 9"
	if got := info.ErrorSummary(); got != want {
		t.Errorf("ErrorSummary() = %q, want %q", got, want)
	}
}

func TestTimeslots_RequestAndMapping(t *testing.T) {
	from := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 27).Add(time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/draft/timeslot/info" {
			t.Errorf("path = %q", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["date_from"] != "2026-10-17T09:00:00Z" {
			t.Errorf("date_from = %v", body["date_from"])
		}
		if body["date_to"] != "2026-11-13T10:00:00Z" {
			t.Errorf("date_to = %v", body["date_to"])
		}
		if body["draft_id"] != float64(777) {
			t.Errorf("draft_id = %v", body["draft_id"])
		}
		w.Write([]byte(`{"drop_off_warehouse_timeslots": [{
			"drop_off_warehouse_id": 2, "warehouse_timezone": "Europe/Moscow",
			"days": [{"date_in_timezone": "2026-10-18T00:00:00+03:00", "timeslots": [
				{"from_in_timezone": "2026-10-18T09:00:00+03:00", "to_in_timezone": "2026-10-18T10:00:00+03:00"}
			]}]
		}]}`))
	}))
	defer srv.Close()

	candidates, err := newTestClient(srv.URL).Timeslots(context.Background(), TimeslotQuery{
		DraftID: 777, WarehouseIDs: []int64{3}, From: from, To: to,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.WarehouseID != 3 {
		t.Errorf("WarehouseID = %d, want queried warehouse 3", c.WarehouseID)
	}
	if c.Timezone != "Europe/Moscow" {
		t.Errorf("Timezone = %q", c.Timezone)
	}
	if len(c.Days) != 1 || len(c.Days[0].Intervals) != 1 {
		t.Fatalf("days = %+v", c.Days)
	}
	if c.Days[0].Intervals[0].From != "2026-10-18T09:00:00+03:00" {
		t.Errorf("From = %q", c.Days[0].Intervals[0].From)
	}
}

func TestCreateSupply_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		slot, _ := body["timeslot"].(map[string]any)
		if slot["from_in_timezone"] != "a" || slot["to_in_timezone"] != "b" {
			t.Errorf("timeslot = %v", body["timeslot"])
		}
		if body["warehouse_id"] != float64(3) {
			t.Errorf("warehouse_id = %v", body["warehouse_id"])
		}
		w.Write([]byte(`{"operation_id": "supply-op"}`))
	}))
	defer srv.Close()

	id, err := newTestClient(srv.URL).CreateSupply(context.Background(), SupplyRequest{
		DraftID: 777, WarehouseID: 3, Interval: model.Interval{From: "a", To: "b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "supply-op" {
		t.Errorf("operation id = %q, want supply-op", id)
	}
}

func TestCreateSupply_EmptyOperationID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateSupply(context.Background(), SupplyRequest{DraftID: 1})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

func TestProducts_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		skus, _ := body["sku"].([]any)
		if len(skus) != 2 || skus[0] != "11" || skus[1] != "12" {
			t.Errorf("sku = %v", body["sku"])
		}
		w.Write([]byte(`{"items": [{"sku": 11, "name": "Kettle", "offer_id": "K-1"}]}`))
	}))
	defer srv.Close()

	products, err := newTestClient(srv.URL).Products(context.Background(), []int64{11, 12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Kettle" {
		t.Errorf("products = %+v", products)
	}
}

func TestSearchDropOffPoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/warehouse/fbo/list" {
			t.Errorf("path = %q", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["search"] != "Sofyino" {
			t.Errorf("search = %v", body["search"])
		}
		w.Write([]byte(`{"search": [{"warehouse_id": 2, "name": "Sofyino XD", "address": "Moscow region",
			"warehouse_type": "WAREHOUSE_TYPE_CROSS_DOCK"}]}`))
	}))
	defer srv.Close()

	points, err := newTestClient(srv.URL).SearchDropOffPoints(context.Background(), "Sofyino")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 1 || points[0].ID != 2 {
		t.Errorf("points = %+v", points)
	}
}
