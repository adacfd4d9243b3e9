package marketplace

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/andres10976/slotwatch/internal/model"
)

type DraftStatus string

const (
	DraftStatusSuccess DraftStatus = "CALCULATION_STATUS_SUCCESS"
	DraftStatusFailed  DraftStatus = "CALCULATION_STATUS_FAILED"
	DraftStatusPending DraftStatus = "CALCULATION_STATUS_PENDING"
	DraftStatusUnknown DraftStatus = "CALCULATION_STATUS_UNKNOWN"
)

// Final reports whether the calculation will not change any more.
func (s DraftStatus) Final() bool {
	return s == DraftStatusSuccess || s == DraftStatusFailed
}

// DraftRequest asks for a cross-dock supply calculation.
type DraftRequest struct {
	ClusterIDs         []int64
	DropOffWarehouseID int64
	Items              []model.Item
}

type DraftInfo struct {
	Status   DraftStatus    `json:"status"`
	DraftID  int64          `json:"draft_id"`
	Clusters []DraftCluster `json:"clusters"`
	Errors   []DraftError   `json:"errors"`
}

type DraftCluster struct {
	ClusterID   int64            `json:"cluster_id"`
	ClusterName string           `json:"cluster_name"`
	Warehouses  []DraftWarehouse `json:"warehouses"`
}

type DraftWarehouse struct {
	SupplyWarehouse struct {
		WarehouseID int64  `json:"warehouse_id"`
		Name        string `json:"name"`
		Address     string `json:"address"`
	} `json:"supply_warehouse"`
	Status struct {
		IsAvailable   bool   `json:"is_available"`
		State         string `json:"state"`
		InvalidReason string `json:"invalid_reason"`
	} `json:"status"`
	TotalRank      int     `json:"total_rank"`
	TotalScore     float64 `json:"total_score"`
	TravelTimeDays int     `json:"travel_time_days"`
}

type DraftError struct {
	ErrorMessage    string `json:"error_message"`
	ItemsValidation []struct {
		SKU     int64    `json:"sku"`
		Reasons []string `json:"reasons"`
	} `json:"items_validation"`
	UnknownClusterIDs []string `json:"unknown_cluster_ids"`
}

// ErrorSummary flattens the calculation errors into one line.
func (d *DraftInfo) ErrorSummary() string {
	var parts []string
	for _, e := range d.Errors {
		if e.ErrorMessage != "" {
			parts = append(parts, e.ErrorMessage)
		}
		for _, iv := range e.ItemsValidation {
			parts = append(parts, "sku "+strconv.FormatInt(iv.SKU, 10)+": "+strings.Join(iv.Reasons, ", "))
		}
		if len(e.UnknownClusterIDs) > 0 {
			parts = append(parts, "unknown clusters: "+strings.Join(e.UnknownClusterIDs, ", "))
		}
	}
	return strings.Join(parts, "; ")
}

type draftCreateRequest struct {
	ClusterIDs         []string     `json:"cluster_ids"`
	DropOffWarehouseID int64        `json:"drop_off_point_warehouse_id"`
	Items              []model.Item `json:"items"`
	Type               string       `json:"type"`
}

type operationResponse struct {
	OperationID string `json:"operation_id"`
}

// CreateDraft starts a draft calculation and returns its operation id.
// Every successful call creates a new draft upstream. Rate-limited calls are
// retried per the draft retry policy; when the budget is used up the result
// is an *ExhaustedError carrying the last upstream message. Other failures
// are returned without retrying.
func (c *Client) CreateDraft(ctx context.Context, req DraftRequest) (string, error) {
	const op = "draft create"

	body := draftCreateRequest{
		ClusterIDs:         formatIDs(req.ClusterIDs),
		DropOffWarehouseID: req.DropOffWarehouseID,
		Items:              req.Items,
		Type:               supplyTypeCrossdock,
	}

	var (
		operationID string
		attempts    int
		lastMessage = "429 Too Many Requests"
	)
	call := func() error {
		attempts++
		var resp operationResponse
		err := c.post(ctx, op, "/v1/draft/create", body, &resp)
		switch {
		case err == nil && resp.OperationID == "":
			return backoff.Permanent(&APIError{Op: op, Message: "empty operation_id", Kind: ErrUpstream})
		case err == nil:
			operationID = resp.OperationID
			return nil
		case errors.Is(err, ErrRateLimited):
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Message != "" {
				lastMessage = apiErr.Message
			}
			c.logger.Warn().
				Int("attempt", attempts).
				Int("max_attempts", c.draftRetry.MaxAttempts).
				Msg("draft create rate limited")
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Info().Dur("wait", wait).Msg("retrying draft create")
	}

	err := retryRateLimited(ctx, c.clock, c.draftRetry, call, notify)
	if err == nil {
		c.logger.Info().Str("operation_id", operationID).Msg("draft calculation started")
		return operationID, nil
	}
	if errors.Is(err, ErrRateLimited) {
		return "", &ExhaustedError{Op: op, Attempts: attempts, Message: lastMessage}
	}
	return "", err
}

// DraftInfo performs one status check of a draft calculation.
func (c *Client) DraftInfo(ctx context.Context, operationID string) (*DraftInfo, error) {
	var info DraftInfo
	err := c.post(ctx, "draft info", "/v1/draft/create/info",
		map[string]string{"operation_id": operationID}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func formatIDs(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}
