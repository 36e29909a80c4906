package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/brickyield/brickyield-backend/internal/allocation"
	"github.com/brickyield/brickyield-backend/pkg/config"
	pkgerrors "github.com/brickyield/brickyield-backend/pkg/errors"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

// HTTPRegistry calls the external share registry service. Failures are
// surfaced to the caller untouched; retries are the caller's decision.
type HTTPRegistry struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRegistry builds a registry adapter from configuration.
func NewHTTPRegistry(cfg config.RegistryConfig) (*HTTPRegistry, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("registry base URL is required")
	}
	return &HTTPRegistry{
		baseURL: base,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type snapshotResponse struct {
	Holders []struct {
		Address string `json:"address"`
		Balance int64  `json:"balance"`
	} `json:"holders"`
	TotalShares int64 `json:"total_shares"`
}

// Snapshot fetches the register state for one property.
func (r *HTTPRegistry) Snapshot(ctx context.Context, propertyExternalID int64) (SnapshotResult, error) {
	endpoint := fmt.Sprintf("%s/v1/snapshot?%s", r.baseURL, url.Values{
		"property_id": []string{strconv.FormatInt(propertyExternalID, 10)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return SnapshotResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build registry request")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return SnapshotResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call share registry")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SnapshotResult{}, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("share registry returned status %d", resp.StatusCode))
	}

	var body snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return SnapshotResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode registry snapshot")
	}

	result := SnapshotResult{TotalShares: body.TotalShares}
	for _, holder := range body.Holders {
		address, err := types.ParseAddress(holder.Address)
		if err != nil {
			return SnapshotResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid holder address in snapshot")
		}
		result.Holders = append(result.Holders, allocation.HolderShare{
			Holder:  address,
			Balance: holder.Balance,
		})
	}
	return result, nil
}

var _ ShareRegistry = (*HTTPRegistry)(nil)
