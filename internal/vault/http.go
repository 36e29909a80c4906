package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/brickyield/brickyield-backend/pkg/config"
	pkgerrors "github.com/brickyield/brickyield-backend/pkg/errors"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

// HTTPVault posts transfer instructions to the custody service. The ledger
// performs no retries; a failed transfer must roll back the caller's state.
type HTTPVault struct {
	baseURL string
	client  *http.Client
}

// NewHTTPVault builds a vault adapter from configuration.
func NewHTTPVault(cfg config.VaultConfig) (*HTTPVault, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("vault base URL is required")
	}
	return &HTTPVault{
		baseURL: base,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type transferRequest struct {
	Address     string `json:"address"`
	AmountUnits int64  `json:"amount_units"`
}

// TransferIn pulls amountUnits from the given address into ledger custody.
func (v *HTTPVault) TransferIn(ctx context.Context, from types.Address, amountUnits int64) error {
	return v.post(ctx, "/v1/transfers/in", transferRequest{
		Address:     from.String(),
		AmountUnits: amountUnits,
	})
}

// TransferOut pays amountUnits from ledger custody to the given address.
func (v *HTTPVault) TransferOut(ctx context.Context, to types.Address, amountUnits int64) error {
	return v.post(ctx, "/v1/transfers/out", transferRequest{
		Address:     to.String(),
		AmountUnits: amountUnits,
	})
}

func (v *HTTPVault) post(ctx context.Context, path string, payload transferRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "encode transfer request").
			WithReason(pkgerrors.ReasonTransferFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build transfer request").
			WithReason(pkgerrors.ReasonTransferFailed)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call stable asset vault").
			WithReason(pkgerrors.ReasonTransferFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.NewReason(pkgerrors.CodeDependency, pkgerrors.ReasonTransferFailed,
			fmt.Sprintf("vault returned status %d", resp.StatusCode))
	}
	return nil
}

var _ StableVault = (*HTTPVault)(nil)
