package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/brickyield/brickyield-backend/api/middleware"
	"github.com/brickyield/brickyield-backend/api/responses"
	"github.com/brickyield/brickyield-backend/api/validators"
	"github.com/brickyield/brickyield-backend/internal/roles"
	"github.com/brickyield/brickyield-backend/pkg/db/models"
	pkgerrors "github.com/brickyield/brickyield-backend/pkg/errors"
	"github.com/brickyield/brickyield-backend/pkg/logger"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

type registerPropertyRequest struct {
	ExternalID int64  `json:"external_id" validate:"required,gt=0"`
	Owner      string `json:"owner" validate:"required"`
	Treasury   string `json:"treasury" validate:"required"`
	Operator   string `json:"operator" validate:"required"`
}

// RegisterProperty opens a new distribution ledger with its initial role
// assignments and round zero.
func RegisterProperty(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "role service unavailable"))
			return
		}

		var req registerPropertyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		owner, err := parseAddressField("owner", req.Owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		treasury, err := parseAddressField("treasury", req.Treasury)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		operator, err := parseAddressField("operator", req.Operator)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		property, err := svc.RegisterProperty(r.Context(), roles.RegisterPropertyInput{
			ExternalID: req.ExternalID,
			Owner:      owner,
			Treasury:   treasury,
			Operator:   operator,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toPropertyView(property))
	}
}

// GetProperty returns the ledger state for one property.
func GetProperty(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "role service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		property, err := svc.GetProperty(r.Context(), externalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPropertyView(property))
	}
}

type setAddressRequest struct {
	Address string `json:"address" validate:"required"`
}

// SetTreasury reassigns the treasury address. Owner only.
func SetTreasury(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return roleServiceUnavailable(logg)
	}
	return reassignRole(logg, svc.SetTreasury)
}

// SetOperator reassigns the operator address. Owner only.
func SetOperator(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return roleServiceUnavailable(logg)
	}
	return reassignRole(logg, svc.SetOperator)
}

func roleServiceUnavailable(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "role service unavailable"))
	}
}

func reassignRole(
	logg *logger.Logger,
	apply func(ctx context.Context, externalID int64, caller, next types.Address) (*models.Property, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setAddressRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := parseAddressField("address", req.Address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		property, err := apply(r.Context(), externalID, middleware.CallerFromContext(r.Context()), next)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPropertyView(property))
	}
}

// ProposeOwner starts the two phase ownership transfer.
func ProposeOwner(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "role service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setAddressRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := parseAddressField("address", req.Address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		property, err := svc.ProposeOwner(r.Context(), externalID, middleware.CallerFromContext(r.Context()), next)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPropertyView(property))
	}
}

// AcceptOwnership completes the transfer; only the pending owner may call it.
func AcceptOwnership(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "role service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		property, err := svc.AcceptOwnership(r.Context(), externalID, middleware.CallerFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPropertyView(property))
	}
}

// ListRoleChanges returns the role reassignment audit trail.
func ListRoleChanges(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "role service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		changes, err := svc.ListRoleChanges(r.Context(), externalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toRoleChangeViews(changes))
	}
}

func parseExternalID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "externalID")
	externalID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || externalID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "property id must be a positive integer").
			WithDetails(map[string]any{"external_id": raw})
	}
	return externalID, nil
}

func parseAddressField(field, raw string) (types.Address, error) {
	addr, err := types.ParseAddress(raw)
	if err != nil {
		return "", pkgerrors.NewReason(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAddress,
			"invalid "+field+" address").WithDetails(map[string]any{field: raw})
	}
	return addr, nil
}
