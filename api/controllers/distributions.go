package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/brickyield/brickyield-backend/api/middleware"
	"github.com/brickyield/brickyield-backend/api/responses"
	"github.com/brickyield/brickyield-backend/api/validators"
	"github.com/brickyield/brickyield-backend/internal/distribution"
	pkgerrors "github.com/brickyield/brickyield-backend/pkg/errors"
	"github.com/brickyield/brickyield-backend/pkg/logger"
	"github.com/brickyield/brickyield-backend/pkg/pagination"
)

type depositRequest struct {
	AmountUnits int64 `json:"amount_units" validate:"required,gt=0"`
}

// Deposit moves rental income into the property's open round.
func Deposit(svc distribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distribution service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req depositRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		round, err := svc.Deposit(r.Context(), distribution.DepositInput{
			ExternalID:  externalID,
			Caller:      middleware.CallerFromContext(r.Context()),
			AmountUnits: req.AmountUnits,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toRoundView(round))
	}
}

// FinalizeRound locks the open round against the registry snapshot and opens
// the next round.
func FinalizeRound(svc distribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distribution service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		round, err := svc.FinalizeRound(r.Context(), externalID, middleware.CallerFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toRoundView(round))
	}
}

// Claim pays the caller their entitlement from a finalized round.
func Claim(svc distribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distribution service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sequence, err := parseSequence(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		claim, err := svc.Claim(r.Context(), distribution.ClaimInput{
			ExternalID: externalID,
			Sequence:   sequence,
			Caller:     middleware.CallerFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toClaimView(claim))
	}
}

// CloseRound sweeps unclaimed funds to the treasury after the grace period.
func CloseRound(svc distribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distribution service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sequence, err := parseSequence(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		round, err := svc.CloseRound(r.Context(), externalID, sequence, middleware.CallerFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toRoundView(round))
	}
}

// GetRound returns one round with claim progress.
func GetRound(svc distribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distribution service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sequence, err := parseSequence(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetRound(r.Context(), externalID, sequence)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toRoundDetailView(view))
	}
}

// ListRounds returns a property's rounds, newest first.
func ListRounds(svc distribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distribution service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rounds, err := svc.ListRounds(r.Context(), externalID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]roundView, 0, len(rounds))
		for i := range rounds {
			views = append(views, toRoundView(&rounds[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// ListClaims returns one cursor page of claims recorded against a round.
func ListClaims(svc distribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distribution service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sequence, err := parseSequence(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		claims, next, err := svc.ListClaims(r.Context(), externalID, sequence, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toClaimsPageView(claims, next))
	}
}

// GetEntitlement reports what the caller can claim from a finalized round.
func GetEntitlement(svc distribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distribution service unavailable"))
			return
		}

		externalID, err := parseExternalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sequence, err := parseSequence(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetEntitlement(r.Context(), externalID, sequence, middleware.CallerFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toEntitlementView(view))
	}
}

func parseSequence(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "sequence")
	sequence, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sequence < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "round sequence must be a non-negative integer").
			WithDetails(map[string]any{"sequence": raw})
	}
	return sequence, nil
}
