package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/brickyield/brickyield-backend/api/responses"
	pkgerrors "github.com/brickyield/brickyield-backend/pkg/errors"
	"github.com/brickyield/brickyield-backend/pkg/logger"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

type ctxCallerKey struct{}

const callerHeader = "X-Caller-Address"

// Caller extracts the calling address from the request header and stores it
// on the context. Role checks happen in the services against the property's
// recorded addresses; this layer only establishes who is asking.
func Caller(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(callerHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "X-Caller-Address header required"))
				return
			}

			caller := types.Address(strings.ToLower(raw))
			if !caller.IsValid() {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.NewReason(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAddress,
						"X-Caller-Address is not a valid address"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxCallerKey{}, caller)
			if logg != nil {
				ctx = logg.WithCallerAddress(ctx, string(caller))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerFromContext returns the caller address set by the Caller middleware,
// or the zero address when none was established.
func CallerFromContext(ctx context.Context) types.Address {
	if ctx == nil {
		return types.ZeroAddress
	}
	if caller, ok := ctx.Value(ctxCallerKey{}).(types.Address); ok {
		return caller
	}
	return types.ZeroAddress
}
