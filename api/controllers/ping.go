package controllers

import (
	"net/http"

	"github.com/brickyield/brickyield-backend/api/middleware"
	"github.com/brickyield/brickyield-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func CallerPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "caller", "status": "ok"}
		if caller := middleware.CallerFromContext(r.Context()); !caller.IsZero() {
			payload["caller_address"] = caller.String()
		}
		responses.WriteSuccess(w, payload)
	}
}
