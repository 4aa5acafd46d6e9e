package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wxrouter/wxrouter/internal/logger"
)

// requireCSRF guards mutating admin endpoints. The admin secret already
// gates the route group; the token ties the request to a recent issuance.
func (h *Handler) requireCSRF(next http.Handler) http.Handler {
	secret := h.csrfSecret()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-CSRF-Token")
		if token == "" {
			h.writeErrorResponse(w, r, http.StatusUnauthorized, "Missing CSRF token")
			return
		}
		if !VerifyCSRFToken(token, secret, time.Now()) {
			h.writeErrorResponse(w, r, http.StatusUnauthorized, "Invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) csrfSecret() string {
	if h.admin.CSRFSecret != "" {
		return h.admin.CSRFSecret
	}
	return h.admin.AdminKey
}

// GET /v1/admin/csrf
func (h *Handler) adminCSRFToken(w http.ResponseWriter, r *http.Request) {
	token := MakeCSRFToken(h.csrfSecret(), time.Now())
	h.writeJSONResponse(w, http.StatusOK, map[string]any{"csrf_token": token})
}

// POST /v1/admin/keys
func (h *Handler) adminCreateKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Owner string `json:"owner"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	raw, rec, err := h.keys.CreateAPIKey(r.Context(), body.Owner)
	if err != nil {
		logger.WithContext(r.Context()).Error("Failed to create API key", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	// The raw key is shown once at creation and never stored.
	h.writeJSONResponse(w, http.StatusCreated, map[string]any{
		"api_key": raw,
		"key_id":  rec.ID,
		"owner":   rec.Owner,
	})
}

// GET /v1/admin/keys
func (h *Handler) adminListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.ListAPIKeys(r.Context())
	if err != nil {
		logger.WithContext(r.Context()).Error("Failed to list API keys", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]any{"data": keys, "count": len(keys)})
}

// POST /v1/admin/keys/{key_id}/revoke
func (h *Handler) adminRevokeKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "key_id")
	if err := h.keys.RevokeAPIKey(r.Context(), keyID); err != nil {
		logger.WithContext(r.Context()).Error("Failed to revoke API key", "error", err, "key_id", keyID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]any{"status": "revoked", "key_id": keyID})
}
