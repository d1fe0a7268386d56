package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto HTTP statuses: validation errors are
// 400, missing rows (including rows hidden by org scoping) are 404, anything
// else is a 500 with a generic message so internals do not leak.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	default:
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// orgIDFromReq reads the caller's organization from the X-Org-Id header set by
// the auth proxy. Writes a 400 and returns false when it is missing.
func orgIDFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	orgID := r.Header.Get("X-Org-Id")
	if orgID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("org ID is required"))
		return "", false
	}
	return orgID, true
}

// actorFromReq derives the audit actor: an authenticated user when X-User-Id
// is present, the system actor otherwise.
func actorFromReq(r *http.Request) domain.Actor {
	if userID := r.Header.Get("X-User-Id"); userID != "" {
		return domain.UserActor(userID)
	}
	return domain.SystemActor()
}
