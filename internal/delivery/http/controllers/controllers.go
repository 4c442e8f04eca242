package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"volunteerhub/internal/delivery/http/helpers"
	"volunteerhub/internal/delivery/http/middleware"
	"volunteerhub/internal/domain"
)

func actorFromContext(ctx context.Context) (domain.Actor, bool) {
	return middleware.ActorFromContext(ctx)
}

// uuidRegex matches a canonical UUID string (8-4-4-4-12 hex).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// pathID extracts and validates a UUID path value. Writes a 400 and returns
// false when missing or malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if id == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing "+name)
		return "", false
	}
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid "+name)
		return "", false
	}
	return id, true
}

// writeDomainError maps service errors to the API envelope. Business-rule
// rejections get their stable codes; anything unrecognized is logged and
// reported as an internal error.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrConflict):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "operation conflicted, retry")
	case errors.Is(err, domain.ErrOpportunityUnavailable):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeOpportunityUnavailable, "this opportunity is no longer accepting volunteers")
	case errors.Is(err, domain.ErrOpportunityLocked):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeOpportunityLocked, "the roster is locked while work is in progress")
	case errors.Is(err, domain.ErrFull):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeFull, "this opportunity is full")
	case errors.Is(err, domain.ErrAlreadyAssigned):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeAlreadyAssigned, "you are already signed up")
	case errors.Is(err, domain.ErrNotAssigned):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeNotAssigned, "you are not signed up")
	case errors.Is(err, domain.ErrInvalidCapacity):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeInvalidCapacity, "capacity cannot drop below committed sign-ups and must be at least 1")
	case errors.Is(err, domain.ErrNotEligible):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeNotEligible, "feedback requires a finished opportunity and an assigned volunteer")
	case errors.Is(err, domain.ErrDuplicateFeedback):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeDuplicateFeedback, "feedback was already submitted for this volunteer")
	case errors.Is(err, domain.ErrInvalidStatus), errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	default:
		var consistency *domain.ConsistencyError
		if errors.As(err, &consistency) {
			logger.ErrorContext(r.Context(), "consistency violation", "opportunity_id", consistency.OpportunityID, "counter", consistency.Counter, "ledger", consistency.Ledger)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeConsistencyError, consistency.Error())
			return
		}
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
	}
}

// requireActor fetches the authenticated actor or writes a 401.
func requireActor(w http.ResponseWriter, ctx context.Context) (domain.Actor, bool) {
	actor, ok := actorFromContext(ctx)
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
	}
	return actor, ok
}
