package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openlend/lendcore/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps service errors onto HTTP statuses: validation to 400,
// authorization to 403, missing entities to 404, state conflicts to 409,
// downstream dependencies to 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidTerms),
		errors.Is(err, common.ErrInvalidSignals),
		errors.Is(err, common.ErrEmptyProof),
		errors.Is(err, common.ErrAssetNotWhitelisted),
		errors.Is(err, common.ErrPrivacyNotConfigured),
		errors.Is(err, common.ErrAmountExceedsDebt):
		return http.StatusBadRequest

	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrNotBorrower),
		errors.Is(err, common.ErrNotLender),
		errors.Is(err, common.ErrBlacklisted):
		return http.StatusForbidden

	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrLoanNotFound),
		errors.Is(err, common.ErrOfferNotFound),
		errors.Is(err, common.ErrAssetNotFound),
		errors.Is(err, common.ErrCommitmentNotFound),
		errors.Is(err, common.ErrLockNotFound):
		return http.StatusNotFound

	case errors.Is(err, common.ErrVerifierUnavailable):
		return http.StatusBadGateway

	case errors.Is(err, common.ErrLoanNotOpen),
		errors.Is(err, common.ErrLoanNotActive),
		errors.Is(err, common.ErrLoanNotExpired),
		errors.Is(err, common.ErrOfferNotActive),
		errors.Is(err, common.ErrOfferExpired),
		errors.Is(err, common.ErrOfferLimitReached),
		errors.Is(err, common.ErrSelfFunding),
		errors.Is(err, common.ErrCommitmentExists),
		errors.Is(err, common.ErrCommitmentVerified),
		errors.Is(err, common.ErrCommitmentNotVerified),
		errors.Is(err, common.ErrCommitmentUsed),
		errors.Is(err, common.ErrNullifierReused),
		errors.Is(err, common.ErrLockNotLocked),
		errors.Is(err, common.ErrScoreBelowThreshold),
		errors.Is(err, common.ErrVerifierNotSet),
		errors.Is(err, common.ErrProofInvalid),
		errors.Is(err, common.ErrTransferFailed),
		errors.Is(err, common.ErrReentrantCall):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
