package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/openlend/lendcore/internal/server/auth"
)

type issueTokenRequest struct {
	Account   string `json:"account"`
	APISecret string `json:"api_secret"`
}

type issueTokenResponse struct {
	Token string `json:"token"`
}

// handleIssueToken exchanges the deployment's shared API secret for a bearer
// token carrying the requested account identity. Identity management proper
// lives outside this service.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.APISecret), s.secretKey) != 1 {
		writeError(w, http.StatusForbidden, "invalid api secret")
		return
	}

	token, err := auth.GenerateToken(req.Account, s.secretKey, s.tokenValidity)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issueTokenResponse{Token: token})
}
