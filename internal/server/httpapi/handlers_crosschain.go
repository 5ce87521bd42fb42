package httpapi

import (
	"encoding/base64"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openlend/lendcore/internal/server/crosschain"
)

type lockRequestDTO struct {
	Owner         string `json:"owner"`
	AssetID       string `json:"asset_id"`
	Amount        int64  `json:"amount,omitempty"`
	TokenID       int64  `json:"token_id,omitempty"`
	ForeignTxHash string `json:"foreign_tx_hash"`
}

func (d *lockRequestDTO) toRequest() *crosschain.LockRequest {
	return &crosschain.LockRequest{
		Owner:         d.Owner,
		AssetID:       d.AssetID,
		Amount:        d.Amount,
		TokenID:       d.TokenID,
		ForeignTxHash: d.ForeignTxHash,
	}
}

func (s *Server) handleSubmitAttestation(w http.ResponseWriter, r *http.Request) {
	var req lockRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.crosschain.SubmitAttestation(r.Context(), callerAccount(r.Context()), req.toRequest())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attestationResultDTO{
		LockID:       res.LockID,
		Attestations: res.Attestations,
		Materialized: res.Materialized,
	})
}

type attestationResultDTO struct {
	LockID       string `json:"lock_id"`
	Attestations int    `json:"attestations"`
	Materialized bool   `json:"materialized"`
}

type verifyLockRequest struct {
	lockRequestDTO
	Proof string `json:"proof"` // base64 state proof blob
}

func (s *Server) handleVerifyLockDirect(w http.ResponseWriter, r *http.Request) {
	var req verifyLockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	proof, err := base64.StdEncoding.DecodeString(req.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, "proof must be base64")
		return
	}

	l, err := s.crosschain.VerifyLockDirect(r.Context(), callerAccount(r.Context()), req.toRequest(), proof)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLockDTO(l))
}

func (s *Server) handleGetLock(w http.ResponseWriter, r *http.Request) {
	l, err := s.crosschain.GetLock(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLockDTO(l))
}
