package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

func (s *Server) handleGetReputation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.reputation.Get(r.Context(), mux.Vars(r)["account"])
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReputationDTO(rec))
}

// handleRecompute re-derives the caller's own score on demand.
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	rec, err := s.reputation.Recompute(r.Context(), callerAccount(r.Context()))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReputationDTO(rec))
}

type generateProofRequest struct {
	Threshold  int    `json:"threshold"`
	Commitment string `json:"commitment"`
	Nullifier  string `json:"nullifier"`
}

func (s *Server) handleGenerateProof(w http.ResponseWriter, r *http.Request) {
	var req generateProofRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.reputation.GenerateProof(r.Context(), callerAccount(r.Context()), req.Threshold, req.Commitment, req.Nullifier)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, proofDTO{
		ID:         p.ID,
		Account:    p.Account,
		Commitment: p.Commitment,
		Nullifier:  p.Nullifier,
		Threshold:  p.Threshold,
		CreatedAt:  p.CreatedAt,
	})
}

type proofDTO struct {
	ID         int64     `json:"id"`
	Account    string    `json:"account"`
	Commitment string    `json:"commitment"`
	Nullifier  string    `json:"nullifier"`
	Threshold  int       `json:"threshold"`
	CreatedAt  time.Time `json:"created_at"`
}
