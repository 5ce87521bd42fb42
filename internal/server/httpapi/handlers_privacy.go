package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openlend/lendcore/internal/server/privacy"
)

type createCommitmentRequest struct {
	Hash      string `json:"hash"`
	ProofType string `json:"proof_type"`
}

func (s *Server) handleCreateCommitment(w http.ResponseWriter, r *http.Request) {
	var req createCommitmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.privacy.CreateCommitment(r.Context(), callerAccount(r.Context()), req.Hash, req.ProofType)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommitmentDTO(c))
}

func (s *Server) handleGetCommitment(w http.ResponseWriter, r *http.Request) {
	c, err := s.privacy.GetCommitment(r.Context(), mux.Vars(r)["hash"])
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommitmentDTO(c))
}

type verifyProofRequest struct {
	Proof   privacy.Proof `json:"proof"`
	Signals []string      `json:"public_signals"`
}

func (s *Server) handleVerifyProof(w http.ResponseWriter, r *http.Request) {
	var req verifyProofRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.privacy.VerifyProof(r.Context(), mux.Vars(r)["hash"], req.Proof, req.Signals); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

type batchVerifyRequest struct {
	Items []struct {
		Commitment string        `json:"commitment"`
		Proof      privacy.Proof `json:"proof"`
		Signals    []string      `json:"public_signals"`
	} `json:"items"`
}

func (s *Server) handleBatchVerify(w http.ResponseWriter, r *http.Request) {
	var req batchVerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := make([]privacy.BatchItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, privacy.BatchItem{Commitment: it.Commitment, Proof: it.Proof, Signals: it.Signals})
	}

	results := s.privacy.BatchVerify(r.Context(), items)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type configureVerifierRequest struct {
	ProofType  string `json:"proof_type"`
	Handle     string `json:"handle"`
	MinSignals int    `json:"min_signals"`
	MaxSignals int    `json:"max_signals"`
}

func (s *Server) handleConfigureVerifier(w http.ResponseWriter, r *http.Request) {
	var req configureVerifierRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.privacy.ConfigureVerifier(r.Context(), callerAccount(r.Context()), &privacy.VerifierConfig{
		ProofType:  req.ProofType,
		Handle:     req.Handle,
		MinSignals: req.MinSignals,
		MaxSignals: req.MaxSignals,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
