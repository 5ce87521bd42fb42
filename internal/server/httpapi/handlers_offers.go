package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/openlend/lendcore/internal/server/offers"
)

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var req offerDTO
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := s.offers.Create(r.Context(), callerAccount(r.Context()), req.toOffer())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOfferDTO(o))
}

func (s *Server) handleFindOffers(w http.ResponseWriter, r *http.Request) {
	q := &offers.Query{
		AssetID:   r.URL.Query().Get("asset"),
		Direction: offers.Direction(r.URL.Query().Get("direction")),
	}
	q.Amount, _ = strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	q.MaxRateBps, _ = strconv.Atoi(r.URL.Query().Get("max_rate"))
	q.MaxReputation, _ = strconv.Atoi(r.URL.Query().Get("max_reputation"))
	if q.MaxReputation == 0 {
		q.MaxReputation = 1_000
	}
	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	found, err := s.offers.Find(r.Context(), q)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfferDTOs(found))
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid offer id")
		return
	}

	o, err := s.offers.Get(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfferDTO(o))
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	var req termsDTO
	if !decodeBody(w, r, &req) {
		return
	}

	l, err := s.offers.Accept(r.Context(), callerAccount(r.Context()), id, req.toTerms())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

func (s *Server) handleCancelOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid offer id")
		return
	}

	if err := s.offers.Cancel(r.Context(), callerAccount(r.Context()), id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type expireOffersRequest struct {
	IDs []int64 `json:"ids"`
}

// handleExpireOffers sweeps the named offers, or every expired offer when
// the body is empty.
func (s *Server) handleExpireOffers(w http.ResponseWriter, r *http.Request) {
	var req expireOffersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	n, err := s.offers.ExpireOffers(r.Context(), req.IDs)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"expired": n})
}
