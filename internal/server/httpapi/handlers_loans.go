package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req termsDTO
	if !decodeBody(w, r, &req) {
		return
	}

	l, err := s.loans.Create(r.Context(), callerAccount(r.Context()), req.toTerms())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(l))
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	borrower := r.URL.Query().Get("borrower")
	if borrower == "" {
		borrower = callerAccount(r.Context())
	}

	ls, err := s.loans.ListByBorrower(r.Context(), borrower)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTOs(ls))
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	l, err := s.loans.Get(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

func (s *Server) handleLoanEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	events, err := s.loans.Events(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleOutstanding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	outstanding, err := s.loans.Outstanding(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"outstanding": outstanding})
}

func (s *Server) handleFundLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	l, err := s.loans.Fund(r.Context(), callerAccount(r.Context()), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

type repayRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleRepayLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	var req repayRequest
	if !decodeBody(w, r, &req) {
		return
	}

	l, err := s.loans.Repay(r.Context(), callerAccount(r.Context()), id, req.Amount)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

func (s *Server) handleSeizeLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	l, err := s.loans.Seize(r.Context(), callerAccount(r.Context()), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

func (s *Server) handleCancelLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	l, err := s.loans.Cancel(r.Context(), callerAccount(r.Context()), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}
