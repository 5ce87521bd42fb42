package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openlend/lendcore/internal/server/accesscontrol"
	"github.com/openlend/lendcore/internal/server/assets"
)

type assetDTO struct {
	ID                    string `json:"id"`
	Symbol                string `json:"symbol"`
	Category              string `json:"category"`
	Whitelisted           bool   `json:"whitelisted"`
	MinCollateralRatioBps int    `json:"min_collateral_ratio_bps"`
	PrivacyEligible       bool   `json:"privacy_eligible"`
	CrossChainEligible    bool   `json:"cross_chain_eligible"`
}

func toAssetDTO(a *assets.Asset) *assetDTO {
	return &assetDTO{
		ID:                    a.ID,
		Symbol:                a.Symbol,
		Category:              string(a.Category),
		Whitelisted:           a.Whitelisted,
		MinCollateralRatioBps: a.MinCollateralRatioBps,
		PrivacyEligible:       a.PrivacyEligible,
		CrossChainEligible:    a.CrossChainEligible,
	}
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	list, err := s.assets.List(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	out := make([]*assetDTO, 0, len(list))
	for _, a := range list {
		out = append(out, toAssetDTO(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, err := s.assets.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetDTO(a))
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req assetDTO
	if !decodeBody(w, r, &req) {
		return
	}

	a := &assets.Asset{
		ID:                    req.ID,
		Symbol:                req.Symbol,
		Category:              assets.Category(req.Category),
		Whitelisted:           req.Whitelisted,
		MinCollateralRatioBps: req.MinCollateralRatioBps,
		PrivacyEligible:       req.PrivacyEligible,
		CrossChainEligible:    req.CrossChainEligible,
	}
	if err := s.assets.Register(r.Context(), callerAccount(r.Context()), a); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssetDTO(a))
}

type whitelistRequest struct {
	Whitelisted bool `json:"whitelisted"`
}

func (s *Server) handleWhitelistAsset(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.assets.SetWhitelisted(r.Context(), callerAccount(r.Context()), mux.Vars(r)["id"], req.Whitelisted); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mintRequest struct {
	Account string `json:"account"`
	AssetID string `json:"asset_id"`
	Amount  int64  `json:"amount,omitempty"`
	TokenID int64  `json:"token_id,omitempty"`
}

// handleMint provisions balances. Admin capability required; a token id
// mints a non-fungible token, otherwise a fungible amount.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.acl.Require(r.Context(), accesscontrol.CapAdmin, callerAccount(r.Context())); err != nil {
		s.respondErr(w, r, err)
		return
	}

	var err error
	if req.TokenID != 0 {
		err = s.minter.MintToken(r.Context(), req.Account, req.AssetID, req.TokenID)
	} else {
		err = s.minter.Credit(r.Context(), req.Account, req.AssetID, req.Amount)
	}
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type capabilityRequest struct {
	Capability string `json:"capability"`
	Account    string `json:"account"`
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req capabilityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.access.Grant(r.Context(), callerAccount(r.Context()), req.Capability, req.Account); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req capabilityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.access.Revoke(r.Context(), callerAccount(r.Context()), req.Capability, req.Account); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type blacklistRequest struct {
	Account     string `json:"account"`
	Blacklisted bool   `json:"blacklisted"`
}

func (s *Server) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.reputation.SetBlacklisted(r.Context(), callerAccount(r.Context()), req.Account, req.Blacklisted); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
