// Package httpapi exposes the settlement core over HTTP/JSON. Every route
// under /api except token issuance requires a bearer token; the token's
// account is the caller identity the services authorize against.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/openlend/lendcore/internal/logging"
	"github.com/openlend/lendcore/internal/server/assets"
	"github.com/openlend/lendcore/internal/server/crosschain"
	"github.com/openlend/lendcore/internal/server/loans"
	"github.com/openlend/lendcore/internal/server/offers"
	"github.com/openlend/lendcore/internal/server/privacy"
	"github.com/openlend/lendcore/internal/server/reputation"
)

type LoanService interface {
	Create(ctx context.Context, borrower string, terms loans.Terms) (*loans.Loan, error)
	Fund(ctx context.Context, lender string, id int64) (*loans.Loan, error)
	Repay(ctx context.Context, borrower string, id, amount int64) (*loans.Loan, error)
	Seize(ctx context.Context, lender string, id int64) (*loans.Loan, error)
	Cancel(ctx context.Context, borrower string, id int64) (*loans.Loan, error)
	Get(ctx context.Context, id int64) (*loans.Loan, error)
	ListByBorrower(ctx context.Context, borrower string) ([]*loans.Loan, error)
	Events(ctx context.Context, loanID int64) ([]*loans.Event, error)
	Outstanding(ctx context.Context, id int64) (int64, error)
}

type OfferService interface {
	Create(ctx context.Context, creator string, o *offers.Offer) (*offers.Offer, error)
	Accept(ctx context.Context, acceptor string, offerID int64, terms loans.Terms) (*loans.Loan, error)
	Cancel(ctx context.Context, caller string, id int64) error
	Get(ctx context.Context, id int64) (*offers.Offer, error)
	Find(ctx context.Context, q *offers.Query) ([]*offers.Offer, error)
	ExpireOffers(ctx context.Context, ids []int64) (int64, error)
}

type PrivacyService interface {
	CreateCommitment(ctx context.Context, caller, hash, proofType string) (*privacy.Commitment, error)
	GetCommitment(ctx context.Context, hash string) (*privacy.Commitment, error)
	ConfigureVerifier(ctx context.Context, caller string, cfg *privacy.VerifierConfig) error
	VerifyProof(ctx context.Context, commitmentHash string, proof privacy.Proof, signals []string) error
	BatchVerify(ctx context.Context, items []privacy.BatchItem) []privacy.BatchResult
}

type CrossChainService interface {
	SubmitAttestation(ctx context.Context, caller string, req *crosschain.LockRequest) (*crosschain.AttestationResult, error)
	VerifyLockDirect(ctx context.Context, caller string, req *crosschain.LockRequest, proof []byte) (*crosschain.Lock, error)
	GetLock(ctx context.Context, id string) (*crosschain.Lock, error)
}

type ReputationService interface {
	Get(ctx context.Context, account string) (*reputation.Record, error)
	Recompute(ctx context.Context, account string) (*reputation.Record, error)
	GenerateProof(ctx context.Context, caller string, threshold int, commitment, nullifier string) (*reputation.Proof, error)
	SetBlacklisted(ctx context.Context, caller, account string, blacklisted bool) error
}

type AssetService interface {
	Register(ctx context.Context, caller string, a *assets.Asset) error
	SetWhitelisted(ctx context.Context, caller, id string, whitelisted bool) error
	Get(ctx context.Context, id string) (*assets.Asset, error)
	List(ctx context.Context) ([]*assets.Asset, error)
}

type AccessService interface {
	Grant(ctx context.Context, caller, capability, account string) error
	Revoke(ctx context.Context, caller, capability, account string) error
}

// Minter is the admin custody surface for provisioning balances.
type Minter interface {
	Credit(ctx context.Context, account, assetID string, amount int64) error
	MintToken(ctx context.Context, account, assetID string, tokenID int64) error
}

// AccessChecker gates the admin-only custody routes.
type AccessChecker interface {
	Require(ctx context.Context, capability, account string) error
}

type Server struct {
	loans      LoanService
	offers     OfferService
	privacy    PrivacyService
	crosschain CrossChainService
	reputation ReputationService
	assets     AssetService
	access     AccessService
	minter     Minter
	acl        AccessChecker

	secretKey     []byte
	tokenValidity time.Duration
	logger        logging.Logger
}

type Deps struct {
	Loans      LoanService
	Offers     OfferService
	Privacy    PrivacyService
	CrossChain CrossChainService
	Reputation ReputationService
	Assets     AssetService
	Access     AccessService
	Minter     Minter
	ACL        AccessChecker
}

func NewServer(d Deps, secretKey []byte, tokenValidity time.Duration, logger logging.Logger) *Server {
	return &Server{
		loans:         d.Loans,
		offers:        d.Offers,
		privacy:       d.Privacy,
		crosschain:    d.CrossChain,
		reputation:    d.Reputation,
		assets:        d.Assets,
		access:        d.Access,
		minter:        d.Minter,
		acl:           d.ACL,
		secretKey:     secretKey,
		tokenValidity: tokenValidity,
		logger:        logger.With("module", "httpapi"),
	}
}

// Router wires all routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/auth/token", s.handleIssueToken).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/assets", s.handleListAssets).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}", s.handleGetAsset).Methods(http.MethodGet)

	api.HandleFunc("/admin/assets", s.handleRegisterAsset).Methods(http.MethodPost)
	api.HandleFunc("/admin/assets/{id}/whitelist", s.handleWhitelistAsset).Methods(http.MethodPatch)
	api.HandleFunc("/admin/mint", s.handleMint).Methods(http.MethodPost)
	api.HandleFunc("/admin/verifiers", s.handleConfigureVerifier).Methods(http.MethodPost)
	api.HandleFunc("/admin/capabilities/grant", s.handleGrant).Methods(http.MethodPost)
	api.HandleFunc("/admin/capabilities/revoke", s.handleRevoke).Methods(http.MethodPost)
	api.HandleFunc("/admin/blacklist", s.handleBlacklist).Methods(http.MethodPost)

	api.HandleFunc("/reputation/{account}", s.handleGetReputation).Methods(http.MethodGet)
	api.HandleFunc("/reputation/recompute", s.handleRecompute).Methods(http.MethodPost)
	api.HandleFunc("/reputation/proofs", s.handleGenerateProof).Methods(http.MethodPost)

	api.HandleFunc("/commitments", s.handleCreateCommitment).Methods(http.MethodPost)
	api.HandleFunc("/commitments/verify-batch", s.handleBatchVerify).Methods(http.MethodPost)
	api.HandleFunc("/commitments/{hash}", s.handleGetCommitment).Methods(http.MethodGet)
	api.HandleFunc("/commitments/{hash}/verify", s.handleVerifyProof).Methods(http.MethodPost)

	api.HandleFunc("/locks/attestations", s.handleSubmitAttestation).Methods(http.MethodPost)
	api.HandleFunc("/locks/verify", s.handleVerifyLockDirect).Methods(http.MethodPost)
	api.HandleFunc("/locks/{id}", s.handleGetLock).Methods(http.MethodGet)

	api.HandleFunc("/loans", s.handleCreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", s.handleListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}", s.handleGetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/events", s.handleLoanEvents).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/outstanding", s.handleOutstanding).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/fund", s.handleFundLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/repay", s.handleRepayLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/seize", s.handleSeizeLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/cancel", s.handleCancelLoan).Methods(http.MethodPost)

	api.HandleFunc("/offers", s.handleCreateOffer).Methods(http.MethodPost)
	api.HandleFunc("/offers", s.handleFindOffers).Methods(http.MethodGet)
	api.HandleFunc("/offers/expire", s.handleExpireOffers).Methods(http.MethodPost)
	api.HandleFunc("/offers/{id}", s.handleGetOffer).Methods(http.MethodGet)
	api.HandleFunc("/offers/{id}", s.handleCancelOffer).Methods(http.MethodDelete)
	api.HandleFunc("/offers/{id}/accept", s.handleAcceptOffer).Methods(http.MethodPost)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
