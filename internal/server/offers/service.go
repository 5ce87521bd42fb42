package offers

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/logging"
	"github.com/openlend/lendcore/internal/server/assets"
	"github.com/openlend/lendcore/internal/server/loans"
	"github.com/openlend/lendcore/internal/server/reputation"
)

// AssetRegistry is the registry view the book needs.
type AssetRegistry interface {
	Get(ctx context.Context, id string) (*assets.Asset, error)
}

// ReputationSource supplies the live score checked against an offer's
// minimum.
type ReputationSource interface {
	Get(ctx context.Context, account string) (*reputation.Record, error)
}

// LoanEngine turns a matched offer into a settled loan.
type LoanEngine interface {
	Create(ctx context.Context, borrower string, terms loans.Terms) (*loans.Loan, error)
	Fund(ctx context.Context, lender string, id int64) (*loans.Loan, error)
}

type Service struct {
	repo       Repository
	assets     AssetRegistry
	reputation ReputationSource
	engine     LoanEngine
	maxActive  int
	logger     logging.Logger
	now        func() time.Time
}

func NewService(repo Repository, registry AssetRegistry, source ReputationSource, engine LoanEngine, maxActive int, logger logging.Logger) *Service {
	return &Service{
		repo:       repo,
		assets:     registry,
		reputation: source,
		engine:     engine,
		maxActive:  maxActive,
		logger:     logger.With("module", "offers"),
		now:        time.Now,
	}
}

// Create posts an offer to the book. Each account may hold a bounded number
// of active offers.
func (s *Service) Create(ctx context.Context, creator string, o *Offer) (*Offer, error) {
	if err := s.validate(ctx, o); err != nil {
		return nil, err
	}

	n, err := s.repo.CountActiveByCreator(ctx, creator)
	if err != nil {
		return nil, err
	}
	if n >= s.maxActive {
		return nil, fmt.Errorf("%w: at most %d active offers", common.ErrOfferLimitReached, s.maxActive)
	}

	o.Creator = creator
	o.Status = StatusActive
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "offer created", "offer_id", o.ID, "creator", creator, "direction", o.Direction, "asset", o.AssetID)
	return o, nil
}

func (s *Service) validate(ctx context.Context, o *Offer) error {
	if o.Direction != DirectionLend && o.Direction != DirectionBorrow {
		return fmt.Errorf("%w: unknown direction %q", common.ErrInvalidTerms, o.Direction)
	}
	if o.MinAmount <= 0 || o.MaxAmount < o.MinAmount {
		return fmt.Errorf("%w: amount range must satisfy 0 < min <= max", common.ErrInvalidTerms)
	}
	if o.RateFloorBps < 0 || o.RateCeilingBps < o.RateFloorBps {
		return fmt.Errorf("%w: rate range must satisfy 0 <= floor <= ceiling", common.ErrInvalidTerms)
	}
	if o.MinDuration <= 0 || o.MaxDuration < o.MinDuration {
		return fmt.Errorf("%w: duration range must satisfy 0 < min <= max", common.ErrInvalidTerms)
	}
	if o.MinReputation < 0 {
		return fmt.Errorf("%w: negative reputation minimum", common.ErrInvalidTerms)
	}
	if !o.ExpiresAt.After(s.now()) {
		return fmt.Errorf("%w: expiry must be in the future", common.ErrOfferExpired)
	}
	switch o.CollateralPolicy {
	case PolicyAny:
	case PolicyListed:
		if len(o.AcceptedCollateral) == 0 {
			return fmt.Errorf("%w: listed collateral policy requires at least one asset", common.ErrInvalidTerms)
		}
	default:
		return fmt.Errorf("%w: unknown collateral policy %q", common.ErrInvalidTerms, o.CollateralPolicy)
	}

	a, err := s.assets.Get(ctx, o.AssetID)
	if err != nil {
		return err
	}
	if !a.Whitelisted {
		return fmt.Errorf("%w: %s", common.ErrAssetNotWhitelisted, o.AssetID)
	}
	return nil
}

// Get returns the offer by id.
func (s *Service) Get(ctx context.Context, id int64) (*Offer, error) {
	return s.repo.Get(ctx, id)
}

// Find lists active offers matching the query.
func (s *Service) Find(ctx context.Context, q *Query) ([]*Offer, error) {
	return s.repo.FindMatching(ctx, q, s.now())
}

// withinRanges checks the requested terms against the offer's parameter
// ranges: same asset, amount, rate and duration each inside their window.
func withinRanges(o *Offer, terms *loans.Terms) bool {
	return terms.PrincipalAsset == o.AssetID &&
		terms.Principal >= o.MinAmount && terms.Principal <= o.MaxAmount &&
		terms.RateBps >= o.RateFloorBps && terms.RateBps <= o.RateCeilingBps &&
		terms.Duration >= o.MinDuration && terms.Duration <= o.MaxDuration
}

// acceptsCollateral checks the offer's collateral policy against the
// requested collateral.
func (s *Service) acceptsCollateral(ctx context.Context, o *Offer, c *loans.Collateral) error {
	if c.Kind == loans.KindCrossChain && !o.AcceptsCrossChain {
		return fmt.Errorf("%w: offer does not accept cross-chain collateral", common.ErrInvalidTerms)
	}
	if o.CollateralPolicy == PolicyListed && !slices.Contains(o.AcceptedCollateral, c.AssetID) {
		return fmt.Errorf("%w: collateral %s is not accepted", common.ErrInvalidTerms, c.AssetID)
	}

	a, err := s.assets.Get(ctx, c.AssetID)
	if err != nil {
		return err
	}
	if a.Category == assets.CategoryRWA && !o.AcceptsRWA {
		return fmt.Errorf("%w: offer does not accept real-world assets", common.ErrInvalidTerms)
	}
	return nil
}

// Accept matches an offer with concrete terms and settles it into a funded
// loan. The offer is claimed before the engine runs, so two acceptors cannot
// settle against the same offer; on engine failure the claim is put back.
func (s *Service) Accept(ctx context.Context, acceptor string, offerID int64, terms loans.Terms) (*loans.Loan, error) {
	o, err := s.repo.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusActive {
		return nil, common.ErrOfferNotActive
	}
	if !o.ExpiresAt.After(s.now()) {
		return nil, common.ErrOfferExpired
	}
	if acceptor == o.Creator {
		return nil, fmt.Errorf("%w: cannot accept own offer", common.ErrInvalidTerms)
	}
	if terms.Private && !o.Private {
		return nil, fmt.Errorf("%w: offer does not accept private loans", common.ErrInvalidTerms)
	}
	if !withinRanges(o, &terms) {
		return nil, fmt.Errorf("%w: terms outside the offer's ranges", common.ErrInvalidTerms)
	}
	if err := s.acceptsCollateral(ctx, o, &terms.Collateral); err != nil {
		return nil, err
	}

	borrower, lender := o.Creator, acceptor
	if o.Direction == DirectionLend {
		borrower, lender = acceptor, o.Creator
	}

	rec, err := s.reputation.Get(ctx, borrower)
	if err != nil {
		return nil, err
	}
	if rec.Score < o.MinReputation {
		return nil, fmt.Errorf("%w: score %d < offer minimum %d", common.ErrScoreBelowThreshold, rec.Score, o.MinReputation)
	}

	if err := s.repo.Transition(ctx, offerID, StatusActive, StatusMatched); err != nil {
		return nil, err
	}

	loan, err := s.engine.Create(ctx, borrower, terms)
	if err != nil {
		s.release(ctx, offerID)
		return nil, err
	}
	funded, err := s.engine.Fund(ctx, lender, loan.ID)
	if err != nil {
		s.release(ctx, offerID)
		return nil, err
	}

	s.logger.Info(ctx, "offer matched", "offer_id", offerID, "loan_id", funded.ID,
		"borrower", borrower, "lender", lender)
	return funded, nil
}

// release puts a claimed offer back on the book after a failed settlement.
func (s *Service) release(ctx context.Context, offerID int64) {
	if err := s.repo.Transition(ctx, offerID, StatusMatched, StatusActive); err != nil {
		s.logger.Warn(ctx, "failed to release claimed offer", "offer_id", offerID, "error", err)
	}
}

// Cancel withdraws the caller's active offer.
func (s *Service) Cancel(ctx context.Context, caller string, id int64) error {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.Creator != caller {
		return common.ErrUnauthorized
	}
	if err := s.repo.Transition(ctx, id, StatusActive, StatusCancelled); err != nil {
		return err
	}
	s.logger.Info(ctx, "offer cancelled", "offer_id", id)
	return nil
}

// ExpireOffers sweeps offers past their expiry: the given ids, or the whole
// book when none are named. Anyone may trigger the sweep; it only moves
// offers whose deadline has passed.
func (s *Service) ExpireOffers(ctx context.Context, ids []int64) (int64, error) {
	var (
		n   int64
		err error
	)
	if len(ids) > 0 {
		n, err = s.repo.ExpireByIDs(ctx, ids, s.now())
	} else {
		n, err = s.repo.ExpireBefore(ctx, s.now())
	}
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info(ctx, "offers expired", "count", n)
	}
	return n, nil
}
