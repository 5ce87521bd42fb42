package loans

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/dbx"
	"github.com/openlend/lendcore/internal/logging"
	"github.com/openlend/lendcore/internal/server/assets"
	"github.com/openlend/lendcore/internal/server/crosschain"
	"github.com/openlend/lendcore/internal/server/custody"
)

// Bounds on the terms a borrower may offer.
const (
	maxRateBps  = 10_000
	minDuration = time.Hour
	maxDuration = 365 * 24 * time.Hour
)

// Reporting retry bounds for the post-commit reputation update.
const (
	reportRetries  = 2
	reportInterval = 200 * time.Millisecond
)

// AssetRegistry is the registry view the engine needs.
type AssetRegistry interface {
	Get(ctx context.Context, id string) (*assets.Asset, error)
}

// ReputationReporter receives lifecycle reports. The Tx forms run inside the
// engine's transaction; RecordLoanRepaid runs after commit on a best-effort
// basis.
type ReputationReporter interface {
	IsEligibleForLoanTx(ctx context.Context, tx dbx.DBTX, account string) (bool, error)
	RecordLoanCreatedTx(ctx context.Context, tx dbx.DBTX, caller, borrower string, loanID, amount int64) error
	RecordLoanFundedTx(ctx context.Context, tx dbx.DBTX, caller, lender, borrower string, loanID, amount int64) error
	RecordLoanDefaultedTx(ctx context.Context, tx dbx.DBTX, caller, borrower, lender string, loanID, amount int64) error
	RecordLoanRepaid(ctx context.Context, caller, borrower, lender string, loanID, amount int64) error
}

// PrivacyGateway consumes verified commitments backing private loans.
type PrivacyGateway interface {
	UseCommitmentTx(ctx context.Context, tx dbx.DBTX, caller, hash string) error
}

// LockCoordinator is the cross-chain collateral view the engine needs.
type LockCoordinator interface {
	RequireLockedTx(ctx context.Context, tx dbx.DBTX, id, owner string) (*crosschain.Lock, error)
	ReleaseToTx(ctx context.Context, tx dbx.DBTX, caller, id, recipient string) error
	SeizeTx(ctx context.Context, tx dbx.DBTX, caller, id, recipient string) error
}

// Config carries the engine's settlement accounts and fee policy.
type Config struct {
	EngineAccount  string
	EscrowAccount  string
	FeeSinkAccount string
	ProtocolFeeBps int
}

type Service struct {
	db        *sql.DB
	repoFor   func(dbx.DBTX) Repository
	ledgerFor func(dbx.DBTX) custody.Ledger

	assets     AssetRegistry
	reputation ReputationReporter
	privacy    PrivacyGateway // nil when the gateway is disabled
	locks      LockCoordinator

	cfg    Config
	logger logging.Logger
	now    func() time.Time
	guard  reentrancyGuard
}

func NewService(db *sql.DB, registry AssetRegistry, reporter ReputationReporter, privacy PrivacyGateway, locks LockCoordinator, cfg Config, logger logging.Logger) *Service {
	return &Service{
		db:         db,
		repoFor:    func(tx dbx.DBTX) Repository { return NewPostgresRepository(tx) },
		ledgerFor:  func(tx dbx.DBTX) custody.Ledger { return custody.NewPostgresLedger(tx) },
		assets:     registry,
		reputation: reporter,
		privacy:    privacy,
		locks:      locks,
		cfg:        cfg,
		logger:     logger.With("module", "loans"),
		now:        time.Now,
	}
}

// Get returns the loan by id.
func (s *Service) Get(ctx context.Context, id int64) (*Loan, error) {
	return s.repoFor(s.db).Get(ctx, id)
}

// ListByBorrower returns the borrower's loans, newest first.
func (s *Service) ListByBorrower(ctx context.Context, borrower string) ([]*Loan, error) {
	return s.repoFor(s.db).ListByBorrower(ctx, borrower)
}

// Events returns the loan's audit trail.
func (s *Service) Events(ctx context.Context, loanID int64) ([]*Event, error) {
	return s.repoFor(s.db).Events(ctx, loanID)
}

// Outstanding returns the remaining debt on an active loan as of now.
func (s *Service) Outstanding(ctx context.Context, id int64) (int64, error) {
	l, err := s.repoFor(s.db).Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if l.Status != StatusActive {
		return 0, common.ErrLoanNotActive
	}
	return Outstanding(l, s.now()), nil
}

// Create opens a loan request and escrows its collateral. The borrower must
// be eligible, both assets whitelisted, and the collateral sufficient for the
// principal asset's minimum ratio. Private loans additionally consume a
// verified commitment.
func (s *Service) Create(ctx context.Context, borrower string, terms Terms) (*Loan, error) {
	if err := s.guard.enter(); err != nil {
		return nil, err
	}
	defer s.guard.exit()

	if err := s.validateTerms(ctx, &terms); err != nil {
		return nil, err
	}

	l := &Loan{Borrower: borrower, Terms: terms, Status: StatusOpen}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		eligible, err := s.reputation.IsEligibleForLoanTx(ctx, tx, borrower)
		if err != nil {
			return err
		}
		if !eligible {
			return common.ErrBlacklisted
		}

		if terms.Private {
			if err := s.privacy.UseCommitmentTx(ctx, tx, s.cfg.EngineAccount, terms.CommitmentRef); err != nil {
				return err
			}
		}

		if err := s.escrowCollateral(ctx, tx, borrower, &terms); err != nil {
			return err
		}

		repo := s.repoFor(tx)
		if err := repo.Create(ctx, l); err != nil {
			return err
		}
		if err := repo.AppendEvent(ctx, &Event{LoanID: l.ID, Kind: EventCreated, Actor: borrower, Amount: terms.Principal}); err != nil {
			return err
		}
		return s.reputation.RecordLoanCreatedTx(ctx, tx, s.cfg.EngineAccount, borrower, l.ID, terms.Principal)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "loan created", "loan_id", l.ID, "borrower", borrower,
		"principal", terms.Principal, "collateral_kind", terms.Collateral.Kind)
	return l, nil
}

func (s *Service) validateTerms(ctx context.Context, terms *Terms) error {
	if terms.Principal <= 0 {
		return fmt.Errorf("%w: principal must be positive", common.ErrInvalidTerms)
	}
	if terms.RateBps < 0 || terms.RateBps > maxRateBps {
		return fmt.Errorf("%w: rate must be within 0..%d bps", common.ErrInvalidTerms, maxRateBps)
	}
	if terms.Duration < minDuration || terms.Duration > maxDuration {
		return fmt.Errorf("%w: duration must be within %s..%s", common.ErrInvalidTerms, minDuration, maxDuration)
	}

	principalAsset, err := s.assets.Get(ctx, terms.PrincipalAsset)
	if err != nil {
		return err
	}
	if !principalAsset.Whitelisted {
		return fmt.Errorf("%w: %s", common.ErrAssetNotWhitelisted, terms.PrincipalAsset)
	}

	if terms.Private {
		if s.privacy == nil {
			return common.ErrPrivacyNotConfigured
		}
		if terms.CommitmentRef == "" {
			return fmt.Errorf("%w: private loans require a commitment", common.ErrInvalidTerms)
		}
	}

	return s.validateCollateral(ctx, terms, principalAsset.MinCollateralRatioBps)
}

func (s *Service) validateCollateral(ctx context.Context, terms *Terms, minRatioBps int) error {
	c := &terms.Collateral
	if c.AssetID == "" {
		return fmt.Errorf("%w: collateral asset is required", common.ErrInvalidTerms)
	}

	asset, err := s.assets.Get(ctx, c.AssetID)
	if err != nil {
		return err
	}
	if !asset.Whitelisted {
		return fmt.Errorf("%w: %s", common.ErrAssetNotWhitelisted, c.AssetID)
	}
	if terms.Private && !asset.PrivacyEligible {
		return fmt.Errorf("%w: collateral %s is not privacy eligible", common.ErrInvalidTerms, c.AssetID)
	}

	switch c.Kind {
	case KindFungible, KindMultiEdition:
		if c.Amount <= 0 {
			return fmt.Errorf("%w: collateral amount must be positive", common.ErrInvalidTerms)
		}
		if !meetsRatio(c.Amount, terms.Principal, minRatioBps) {
			return fmt.Errorf("%w: collateral below minimum ratio of %d bps", common.ErrInvalidTerms, minRatioBps)
		}
	case KindNFT:
		if c.TokenID == 0 {
			return fmt.Errorf("%w: collateral token id is required", common.ErrInvalidTerms)
		}
	case KindCrossChain:
		if c.LockID == "" {
			return fmt.Errorf("%w: collateral lock id is required", common.ErrInvalidTerms)
		}
		if !asset.CrossChainEligible {
			return fmt.Errorf("%w: %s is not cross-chain eligible", common.ErrInvalidTerms, c.AssetID)
		}
	default:
		return fmt.Errorf("%w: unknown collateral kind %q", common.ErrInvalidTerms, c.Kind)
	}
	return nil
}

// meetsRatio checks amount/principal >= ratioBps/10000 without overflow.
func meetsRatio(amount, principal int64, ratioBps int) bool {
	if ratioBps <= 0 {
		return true
	}
	lhs := new(big.Int).Mul(big.NewInt(amount), big.NewInt(bpsDenominator))
	rhs := new(big.Int).Mul(big.NewInt(principal), big.NewInt(int64(ratioBps)))
	return lhs.Cmp(rhs) >= 0
}

// escrowCollateral takes custody of the collateral, or pins the cross-chain
// lock without moving anything locally.
func (s *Service) escrowCollateral(ctx context.Context, tx dbx.DBTX, borrower string, terms *Terms) error {
	c := &terms.Collateral
	ledger := s.ledgerFor(tx)
	switch c.Kind {
	case KindFungible, KindMultiEdition:
		return ledger.Transfer(ctx, borrower, s.cfg.EscrowAccount, c.AssetID, c.Amount)
	case KindNFT:
		return ledger.TransferToken(ctx, borrower, s.cfg.EscrowAccount, c.AssetID, c.TokenID)
	case KindCrossChain:
		_, err := s.locks.RequireLockedTx(ctx, tx, c.LockID, borrower)
		return err
	}
	return fmt.Errorf("%w: unknown collateral kind %q", common.ErrInvalidTerms, c.Kind)
}

// settleCollateral hands the collateral to recipient at the end of the
// loan's life.
func (s *Service) settleCollateral(ctx context.Context, tx dbx.DBTX, l *Loan, recipient string) error {
	c := &l.Terms.Collateral
	ledger := s.ledgerFor(tx)
	switch c.Kind {
	case KindFungible, KindMultiEdition:
		return ledger.Transfer(ctx, s.cfg.EscrowAccount, recipient, c.AssetID, c.Amount)
	case KindNFT:
		return ledger.TransferToken(ctx, s.cfg.EscrowAccount, recipient, c.AssetID, c.TokenID)
	case KindCrossChain:
		if recipient == l.Borrower {
			return s.locks.ReleaseToTx(ctx, tx, s.cfg.EngineAccount, c.LockID, recipient)
		}
		return s.locks.SeizeTx(ctx, tx, s.cfg.EngineAccount, c.LockID, recipient)
	}
	return fmt.Errorf("%w: unknown collateral kind %q", common.ErrInvalidTerms, c.Kind)
}

// Fund activates the loan: the lender pays the full principal, the borrower
// receives it minus the protocol fee, and the fee goes to the fee sink.
func (s *Service) Fund(ctx context.Context, lender string, id int64) (*Loan, error) {
	if err := s.guard.enter(); err != nil {
		return nil, err
	}
	defer s.guard.exit()

	var out *Loan
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repoFor(tx)
		l, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if l.Status != StatusOpen {
			return common.ErrLoanNotOpen
		}
		if lender == l.Borrower {
			return common.ErrSelfFunding
		}

		fee := protocolFee(l.Terms.Principal, s.cfg.ProtocolFeeBps)
		ledger := s.ledgerFor(tx)
		if err := ledger.Transfer(ctx, lender, l.Borrower, l.Terms.PrincipalAsset, l.Terms.Principal-fee); err != nil {
			return err
		}
		if fee > 0 {
			if err := ledger.Transfer(ctx, lender, s.cfg.FeeSinkAccount, l.Terms.PrincipalAsset, fee); err != nil {
				return err
			}
		}

		started := s.now()
		l.Lender = lender
		l.Status = StatusActive
		l.StartedAt = &started
		if err := repo.Update(ctx, l); err != nil {
			return err
		}
		if err := repo.AppendEvent(ctx, &Event{LoanID: l.ID, Kind: EventFunded, Actor: lender, Amount: l.Terms.Principal}); err != nil {
			return err
		}
		if err := s.reputation.RecordLoanFundedTx(ctx, tx, s.cfg.EngineAccount, lender, l.Borrower, l.ID, l.Terms.Principal); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "loan funded", "loan_id", id, "lender", lender)
	return out, nil
}

// Repay pays down an active loan. Repayments above the outstanding debt are
// rejected whole; the final repayment returns the collateral and reports
// reputation after commit.
func (s *Service) Repay(ctx context.Context, borrower string, id int64, amount int64) (*Loan, error) {
	if err := s.guard.enter(); err != nil {
		return nil, err
	}
	defer s.guard.exit()

	if amount <= 0 {
		return nil, fmt.Errorf("%w: repayment must be positive", common.ErrInvalidTerms)
	}

	var out *Loan
	var fullyRepaid bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repoFor(tx)
		l, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if l.Status != StatusActive {
			return common.ErrLoanNotActive
		}
		if borrower != l.Borrower {
			return common.ErrNotBorrower
		}

		debt := Debt(l, s.now())
		if l.Repaid+amount > debt {
			return fmt.Errorf("%w: outstanding %d, got %d", common.ErrAmountExceedsDebt, debt-l.Repaid, amount)
		}
		fullyRepaid = l.Repaid+amount == debt

		if err := s.ledgerFor(tx).Transfer(ctx, borrower, l.Lender, l.Terms.PrincipalAsset, amount); err != nil {
			return err
		}

		l.Repaid += amount
		kind := EventRepayment
		if fullyRepaid {
			l.Status = StatusRepaid
			kind = EventRepaid
			if err := s.settleCollateral(ctx, tx, l, l.Borrower); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, l); err != nil {
			return err
		}
		if err := repo.AppendEvent(ctx, &Event{LoanID: l.ID, Kind: kind, Actor: borrower, Amount: amount}); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	if fullyRepaid {
		s.reportRepaid(ctx, out)
	}
	s.logger.Info(ctx, "repayment settled", "loan_id", id, "amount", amount, "fully_repaid", fullyRepaid)
	return out, nil
}

// protocolFee is the cut of the principal routed to the fee sink at funding.
func protocolFee(principal int64, feeBps int) int64 {
	if principal <= 0 || feeBps <= 0 {
		return 0
	}
	n := new(big.Int).Mul(big.NewInt(principal), big.NewInt(int64(feeBps)))
	return n.Div(n, big.NewInt(bpsDenominator)).Int64()
}

// reportRepaid reports the closed loan to reputation after the repayment has
// committed. The report is retried a few times and then dropped; settlement
// never depends on it.
func (s *Service) reportRepaid(ctx context.Context, l *Loan) {
	backoff := retry.WithMaxRetries(reportRetries, retry.NewConstant(reportInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.reputation.RecordLoanRepaid(ctx, s.cfg.EngineAccount, l.Borrower, l.Lender, l.ID, l.Repaid)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn(ctx, "repayment reputation report dropped", "loan_id", l.ID, "error", err)
	}
}

// Seize liquidates a matured loan: the lender takes the collateral and the
// default is reported.
func (s *Service) Seize(ctx context.Context, lender string, id int64) (*Loan, error) {
	if err := s.guard.enter(); err != nil {
		return nil, err
	}
	defer s.guard.exit()

	var out *Loan
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repoFor(tx)
		l, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if l.Status != StatusActive {
			return common.ErrLoanNotActive
		}
		if lender != l.Lender {
			return common.ErrNotLender
		}
		if s.now().Before(l.StartedAt.Add(l.Terms.Duration)) {
			return common.ErrLoanNotExpired
		}

		if err := s.settleCollateral(ctx, tx, l, lender); err != nil {
			return err
		}

		outstanding := Outstanding(l, s.now())
		l.Status = StatusDefaulted
		if err := repo.Update(ctx, l); err != nil {
			return err
		}
		if err := repo.AppendEvent(ctx, &Event{LoanID: l.ID, Kind: EventDefaulted, Actor: lender, Amount: outstanding}); err != nil {
			return err
		}
		if err := s.reputation.RecordLoanDefaultedTx(ctx, tx, s.cfg.EngineAccount, l.Borrower, lender, l.ID, outstanding); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "collateral seized", "loan_id", id, "lender", lender)
	return out, nil
}

// Cancel withdraws an unfunded loan and returns its collateral.
func (s *Service) Cancel(ctx context.Context, borrower string, id int64) (*Loan, error) {
	if err := s.guard.enter(); err != nil {
		return nil, err
	}
	defer s.guard.exit()

	var out *Loan
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repoFor(tx)
		l, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if l.Status != StatusOpen {
			return common.ErrLoanNotOpen
		}
		if borrower != l.Borrower {
			return common.ErrNotBorrower
		}

		if err := s.settleCollateral(ctx, tx, l, l.Borrower); err != nil {
			return err
		}

		l.Status = StatusCancelled
		if err := repo.Update(ctx, l); err != nil {
			return err
		}
		if err := repo.AppendEvent(ctx, &Event{LoanID: l.ID, Kind: EventCancelled, Actor: borrower}); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "loan cancelled", "loan_id", id)
	return out, nil
}
