package loans

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/dbx"
	"github.com/openlend/lendcore/internal/logging"
	"github.com/openlend/lendcore/internal/server/assets"
	"github.com/openlend/lendcore/internal/server/crosschain"
	"github.com/openlend/lendcore/internal/server/custody"
)

const day = 24 * time.Hour

// -------- test fakes --------

type fakeRepo struct {
	nextID int64
	loans  map[int64]*Loan
	events []*Event
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, loans: map[int64]*Loan{}}
}

func (f *fakeRepo) Create(ctx context.Context, l *Loan) error {
	l.ID = f.nextID
	l.CreatedAt = time.Now()
	f.nextID++
	cp := *l
	f.loans[l.ID] = &cp
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*Loan, error) {
	l, ok := f.loans[id]
	if !ok {
		return nil, common.ErrLoanNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeRepo) Update(ctx context.Context, l *Loan) error {
	if _, ok := f.loans[l.ID]; !ok {
		return common.ErrLoanNotFound
	}
	cp := *l
	f.loans[l.ID] = &cp
	return nil
}

func (f *fakeRepo) ListByBorrower(ctx context.Context, borrower string) ([]*Loan, error) {
	var out []*Loan
	for id := f.nextID - 1; id >= 1; id-- {
		if l, ok := f.loans[id]; ok && l.Borrower == borrower {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) AppendEvent(ctx context.Context, e *Event) error {
	cp := *e
	f.events = append(f.events, &cp)
	return nil
}

func (f *fakeRepo) Events(ctx context.Context, loanID int64) ([]*Event, error) {
	var out []*Event
	for _, e := range f.events {
		if e.LoanID == loanID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeLedger struct {
	balances map[string]int64 // account|asset
	tokens   map[string]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: map[string]int64{}, tokens: map[string]string{}}
}

func bkey(account, assetID string) string { return account + "|" + assetID }

func tkey(assetID string, tokenID int64) string { return fmt.Sprintf("%s|%d", assetID, tokenID) }

func (f *fakeLedger) Transfer(ctx context.Context, from, to, assetID string, amount int64) error {
	if f.balances[bkey(from, assetID)] < amount {
		return common.ErrTransferFailed
	}
	f.balances[bkey(from, assetID)] -= amount
	f.balances[bkey(to, assetID)] += amount
	return nil
}

func (f *fakeLedger) TransferToken(ctx context.Context, from, to, assetID string, tokenID int64) error {
	if f.tokens[tkey(assetID, tokenID)] != from {
		return common.ErrTransferFailed
	}
	f.tokens[tkey(assetID, tokenID)] = to
	return nil
}

func (f *fakeLedger) Credit(ctx context.Context, account, assetID string, amount int64) error {
	f.balances[bkey(account, assetID)] += amount
	return nil
}

func (f *fakeLedger) MintToken(ctx context.Context, account, assetID string, tokenID int64) error {
	f.tokens[tkey(assetID, tokenID)] = account
	return nil
}

func (f *fakeLedger) Balance(ctx context.Context, account, assetID string) (int64, error) {
	return f.balances[bkey(account, assetID)], nil
}

func (f *fakeLedger) TokenOwner(ctx context.Context, assetID string, tokenID int64) (string, error) {
	owner, ok := f.tokens[tkey(assetID, tokenID)]
	if !ok {
		return "", common.ErrNotFound
	}
	return owner, nil
}

type fakeRegistry struct {
	assets map[string]*assets.Asset
}

func (f *fakeRegistry) Get(ctx context.Context, id string) (*assets.Asset, error) {
	a, ok := f.assets[id]
	if !ok {
		return nil, common.ErrAssetNotFound
	}
	cp := *a
	return &cp, nil
}

type fakeReporter struct {
	mu          sync.Mutex
	ineligible  map[string]bool
	reports     []string
	repaidFails int
}

func (f *fakeReporter) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, fmt.Sprintf(format, args...))
}

func (f *fakeReporter) IsEligibleForLoanTx(ctx context.Context, tx dbx.DBTX, account string) (bool, error) {
	return !f.ineligible[account], nil
}

func (f *fakeReporter) RecordLoanCreatedTx(ctx context.Context, tx dbx.DBTX, caller, borrower string, loanID, amount int64) error {
	f.record("created:%s:%d:%d", borrower, loanID, amount)
	return nil
}

func (f *fakeReporter) RecordLoanFundedTx(ctx context.Context, tx dbx.DBTX, caller, lender, borrower string, loanID, amount int64) error {
	f.record("funded:%s:%s:%d", lender, borrower, loanID)
	return nil
}

func (f *fakeReporter) RecordLoanDefaultedTx(ctx context.Context, tx dbx.DBTX, caller, borrower, lender string, loanID, amount int64) error {
	f.record("defaulted:%s:%d:%d", borrower, loanID, amount)
	return nil
}

func (f *fakeReporter) RecordLoanRepaid(ctx context.Context, caller, borrower, lender string, loanID, amount int64) error {
	f.mu.Lock()
	fails := f.repaidFails
	if fails > 0 {
		f.repaidFails--
	}
	f.mu.Unlock()
	if fails > 0 {
		return errors.New("reputation unavailable")
	}
	f.record("repaid:%s:%d:%d", borrower, loanID, amount)
	return nil
}

func (f *fakeReporter) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.reports {
		if len(r) >= len(prefix) && r[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type fakePrivacy struct {
	used   map[string]bool
	reject error
}

func (f *fakePrivacy) UseCommitmentTx(ctx context.Context, tx dbx.DBTX, caller, hash string) error {
	if f.reject != nil {
		return f.reject
	}
	if f.used[hash] {
		return common.ErrCommitmentUsed
	}
	f.used[hash] = true
	return nil
}

type fakeLocks struct {
	locks map[string]*crosschain.Lock
}

func (f *fakeLocks) RequireLockedTx(ctx context.Context, tx dbx.DBTX, id, owner string) (*crosschain.Lock, error) {
	l, ok := f.locks[id]
	if !ok {
		return nil, common.ErrLockNotFound
	}
	if l.Owner != owner {
		return nil, common.ErrUnauthorized
	}
	if l.Status != crosschain.StatusLocked {
		return nil, common.ErrLockNotLocked
	}
	return l, nil
}

func (f *fakeLocks) ReleaseToTx(ctx context.Context, tx dbx.DBTX, caller, id, recipient string) error {
	return f.transition(id, crosschain.StatusReleased, recipient)
}

func (f *fakeLocks) SeizeTx(ctx context.Context, tx dbx.DBTX, caller, id, recipient string) error {
	return f.transition(id, crosschain.StatusSeized, recipient)
}

func (f *fakeLocks) transition(id string, to crosschain.Status, recipient string) error {
	l, ok := f.locks[id]
	if !ok || l.Status != crosschain.StatusLocked {
		return common.ErrLockNotLocked
	}
	l.Status = to
	l.Recipient = recipient
	return nil
}

// -------- harness --------

type engineFixture struct {
	svc      *Service
	repo     *fakeRepo
	ledger   *fakeLedger
	registry *fakeRegistry
	reporter *fakeReporter
	privacy  *fakePrivacy
	locks    *fakeLocks
	mock     sqlmock.Sqlmock
	clock    *time.Time
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &engineFixture{
		repo:   newFakeRepo(),
		ledger: newFakeLedger(),
		registry: &fakeRegistry{assets: map[string]*assets.Asset{
			"usdl": {ID: "usdl", Symbol: "USDL", Category: assets.CategoryStablecoin, Whitelisted: true, PrivacyEligible: true},
			"gold": {ID: "gold", Symbol: "GOLD", Category: assets.CategoryRWA, Whitelisted: true, MinCollateralRatioBps: 15_000, PrivacyEligible: true},
			"art":  {ID: "art", Symbol: "ART", Category: assets.CategoryNFT, Whitelisted: true},
			"wbtc": {ID: "wbtc", Symbol: "WBTC", Category: assets.CategoryForeign, Whitelisted: true, CrossChainEligible: true},
			"junk": {ID: "junk", Symbol: "JUNK", Category: assets.CategoryCrypto},
		}},
		reporter: &fakeReporter{ineligible: map[string]bool{}},
		privacy:  &fakePrivacy{used: map[string]bool{}},
		locks:    &fakeLocks{locks: map[string]*crosschain.Lock{}},
		mock:     mock,
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.clock = &now

	f.svc = &Service{
		db:         db,
		repoFor:    func(dbx.DBTX) Repository { return f.repo },
		ledgerFor:  func(dbx.DBTX) custody.Ledger { return f.ledger },
		assets:     f.registry,
		reputation: f.reporter,
		privacy:    f.privacy,
		locks:      f.locks,
		cfg: Config{
			EngineAccount:  "engine",
			EscrowAccount:  "escrow",
			FeeSinkAccount: "fee-sink",
			ProtocolFeeBps: 50,
		},
		logger: logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		now:    func() time.Time { return *f.clock },
	}
	return f
}

func (f *engineFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *engineFixture) expectTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *engineFixture) expectTxRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

func stdTerms() Terms {
	return Terms{
		PrincipalAsset: "usdl",
		Principal:      10_000,
		RateBps:        1_000,
		Duration:       30 * day,
		Collateral:     Collateral{Kind: KindFungible, AssetID: "gold", Amount: 20_000},
	}
}

// createFunded sets up balances, creates and funds a standard loan.
func createFunded(t *testing.T, f *engineFixture) *Loan {
	t.Helper()
	ctx := context.Background()
	f.ledger.balances[bkey("bob", "gold")] = 20_000
	f.ledger.balances[bkey("lucy", "usdl")] = 10_000

	f.expectTx()
	l, err := f.svc.Create(ctx, "bob", stdTerms())
	require.NoError(t, err)

	f.expectTx()
	l, err = f.svc.Fund(ctx, "lucy", l.ID)
	require.NoError(t, err)
	return l
}

// -------- tests --------

func TestCreate_EscrowsCollateral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.balances[bkey("bob", "gold")] = 20_000

	f.expectTx()
	l, err := f.svc.Create(ctx, "bob", stdTerms())
	require.NoError(t, err)

	assert.Equal(t, StatusOpen, l.Status)
	assert.EqualValues(t, 0, f.ledger.balances[bkey("bob", "gold")])
	assert.EqualValues(t, 20_000, f.ledger.balances[bkey("escrow", "gold")])
	assert.Equal(t, 1, f.reporter.count("created:bob"))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*Terms)
		wantErr error
	}{
		{"zero principal", func(tr *Terms) { tr.Principal = 0 }, common.ErrInvalidTerms},
		{"negative rate", func(tr *Terms) { tr.RateBps = -1 }, common.ErrInvalidTerms},
		{"rate above cap", func(tr *Terms) { tr.RateBps = 10_001 }, common.ErrInvalidTerms},
		{"zero duration", func(tr *Terms) { tr.Duration = 0 }, common.ErrInvalidTerms},
		{"duration below an hour", func(tr *Terms) { tr.Duration = 10 * time.Minute }, common.ErrInvalidTerms},
		{"duration above a year", func(tr *Terms) { tr.Duration = 400 * day }, common.ErrInvalidTerms},
		{"unknown principal asset", func(tr *Terms) { tr.PrincipalAsset = "nope" }, common.ErrAssetNotFound},
		{"non-whitelisted collateral", func(tr *Terms) { tr.Collateral.AssetID = "junk" }, common.ErrAssetNotWhitelisted},
		{"zero collateral amount", func(tr *Terms) { tr.Collateral.Amount = 0 }, common.ErrInvalidTerms},
		{"unknown collateral kind", func(tr *Terms) { tr.Collateral.Kind = "exotic" }, common.ErrInvalidTerms},
		{"private with ineligible collateral", func(tr *Terms) {
			tr.Private = true
			tr.CommitmentRef = "c1"
			tr.Collateral.AssetID = "wbtc"
		}, common.ErrInvalidTerms},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			terms := stdTerms()
			tc.mutate(&terms)
			_, err := f.svc.Create(ctx, "bob", terms)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
	assert.Empty(t, f.repo.loans)
}

func TestCreate_EnforcesCollateralRatio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// gold requires 150%: principal 10000 in gold terms needs 15000.
	f.registry.assets["gold"].Whitelisted = true
	terms := stdTerms()
	terms.PrincipalAsset = "gold"
	terms.Collateral.Amount = 14_999

	_, err := f.svc.Create(ctx, "bob", terms)
	assert.ErrorIs(t, err, common.ErrInvalidTerms)
}

func TestCreate_BlacklistedBorrowerRejected(t *testing.T) {
	f := newFixture(t)
	f.reporter.ineligible["bob"] = true
	f.ledger.balances[bkey("bob", "gold")] = 20_000

	f.expectTxRollback()
	_, err := f.svc.Create(context.Background(), "bob", stdTerms())
	assert.ErrorIs(t, err, common.ErrBlacklisted)
	assert.EqualValues(t, 20_000, f.ledger.balances[bkey("bob", "gold")], "no escrow on rejection")
}

func TestCreate_InsufficientCollateralRollsBack(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances[bkey("bob", "gold")] = 100

	f.expectTxRollback()
	_, err := f.svc.Create(context.Background(), "bob", stdTerms())
	assert.ErrorIs(t, err, common.ErrTransferFailed)
	assert.Empty(t, f.repo.loans)
}

func TestCreate_PrivateLoanConsumesCommitment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.balances[bkey("bob", "gold")] = 20_000

	terms := stdTerms()
	terms.Private = true
	terms.CommitmentRef = "c1"

	f.expectTx()
	_, err := f.svc.Create(ctx, "bob", terms)
	require.NoError(t, err)
	assert.True(t, f.privacy.used["c1"])

	// Same commitment cannot back a second loan.
	f.ledger.balances[bkey("bob", "gold")] = 20_000
	f.expectTxRollback()
	_, err = f.svc.Create(ctx, "bob", terms)
	assert.ErrorIs(t, err, common.ErrCommitmentUsed)
}

func TestCreate_PrivateLoanRequiresGateway(t *testing.T) {
	f := newFixture(t)
	f.svc.privacy = nil

	terms := stdTerms()
	terms.Private = true
	terms.CommitmentRef = "c1"

	_, err := f.svc.Create(context.Background(), "bob", terms)
	assert.ErrorIs(t, err, common.ErrPrivacyNotConfigured)
}

func TestCreate_CrossChainCollateral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.locks.locks["lock-1"] = &crosschain.Lock{ID: "lock-1", Owner: "bob", AssetID: "wbtc", Amount: 50_000, Status: crosschain.StatusLocked}

	terms := stdTerms()
	terms.Collateral = Collateral{Kind: KindCrossChain, AssetID: "wbtc", LockID: "lock-1"}

	f.expectTx()
	l, err := f.svc.Create(ctx, "bob", terms)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, l.Status)

	// A lock held by someone else is rejected.
	f.locks.locks["lock-2"] = &crosschain.Lock{ID: "lock-2", Owner: "eve", Status: crosschain.StatusLocked}
	terms.Collateral.LockID = "lock-2"
	f.expectTxRollback()
	_, err = f.svc.Create(ctx, "bob", terms)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestFund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.balances[bkey("bob", "gold")] = 20_000
	f.ledger.balances[bkey("lucy", "usdl")] = 10_000

	f.expectTx()
	l, err := f.svc.Create(ctx, "bob", stdTerms())
	require.NoError(t, err)

	f.expectTxRollback()
	_, err = f.svc.Fund(ctx, "bob", l.ID)
	assert.ErrorIs(t, err, common.ErrSelfFunding)

	f.expectTx()
	l, err = f.svc.Fund(ctx, "lucy", l.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, l.Status)
	assert.Equal(t, "lucy", l.Lender)

	// The lender pays the full principal; 50 bps go to the fee sink.
	assert.EqualValues(t, 9_950, f.ledger.balances[bkey("bob", "usdl")])
	assert.EqualValues(t, 50, f.ledger.balances[bkey("fee-sink", "usdl")])
	assert.EqualValues(t, 0, f.ledger.balances[bkey("lucy", "usdl")])
	assert.Equal(t, 1, f.reporter.count("funded:lucy:bob"))

	// Funding is exclusive.
	f.expectTxRollback()
	_, err = f.svc.Fund(ctx, "mallory", l.ID)
	assert.ErrorIs(t, err, common.ErrLoanNotOpen)
}

func TestRepay_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := createFunded(t, f)

	// Half the term elapsed: debt is 10000 + 500 interest. The borrower
	// received 9950 at funding, so top up the difference.
	f.advance(15 * day)
	f.ledger.balances[bkey("bob", "usdl")] += 550

	f.expectTx()
	l, err := f.svc.Repay(ctx, "bob", l.ID, 10_500)
	require.NoError(t, err)
	assert.Equal(t, StatusRepaid, l.Status)

	// The lender is repaid in full; the fee sink holds only the funding fee.
	assert.EqualValues(t, 10_500, f.ledger.balances[bkey("lucy", "usdl")])
	assert.EqualValues(t, 50, f.ledger.balances[bkey("fee-sink", "usdl")])
	assert.EqualValues(t, 20_000, f.ledger.balances[bkey("bob", "gold")], "collateral returned")
	assert.EqualValues(t, 0, f.ledger.balances[bkey("escrow", "gold")])
	assert.Equal(t, 1, f.reporter.count("repaid:bob"))
}

func TestRepay_PartialThenFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := createFunded(t, f)
	f.advance(30 * day)
	f.ledger.balances[bkey("bob", "usdl")] += 1_050

	f.expectTx()
	got, err := f.svc.Repay(ctx, "bob", l.ID, 4_000)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.EqualValues(t, 4_000, got.Repaid)
	assert.EqualValues(t, 20_000, f.ledger.balances[bkey("escrow", "gold")], "collateral stays escrowed")

	f.expectTx()
	got, err = f.svc.Repay(ctx, "bob", l.ID, 7_000)
	require.NoError(t, err)
	assert.Equal(t, StatusRepaid, got.Status)
	assert.EqualValues(t, 11_000, got.Repaid)
}

func TestRepay_OverpaymentRejectedWhole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := createFunded(t, f)
	f.advance(15 * day)
	f.ledger.balances[bkey("bob", "usdl")] += 10_000

	f.expectTxRollback()
	_, err := f.svc.Repay(ctx, "bob", l.ID, 10_501)
	assert.ErrorIs(t, err, common.ErrAmountExceedsDebt)

	got, err := f.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.EqualValues(t, 0, got.Repaid, "state unchanged after rejection")
	assert.EqualValues(t, 20_000, f.ledger.balances[bkey("escrow", "gold")])
}

func TestRepay_OnlyBorrower(t *testing.T) {
	f := newFixture(t)
	l := createFunded(t, f)

	f.expectTxRollback()
	_, err := f.svc.Repay(context.Background(), "mallory", l.ID, 100)
	assert.ErrorIs(t, err, common.ErrNotBorrower)
}

func TestRepay_ReputationReportIsBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := createFunded(t, f)
	f.advance(30 * day)
	f.ledger.balances[bkey("bob", "usdl")] += 1_050

	// First attempt fails, the retry succeeds.
	f.reporter.repaidFails = 1
	f.expectTx()
	got, err := f.svc.Repay(ctx, "bob", l.ID, 11_000)
	require.NoError(t, err)
	assert.Equal(t, StatusRepaid, got.Status)
	assert.Equal(t, 1, f.reporter.count("repaid:bob"))
}

func TestRepay_SettlesEvenWhenReportingIsDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := createFunded(t, f)
	f.advance(30 * day)
	f.ledger.balances[bkey("bob", "usdl")] += 1_050

	f.reporter.repaidFails = 100
	f.expectTx()
	got, err := f.svc.Repay(ctx, "bob", l.ID, 11_000)
	require.NoError(t, err, "settlement never depends on the report")
	assert.Equal(t, StatusRepaid, got.Status)
	assert.Equal(t, 0, f.reporter.count("repaid:bob"))
}

func TestSeize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := createFunded(t, f)

	f.expectTxRollback()
	_, err := f.svc.Seize(ctx, "lucy", l.ID)
	assert.ErrorIs(t, err, common.ErrLoanNotExpired)

	f.advance(31 * day)

	f.expectTxRollback()
	_, err = f.svc.Seize(ctx, "mallory", l.ID)
	assert.ErrorIs(t, err, common.ErrNotLender)

	f.expectTx()
	got, err := f.svc.Seize(ctx, "lucy", l.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDefaulted, got.Status)
	assert.EqualValues(t, 20_000, f.ledger.balances[bkey("lucy", "gold")])
	assert.Equal(t, 1, f.reporter.count("defaulted:bob"))
}

func TestSeize_CrossChainCollateral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.locks.locks["lock-1"] = &crosschain.Lock{ID: "lock-1", Owner: "bob", AssetID: "wbtc", Amount: 50_000, Status: crosschain.StatusLocked}
	f.ledger.balances[bkey("lucy", "usdl")] = 10_000

	terms := stdTerms()
	terms.Collateral = Collateral{Kind: KindCrossChain, AssetID: "wbtc", LockID: "lock-1"}

	f.expectTx()
	l, err := f.svc.Create(ctx, "bob", terms)
	require.NoError(t, err)
	f.expectTx()
	_, err = f.svc.Fund(ctx, "lucy", l.ID)
	require.NoError(t, err)

	f.advance(31 * day)
	f.expectTx()
	_, err = f.svc.Seize(ctx, "lucy", l.ID)
	require.NoError(t, err)
	assert.Equal(t, crosschain.StatusSeized, f.locks.locks["lock-1"].Status)
	assert.Equal(t, "lucy", f.locks.locks["lock-1"].Recipient)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.balances[bkey("bob", "gold")] = 20_000

	f.expectTx()
	l, err := f.svc.Create(ctx, "bob", stdTerms())
	require.NoError(t, err)

	f.expectTxRollback()
	_, err = f.svc.Cancel(ctx, "mallory", l.ID)
	assert.ErrorIs(t, err, common.ErrNotBorrower)

	f.expectTx()
	got, err := f.svc.Cancel(ctx, "bob", l.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.EqualValues(t, 20_000, f.ledger.balances[bkey("bob", "gold")])

	// A cancelled loan cannot be funded.
	f.expectTxRollback()
	_, err = f.svc.Fund(ctx, "lucy", l.ID)
	assert.ErrorIs(t, err, common.ErrLoanNotOpen)
}

func TestReentrancyGuard(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.guard.enter())
	_, err := f.svc.Create(context.Background(), "bob", stdTerms())
	assert.ErrorIs(t, err, common.ErrReentrantCall)
	_, err = f.svc.Repay(context.Background(), "bob", 1, 100)
	assert.ErrorIs(t, err, common.ErrReentrantCall)
	f.svc.guard.exit()

	_, err = f.svc.Repay(context.Background(), "bob", 1, 100)
	assert.NotErrorIs(t, err, common.ErrReentrantCall)
}

func TestNFTCollateralLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.tokens[tkey("art", 7)] = "bob"
	f.ledger.balances[bkey("lucy", "usdl")] = 10_000

	terms := stdTerms()
	terms.Collateral = Collateral{Kind: KindNFT, AssetID: "art", TokenID: 7}

	f.expectTx()
	l, err := f.svc.Create(ctx, "bob", terms)
	require.NoError(t, err)
	assert.Equal(t, "escrow", f.ledger.tokens[tkey("art", 7)])

	f.expectTx()
	_, err = f.svc.Fund(ctx, "lucy", l.ID)
	require.NoError(t, err)

	f.advance(30 * day)
	f.ledger.balances[bkey("bob", "usdl")] += 1_050
	f.expectTx()
	_, err = f.svc.Repay(ctx, "bob", l.ID, 11_000)
	require.NoError(t, err)
	assert.Equal(t, "bob", f.ledger.tokens[tkey("art", 7)], "token returned on repayment")
}
