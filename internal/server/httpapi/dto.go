package httpapi

import (
	"time"

	"github.com/openlend/lendcore/internal/server/crosschain"
	"github.com/openlend/lendcore/internal/server/loans"
	"github.com/openlend/lendcore/internal/server/offers"
	"github.com/openlend/lendcore/internal/server/privacy"
	"github.com/openlend/lendcore/internal/server/reputation"
	"github.com/openlend/lendcore/internal/timex"
)

type collateralDTO struct {
	Kind    string `json:"kind"`
	AssetID string `json:"asset_id"`
	TokenID int64  `json:"token_id,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	LockID  string `json:"lock_id,omitempty"`
}

type termsDTO struct {
	PrincipalAsset string         `json:"principal_asset"`
	Principal      int64          `json:"principal"`
	RateBps        int            `json:"rate_bps"`
	Duration       timex.Duration `json:"duration"`
	Collateral     collateralDTO  `json:"collateral"`
	Private        bool           `json:"private,omitempty"`
	CommitmentRef  string         `json:"commitment_ref,omitempty"`
}

func (d *termsDTO) toTerms() loans.Terms {
	return loans.Terms{
		PrincipalAsset: d.PrincipalAsset,
		Principal:      d.Principal,
		RateBps:        d.RateBps,
		Duration:       d.Duration.Duration,
		Collateral: loans.Collateral{
			Kind:    loans.CollateralKind(d.Collateral.Kind),
			AssetID: d.Collateral.AssetID,
			TokenID: d.Collateral.TokenID,
			Amount:  d.Collateral.Amount,
			LockID:  d.Collateral.LockID,
		},
		Private:       d.Private,
		CommitmentRef: d.CommitmentRef,
	}
}

type loanDTO struct {
	ID             int64         `json:"id"`
	Borrower       string        `json:"borrower"`
	Lender         string        `json:"lender,omitempty"`
	PrincipalAsset string        `json:"principal_asset"`
	Principal      int64         `json:"principal"`
	RateBps        int           `json:"rate_bps"`
	DurationSecs   int64         `json:"duration_secs"`
	Collateral     collateralDTO `json:"collateral"`
	Private        bool          `json:"private,omitempty"`
	CommitmentRef  string        `json:"commitment_ref,omitempty"`
	Status         string        `json:"status"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	Repaid         int64         `json:"repaid"`
	CreatedAt      time.Time     `json:"created_at"`
}

func toLoanDTO(l *loans.Loan) *loanDTO {
	return &loanDTO{
		ID:             l.ID,
		Borrower:       l.Borrower,
		Lender:         l.Lender,
		PrincipalAsset: l.Terms.PrincipalAsset,
		Principal:      l.Terms.Principal,
		RateBps:        l.Terms.RateBps,
		DurationSecs:   int64(l.Terms.Duration / time.Second),
		Collateral: collateralDTO{
			Kind:    string(l.Terms.Collateral.Kind),
			AssetID: l.Terms.Collateral.AssetID,
			TokenID: l.Terms.Collateral.TokenID,
			Amount:  l.Terms.Collateral.Amount,
			LockID:  l.Terms.Collateral.LockID,
		},
		Private:       l.Terms.Private,
		CommitmentRef: l.Terms.CommitmentRef,
		Status:        string(l.Status),
		StartedAt:     l.StartedAt,
		Repaid:        l.Repaid,
		CreatedAt:     l.CreatedAt,
	}
}

func toLoanDTOs(ls []*loans.Loan) []*loanDTO {
	out := make([]*loanDTO, 0, len(ls))
	for _, l := range ls {
		out = append(out, toLoanDTO(l))
	}
	return out
}

type offerDTO struct {
	ID                 int64          `json:"id"`
	Creator            string         `json:"creator"`
	Direction          string         `json:"direction"`
	AssetID            string         `json:"asset_id"`
	MinAmount          int64          `json:"min_amount"`
	MaxAmount          int64          `json:"max_amount"`
	RateFloorBps       int            `json:"rate_floor_bps"`
	RateCeilingBps     int            `json:"rate_ceiling_bps"`
	MinDuration        timex.Duration `json:"min_duration"`
	MaxDuration        timex.Duration `json:"max_duration"`
	MinReputation      int            `json:"min_reputation"`
	CollateralPolicy   string         `json:"collateral_policy"`
	AcceptedCollateral []string       `json:"accepted_collateral,omitempty"`
	AcceptsRWA         bool           `json:"accepts_rwa"`
	AcceptsCrossChain  bool           `json:"accepts_cross_chain"`
	Private            bool           `json:"private,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	ExpiresAt          time.Time      `json:"expires_at"`
	Status             string         `json:"status"`
}

func (d *offerDTO) toOffer() *offers.Offer {
	return &offers.Offer{
		Direction:          offers.Direction(d.Direction),
		AssetID:            d.AssetID,
		MinAmount:          d.MinAmount,
		MaxAmount:          d.MaxAmount,
		RateFloorBps:       d.RateFloorBps,
		RateCeilingBps:     d.RateCeilingBps,
		MinDuration:        d.MinDuration.Duration,
		MaxDuration:        d.MaxDuration.Duration,
		MinReputation:      d.MinReputation,
		CollateralPolicy:   offers.CollateralPolicy(d.CollateralPolicy),
		AcceptedCollateral: d.AcceptedCollateral,
		AcceptsRWA:         d.AcceptsRWA,
		AcceptsCrossChain:  d.AcceptsCrossChain,
		Private:            d.Private,
		ExpiresAt:          d.ExpiresAt,
	}
}

func toOfferDTO(o *offers.Offer) *offerDTO {
	return &offerDTO{
		ID:                 o.ID,
		Creator:            o.Creator,
		Direction:          string(o.Direction),
		AssetID:            o.AssetID,
		MinAmount:          o.MinAmount,
		MaxAmount:          o.MaxAmount,
		RateFloorBps:       o.RateFloorBps,
		RateCeilingBps:     o.RateCeilingBps,
		MinDuration:        timex.Duration{Duration: o.MinDuration},
		MaxDuration:        timex.Duration{Duration: o.MaxDuration},
		MinReputation:      o.MinReputation,
		CollateralPolicy:   string(o.CollateralPolicy),
		AcceptedCollateral: o.AcceptedCollateral,
		AcceptsRWA:         o.AcceptsRWA,
		AcceptsCrossChain:  o.AcceptsCrossChain,
		Private:            o.Private,
		CreatedAt:          o.CreatedAt,
		ExpiresAt:          o.ExpiresAt,
		Status:             string(o.Status),
	}
}

func toOfferDTOs(os []*offers.Offer) []*offerDTO {
	out := make([]*offerDTO, 0, len(os))
	for _, o := range os {
		out = append(out, toOfferDTO(o))
	}
	return out
}

type commitmentDTO struct {
	Hash       string     `json:"hash"`
	Creator    string     `json:"creator"`
	ProofType  string     `json:"proof_type"`
	Verified   bool       `json:"verified"`
	Used       bool       `json:"used"`
	CreatedAt  time.Time  `json:"created_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

func toCommitmentDTO(c *privacy.Commitment) *commitmentDTO {
	return &commitmentDTO{
		Hash:       c.Hash,
		Creator:    c.Creator,
		ProofType:  c.ProofType,
		Verified:   c.Verified,
		Used:       c.Used,
		CreatedAt:  c.CreatedAt,
		VerifiedAt: c.VerifiedAt,
	}
}

type lockDTO struct {
	ID            string     `json:"id"`
	Owner         string     `json:"owner"`
	AssetID       string     `json:"asset_id"`
	Amount        int64      `json:"amount,omitempty"`
	TokenID       int64      `json:"token_id,omitempty"`
	ForeignTxHash string     `json:"foreign_tx_hash"`
	Status        string     `json:"status"`
	LockedAt      time.Time  `json:"locked_at"`
	ReleasedAt    *time.Time `json:"released_at,omitempty"`
	Recipient     string     `json:"recipient,omitempty"`
}

func toLockDTO(l *crosschain.Lock) *lockDTO {
	return &lockDTO{
		ID:            l.ID,
		Owner:         l.Owner,
		AssetID:       l.AssetID,
		Amount:        l.Amount,
		TokenID:       l.TokenID,
		ForeignTxHash: l.ForeignTxHash,
		Status:        string(l.Status),
		LockedAt:      l.LockedAt,
		ReleasedAt:    l.ReleasedAt,
		Recipient:     l.Recipient,
	}
}

type reputationDTO struct {
	Account        string    `json:"account"`
	LoansCreated   int       `json:"loans_created"`
	LoansRepaid    int       `json:"loans_repaid"`
	LoansDefaulted int       `json:"loans_defaulted"`
	BorrowedVolume int64     `json:"borrowed_volume"`
	LentVolume     int64     `json:"lent_volume"`
	RepaidVolume   int64     `json:"repaid_volume"`
	Score          int       `json:"score"`
	Tier           string    `json:"tier"`
	Blacklisted    bool      `json:"blacklisted"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toReputationDTO(r *reputation.Record) *reputationDTO {
	return &reputationDTO{
		Account:        r.Account,
		LoansCreated:   r.LoansCreated,
		LoansRepaid:    r.LoansRepaid,
		LoansDefaulted: r.LoansDefaulted,
		BorrowedVolume: r.BorrowedVolume,
		LentVolume:     r.LentVolume,
		RepaidVolume:   r.RepaidVolume,
		Score:          r.Score,
		Tier:           string(r.Tier),
		Blacklisted:    r.Blacklisted,
		UpdatedAt:      r.UpdatedAt,
	}
}
