package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/logging"
	"github.com/openlend/lendcore/internal/server/accesscontrol"
)

// AccessChecker is the capability check the registry needs for its
// admin-gated operations.
type AccessChecker interface {
	Require(ctx context.Context, capability, account string) error
}

type Service struct {
	repo   Repository
	acl    AccessChecker
	logger logging.Logger
}

func NewService(repo Repository, acl AccessChecker, logger logging.Logger) *Service {
	return &Service{repo: repo, acl: acl, logger: logger.With("module", "assets")}
}

func validCategory(c Category) bool {
	switch c {
	case CategoryStablecoin, CategoryCrypto, CategoryRWA, CategoryNFT, CategoryForeign:
		return true
	}
	return false
}

// Register upserts a registry entry. Admin capability required.
func (s *Service) Register(ctx context.Context, caller string, a *Asset) error {
	if err := s.acl.Require(ctx, accesscontrol.CapAdmin, caller); err != nil {
		return err
	}
	if a.ID == "" || a.Symbol == "" || !validCategory(a.Category) {
		return fmt.Errorf("%w: asset id, symbol and category are required", common.ErrInvalidTerms)
	}
	if a.MinCollateralRatioBps < 0 {
		return fmt.Errorf("%w: negative collateral ratio", common.ErrInvalidTerms)
	}
	if err := s.repo.Upsert(ctx, a); err != nil {
		return err
	}
	s.logger.Info(ctx, "asset registered", "asset", a.ID, "category", a.Category, "whitelisted", a.Whitelisted)
	return nil
}

// SetWhitelisted flips the whitelist flag. Admin capability required.
func (s *Service) SetWhitelisted(ctx context.Context, caller, id string, whitelisted bool) error {
	if err := s.acl.Require(ctx, accesscontrol.CapAdmin, caller); err != nil {
		return err
	}
	if err := s.repo.SetWhitelisted(ctx, id, whitelisted); err != nil {
		return err
	}
	s.logger.Info(ctx, "asset whitelist updated", "asset", id, "whitelisted", whitelisted)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Asset, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Asset, error) {
	return s.repo.List(ctx)
}

// IsWhitelisted reports whether the asset exists and is whitelisted.
func (s *Service) IsWhitelisted(ctx context.Context, id string) (bool, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrAssetNotFound) {
			return false, nil
		}
		return false, err
	}
	return a.Whitelisted, nil
}
