package accesscontrol

import (
	"context"
	"fmt"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/logging"
)

type Service struct {
	repo   Repository
	logger logging.Logger
}

func NewService(repo Repository, logger logging.Logger) *Service {
	return &Service{repo: repo, logger: logger.With("module", "accesscontrol")}
}

// Require fails with common.ErrUnauthorized unless account holds capability.
func (s *Service) Require(ctx context.Context, capability, account string) error {
	ok, err := s.repo.Has(ctx, capability, account)
	if err != nil {
		return fmt.Errorf("capability lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s requires %q", common.ErrUnauthorized, account, capability)
	}
	return nil
}

// Grant lets an admin give capability to account.
func (s *Service) Grant(ctx context.Context, caller, capability, account string) error {
	if err := s.Require(ctx, CapAdmin, caller); err != nil {
		return err
	}
	if err := s.repo.Grant(ctx, capability, account); err != nil {
		return err
	}
	s.logger.Info(ctx, "capability granted", "capability", capability, "account", account, "by", caller)
	return nil
}

// Revoke lets an admin remove capability from account.
func (s *Service) Revoke(ctx context.Context, caller, capability, account string) error {
	if err := s.Require(ctx, CapAdmin, caller); err != nil {
		return err
	}
	if err := s.repo.Revoke(ctx, capability, account); err != nil {
		return err
	}
	s.logger.Info(ctx, "capability revoked", "capability", capability, "account", account, "by", caller)
	return nil
}

// Bootstrap seeds the initial grants from configuration. It is idempotent and
// runs on every startup.
func (s *Service) Bootstrap(ctx context.Context, admin, engine string, relayers []string) error {
	grants := []struct{ capability, account string }{
		{CapAdmin, admin},
		{CapEngine, engine},
		{CapCrossChainVerify, engine},
	}
	for _, r := range relayers {
		grants = append(grants, struct{ capability, account string }{CapRelayer, r})
	}
	for _, g := range grants {
		if err := s.repo.Grant(ctx, g.capability, g.account); err != nil {
			return fmt.Errorf("bootstrap grant %s/%s: %w", g.capability, g.account, err)
		}
	}
	return nil
}
