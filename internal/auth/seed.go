package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/college-clubs/backend/config"
	"github.com/college-clubs/backend/internal/models"
	"github.com/college-clubs/backend/pkg/utils"
)

// EnsureSuperAdmin creates the bootstrap super admin account if it does not
// exist. Idempotent; the seeded account never carries the forced
// password-change flag. Skipped when no seed password is configured.
func EnsureSuperAdmin(ctx context.Context, repo *Repository, seed config.SeedConfig, logger *zap.Logger) error {
	if seed.SuperAdminPassword == "" {
		logger.Warn("super admin seed skipped: SEED_SUPER_ADMIN_PASSWORD not set")
		return nil
	}

	_, err := repo.GetByEmail(ctx, seed.SuperAdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("seed lookup: %w", err)
	}

	hash, err := utils.HashPassword(seed.SuperAdminPassword)
	if err != nil {
		return fmt.Errorf("seed hash: %w", err)
	}
	if _, err := repo.Create(ctx, seed.SuperAdminEmail, hash, "Super Admin", models.RoleSuperAdmin, false); err != nil {
		// Lost a race against a concurrent boot; the account exists.
		if errors.Is(err, ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("seed create: %w", err)
	}
	logger.Info("super admin account seeded", zap.String("email", seed.SuperAdminEmail))
	return nil
}
