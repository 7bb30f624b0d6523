// Package seeder bootstraps the initial super administrator so a fresh
// deployment has an identity that can register the rest.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"certis/internal/identity/models"
)

// AdminRegistrar is the slice of the identity service seeding needs.
type AdminRegistrar interface {
	RegisterAdmin(ctx context.Context, req *models.RegisterAdminRequest) (*models.AdminView, error)
}

// AdminCounter reports how many administrator identities exist.
type AdminCounter interface {
	Count(ctx context.Context) (int, error)
}

// Seeder creates the initial super admin when the store is empty.
type Seeder struct {
	identities AdminRegistrar
	admins     AdminCounter
	logger     *slog.Logger
}

func New(identities AdminRegistrar, admins AdminCounter, logger *slog.Logger) *Seeder {
	return &Seeder{
		identities: identities,
		admins:     admins,
		logger:     logger,
	}
}

// SeedInitialAdmin registers the configured super admin if no
// administrator exists yet. A populated store makes this a no-op, so
// restarts never duplicate or overwrite identities.
func (s *Seeder) SeedInitialAdmin(ctx context.Context, email, secret, name, department string) error {
	if email == "" || secret == "" {
		s.logger.Info("initial admin not configured, skipping seed")
		return nil
	}

	count, err := s.admins.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		s.logger.Info("admin store already populated, skipping seed", "count", count)
		return nil
	}

	view, err := s.identities.RegisterAdmin(ctx, &models.RegisterAdminRequest{
		Email:      email,
		Secret:     secret,
		Name:       name,
		Department: department,
		Role:       string(models.RoleSuperAdmin),
	})
	if err != nil {
		return fmt.Errorf("failed to seed initial admin: %w", err)
	}

	s.logger.Info("initial super admin seeded", "admin_id", view.ID, "email", email)
	return nil
}
