package seeder

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certis/internal/identity/models"
	identityservice "certis/internal/identity/service"
	adminstore "certis/internal/identity/store/admin"
	holderstore "certis/internal/identity/store/holder"
)

func newSeeder(t *testing.T) (*Seeder, *adminstore.InMemoryStore) {
	t.Helper()
	admins := adminstore.New()
	holders := holderstore.New()
	svc := identityservice.New(admins, holders, identityservice.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return New(svc, admins, slog.New(slog.NewTextHandler(io.Discard, nil))), admins
}

func TestSeedInitialAdmin(t *testing.T) {
	s, admins := newSeeder(t)
	ctx := context.Background()

	require.NoError(t, s.SeedInitialAdmin(ctx, "root@example.edu", "bootstrap-secret", "Root", "Registry"))

	admin, err := admins.FindByEmail(ctx, "root@example.edu")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, admin.Role)
	assert.ElementsMatch(t, models.AllPermissions(), admin.Permissions)

	// A second run must not create another identity.
	require.NoError(t, s.SeedInitialAdmin(ctx, "other@example.edu", "bootstrap-secret", "Other", "Registry"))
	count, err := admins.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSeedSkippedWhenUnconfigured(t *testing.T) {
	s, admins := newSeeder(t)
	ctx := context.Background()

	require.NoError(t, s.SeedInitialAdmin(ctx, "", "", "", ""))

	count, err := admins.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
