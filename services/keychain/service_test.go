package keychain

import (
	"context"
	"path/filepath"
	"testing"

	configsqlite "orgassist-backend/lib/configutil/sqlite"
	"orgassist-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func newTestService(t testing.TB) *Service {
	service, err := NewService(configsqlite.Struct{
		File: filepath.Join(t.TempDir(), "keychain.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { service.Close() })
	return service
}

func TestLoginPasswordRoundtrip(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:services/keychain")
	defer cleanup()

	ctx := context.Background()
	service := newTestService(t)

	_, err := service.GetLoginPassword(ctx, "showroom", "default")
	require.ErrorIs(t, err, ErrNotFound)

	err = service.SetLoginPassword(ctx, "showroom", "default", LoginPassword{
		AccountId: "organizer",
		Password:  "hunter2",
	})
	require.NoError(t, err)

	creds, err := service.GetLoginPassword(ctx, "showroom", "default")
	require.NoError(t, err)
	require.Equal(t, "organizer", creds.AccountId)
	require.Equal(t, "hunter2", creds.Password)

	// upsert overwrites
	err = service.SetLoginPassword(ctx, "showroom", "default", LoginPassword{
		AccountId: "organizer",
		Password:  "rotated",
	})
	require.NoError(t, err)

	creds, err = service.GetLoginPassword(ctx, "showroom", "default")
	require.NoError(t, err)
	require.Equal(t, "rotated", creds.Password)

	// other namespaces stay invisible
	_, err = service.GetLoginPassword(ctx, "other", "default")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCookieRoundtrip(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:services/keychain")
	defer cleanup()

	ctx := context.Background()
	service := newTestService(t)

	_, err := service.GetCookie(ctx, "showroom", "default")
	require.ErrorIs(t, err, ErrNotFound)

	err = service.SetCookie(ctx, "showroom", "default", "sr_id=abc123; lang=ja")
	require.NoError(t, err)

	value, err := service.GetCookie(ctx, "showroom", "default")
	require.NoError(t, err)
	require.Equal(t, "sr_id=abc123; lang=ja", value)
}
