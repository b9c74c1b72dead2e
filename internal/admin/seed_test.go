package admin

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/farmmarket-backend/internal/users"
	"github.com/angelmondragon/farmmarket-backend/pkg/config"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
	"github.com/angelmondragon/farmmarket-backend/pkg/security"
)

func seedPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func TestEnsureAdminCreatesOnce(t *testing.T) {
	client := dbtest.Open(t, t.Name())
	repo := users.NewRepository(client.DB())
	logg := logger.New(logger.Options{ServiceName: "test-seed", Output: io.Discard})
	cfg := config.AdminConfig{Email: " Root@Example.com ", Password: "secret1", Name: "Root"}

	first, err := EnsureAdmin(context.Background(), repo, cfg, seedPasswordConfig(), logg)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, "root@example.com", first.Email)
	require.Equal(t, enums.UserRoleAdmin, first.Role)
	require.True(t, first.Approved)

	ok, err := security.VerifyPassword("secret1", first.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	second, err := EnsureAdmin(context.Background(), repo, cfg, seedPasswordConfig(), logg)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, client.DB().Model(&models.User{}).Where("role = ?", enums.UserRoleAdmin).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestEnsureAdminDisabledWithoutPassword(t *testing.T) {
	client := dbtest.Open(t, t.Name())
	repo := users.NewRepository(client.DB())

	user, err := EnsureAdmin(context.Background(), repo, config.AdminConfig{Email: "root@example.com"}, seedPasswordConfig(), logger.Nop())
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestEnsureAdminRejectsNonAdminEmail(t *testing.T) {
	client := dbtest.Open(t, t.Name())
	repo := users.NewRepository(client.DB())
	require.NoError(t, repo.Create(context.Background(), &models.User{
		Name:         "Buyer",
		Email:        "root@example.com",
		PasswordHash: "hash",
		Role:         enums.UserRoleBuyer,
		Approved:     true,
	}))

	_, err := EnsureAdmin(context.Background(), repo, config.AdminConfig{Email: "root@example.com", Password: "secret1"}, seedPasswordConfig(), logger.Nop())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}
