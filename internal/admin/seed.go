package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/farmmarket-backend/internal/users"
	"github.com/angelmondragon/farmmarket-backend/pkg/config"
	"github.com/angelmondragon/farmmarket-backend/pkg/db"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
	"github.com/angelmondragon/farmmarket-backend/pkg/security"
)

// EnsureAdmin creates the bootstrap admin described by cfg unless an account
// with that email already exists. It returns nil, nil when seeding is off.
// An existing non-admin account under the same email is a conflict.
func EnsureAdmin(ctx context.Context, repo *users.Repository, cfg config.AdminConfig, pw config.PasswordConfig, logg *logger.Logger) (*models.User, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}

	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	ctx = logg.WithField(ctx, "admin_email", email)

	existing, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != enums.UserRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "seed admin email belongs to a non-admin account")
		}
		logg.Debug(ctx, "admin.seed.exists")
		return existing, nil
	case !db.IsNotFound(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup seed admin")
	}

	hash, err := security.HashPassword(cfg.Password, pw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash seed admin password")
	}

	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "Administrator"
	}
	admin := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleAdmin,
		Approved:     true,
	}
	if err := repo.Create(ctx, admin); err != nil {
		if db.IsUniqueViolation(err, "") {
			// another instance won the race
			return repo.FindByEmail(ctx, email)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create seed admin")
	}

	logg.Info(ctx, "admin.seed.created")
	return admin, nil
}
