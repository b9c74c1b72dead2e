package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/internal/catalog"
	"github.com/angelmondragon/farmmarket-backend/internal/orders"
	"github.com/angelmondragon/farmmarket-backend/internal/users"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/farmmarket-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the admin surface: farmer approval, account removal and stats.
type Service interface {
	ListPendingFarmers(ctx context.Context) ([]users.UserDTO, error)
	SetFarmerApproval(ctx context.Context, adminID, userID uuid.UUID, approved bool) (*users.UserDTO, error)
	ListAllUsers(ctx context.Context, params pagination.Params) (*users.UserPage, error)
	DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error
	GetStats(ctx context.Context) (*Stats, error)
}

// ServiceParams wires the admin service collaborators.
type ServiceParams struct {
	Users    *users.Repository
	Products *catalog.Repository
	Orders   orders.Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Logger   *logger.Logger
}

type service struct {
	users    *users.Repository
	products *catalog.Repository
	orders   orders.Repository
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
}

func NewService(p ServiceParams) (Service, error) {
	if p.Users == nil || p.Products == nil || p.Orders == nil {
		return nil, fmt.Errorf("users, products and orders repositories required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		users:    p.Users,
		products: p.Products,
		orders:   p.Orders,
		tx:       p.Tx,
		outbox:   p.Outbox,
		logg:     p.Logger,
	}, nil
}

func (s *service) ListPendingFarmers(ctx context.Context) ([]users.UserDTO, error) {
	rows, err := s.users.ListPendingFarmers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending farmers")
	}
	return users.FromModels(rows), nil
}

// SetFarmerApproval moves a farmer between pending and approved. Only farmers
// carry an approval state that admins may change.
func (s *service) SetFarmerApproval(ctx context.Context, adminID, userID uuid.UUID, approved bool) (*users.UserDTO, error) {
	var out *users.UserDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return mapUserLookup(err)
		}
		if user.Role != enums.UserRoleFarmer {
			return pkgerrors.New(pkgerrors.CodeValidation, "only farmers can be approved").
				WithDetails(map[string]any{"role": user.Role})
		}
		if user.Approved != approved {
			if err := repo.SetApproved(ctx, userID, approved); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: set approval")
			}
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventFarmerApprovalChanged,
			AggregateType: enums.AggregateUser,
			AggregateID:   userID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.UserRoleAdmin)},
			Data: payloads.FarmerApprovalChangedEvent{
				FarmerID:  userID,
				Approved:  approved,
				DecidedBy: adminID,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit farmer_approval_changed")
		}
		user.Approved = approved
		out = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, adminID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"farmer_id": userID.String(), "approved": approved})
		s.logg.Info(logCtx, "farmer approval changed")
	}
	return out, nil
}

func (s *service) ListAllUsers(ctx context.Context, params pagination.Params) (*users.UserPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.users.ListPage(ctx, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	rows, next := pagination.Split(rows, params.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	return &users.UserPage{Items: users.FromModels(rows), Cursor: next}, nil
}

// DeleteUser removes an account with everything it owns: a buyer's orders, a
// farmer's products. Order lines that referenced a deleted product keep their
// snapshot and lose the product link.
func (s *service) DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error {
	if adminID == userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admins cannot delete their own account")
	}
	var role enums.UserRole
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return mapUserLookup(err)
		}
		role = user.Role

		switch user.Role {
		case enums.UserRoleBuyer:
			if err := s.orders.WithTx(tx).DeleteByBuyer(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete buyer orders")
			}
		case enums.UserRoleFarmer:
			if err := s.products.WithTx(tx).DeleteByFarmer(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete farmer products")
			}
		}
		if err := repo.Delete(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete user")
		}

		return s.emitDeleted(ctx, tx, adminID, user.ID, user.Role)
	})
	if err != nil {
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, adminID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"deleted_user_id": userID.String(), "deleted_role": role})
		s.logg.Info(logCtx, "user deleted")
	}
	return nil
}

func (s *service) emitDeleted(ctx context.Context, tx *gorm.DB, adminID, userID uuid.UUID, role enums.UserRole) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventUserDeleted,
		AggregateType: enums.AggregateUser,
		AggregateID:   userID,
		Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.UserRoleAdmin)},
		Data: payloads.UserDeletedEvent{
			UserID:    userID,
			Role:      role,
			DeletedBy: adminID,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit user_deleted")
	}
	return nil
}

// GetStats counts approved farmers separately from those awaiting approval.
func (s *service) GetStats(ctx context.Context) (*Stats, error) {
	approved, pending := true, false
	var stats Stats
	var err error
	if stats.TotalFarmers, err = s.users.CountByRole(ctx, enums.UserRoleFarmer, &approved); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count farmers")
	}
	if stats.PendingApprovals, err = s.users.CountByRole(ctx, enums.UserRoleFarmer, &pending); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending farmers")
	}
	if stats.TotalBuyers, err = s.users.CountByRole(ctx, enums.UserRoleBuyer, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count buyers")
	}
	if stats.TotalProducts, err = s.products.Count(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}
	if stats.TotalOrders, err = s.orders.Count(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	return &stats, nil
}

func mapUserLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
