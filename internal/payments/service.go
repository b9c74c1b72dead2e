package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/internal/orders"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
	"github.com/angelmondragon/farmmarket-backend/pkg/metrics"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox/payloads"
	pkgpayments "github.com/angelmondragon/farmmarket-backend/pkg/payments"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type signatureVerifier interface {
	Verify(providerOrderID, providerPaymentID, signature string) bool
}

// VerifyInput is a provider checkout callback forwarded by the buyer's client.
type VerifyInput struct {
	OrderID           uuid.UUID
	BuyerID           uuid.UUID
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
}

// Service settles online orders from signed provider callbacks.
type Service interface {
	Verify(ctx context.Context, input VerifyInput) (*orders.OrderDTO, error)
}

type service struct {
	repo    orders.Repository
	tx      txRunner
	signer  signatureVerifier
	outbox  outboxPublisher
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs the payment verification service.
func NewService(repo orders.Repository, tx txRunner, signer *pkgpayments.Signer, outboxSvc outboxPublisher, m *metrics.PaymentMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if signer == nil {
		return nil, fmt.Errorf("payment signer required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		signer:  signer,
		outbox:  outboxSvc,
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Verify checks the callback signature and marks the order paid exactly once.
// Replaying the same payment id returns the paid order unchanged.
func (s *service) Verify(ctx context.Context, input VerifyInput) (*orders.OrderDTO, error) {
	providerOrderID := strings.TrimSpace(input.ProviderOrderID)
	paymentID := strings.TrimSpace(input.ProviderPaymentID)
	if input.OrderID == uuid.Nil || providerOrderID == "" || paymentID == "" || strings.TrimSpace(input.Signature) == "" {
		s.metrics.IncVerification(metrics.PaymentResultRejected)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id, provider order id, payment id and signature are required")
	}

	if !s.signer.Verify(providerOrderID, paymentID, input.Signature) {
		s.metrics.IncVerification(metrics.PaymentResultMismatch)
		if s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, input.OrderID.String())
			logCtx = s.logg.WithFields(logCtx, map[string]any{
				"buyer_id":          input.BuyerID.String(),
				"provider_order_id": providerOrderID,
				"security_event":    "payment_signature_mismatch",
			})
			s.logg.Warn(logCtx, "payment signature mismatch")
		}
		return nil, pkgerrors.New(pkgerrors.CodeSignatureMismatch, "payment signature mismatch")
	}

	result := metrics.PaymentResultVerified
	var settled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if input.BuyerID != uuid.Nil && order.BuyerID != input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}
		if order.PaymentMode != enums.PaymentModeOnline {
			return pkgerrors.New(pkgerrors.CodeValidation, "order is not an online payment")
		}
		if order.PaymentOrderID == nil || *order.PaymentOrderID != providerOrderID {
			return pkgerrors.New(pkgerrors.CodeValidation, "provider order id does not match order")
		}

		if order.PaymentStatus == enums.PaymentStatusPaid {
			if err := alreadyPaid(order, paymentID); err != nil {
				return err
			}
			result = metrics.PaymentResultDuplicate
			settled = order
			return nil
		}

		at := s.now().UTC()
		ok, err := repo.MarkPaid(ctx, order.ID, providerOrderID, paymentID, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark order paid")
		}
		if !ok {
			current, err := repo.FindByID(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			if err := alreadyPaid(current, paymentID); err != nil {
				return err
			}
			result = metrics.PaymentResultDuplicate
			settled = current
			return nil
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentVerified,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.BuyerID, Role: string(enums.UserRoleBuyer)},
			Data: payloads.PaymentVerifiedEvent{
				OrderID:        order.ID,
				BuyerID:        order.BuyerID,
				PaymentOrderID: providerOrderID,
				PaymentID:      paymentID,
				Amount:         order.TotalAmount.StringFixed(2),
				PaidAt:         at,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment_verified")
		}

		order.PaymentStatus = enums.PaymentStatusPaid
		order.PaymentID = &paymentID
		order.PaidAt = &at
		settled = order
		return nil
	})
	if err != nil {
		s.metrics.IncVerification(metrics.PaymentResultRejected)
		return nil, err
	}

	s.metrics.IncVerification(result)
	if s.logg != nil && result == metrics.PaymentResultVerified {
		s.logg.Info(s.logg.WithOrderID(ctx, settled.ID.String()), "payment verified")
	}
	dto := orders.ToOrderDTO(*settled)
	return &dto, nil
}

func alreadyPaid(order *models.Order, paymentID string) error {
	if order.PaymentStatus != enums.PaymentStatusPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment state changed concurrently")
	}
	if order.PaymentID != nil && *order.PaymentID == paymentID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid with a different payment")
}
