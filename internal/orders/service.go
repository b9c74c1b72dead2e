package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/internal/catalog"
	"github.com/angelmondragon/farmmarket-backend/internal/inventory"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
	"github.com/angelmondragon/farmmarket-backend/pkg/metrics"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/farmmarket-backend/pkg/payments"
	"github.com/angelmondragon/farmmarket-backend/pkg/visibility"
)

const defaultCurrency = "INR"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order placement and fulfilment operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID) ([]OrderDTO, error)
	ListFarmerOrders(ctx context.Context, farmerID uuid.UUID) ([]FarmerOrderDTO, error)
	UpdateOrderStatus(ctx context.Context, actor Actor, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
}

// ServiceParams wires the order service collaborators.
type ServiceParams struct {
	Repo         Repository
	Tx           txRunner
	Ledger       inventory.Ledger
	Gateway      payments.Gateway
	Outbox       outboxPublisher
	Metrics      *metrics.OrderMetrics
	Logger       *logger.Logger
	Currency     string
	PaymentKeyID string
	// RadiusKm bounds how far a buyer may order from. Zero means the catalog
	// default.
	RadiusKm float64
	Now      func() time.Time
}

type service struct {
	repo         Repository
	tx           txRunner
	ledger       inventory.Ledger
	gateway      payments.Gateway
	outbox       outboxPublisher
	metrics      *metrics.OrderMetrics
	logg         *logger.Logger
	currency     string
	paymentKeyID string
	radiusKm     float64
	now          func() time.Time
}

// NewService constructs the order service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	radius := p.RadiusKm
	if radius <= 0 {
		radius = catalog.DefaultRadiusKm
	}
	return &service{
		repo:         p.Repo,
		tx:           p.Tx,
		ledger:       p.Ledger,
		gateway:      p.Gateway,
		outbox:       p.Outbox,
		metrics:      p.Metrics,
		logg:         p.Logger,
		currency:     currency,
		paymentKeyID: p.PaymentKeyID,
		radiusKm:     radius,
		now:          now,
	}, nil
}

// CreateOrder validates stock for every line, prices the order from the rows
// read inside the transaction, registers an online payment with the gateway
// when needed, then writes the order and decrements stock. Any failure rolls
// the whole order back.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	dto, err := s.createOrder(ctx, input)
	if err != nil {
		s.metrics.IncFailure(string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.IncCreated(string(dto.PaymentMode))
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, dto.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"payment_mode": dto.PaymentMode,
			"total_amount": dto.TotalAmount.StringFixed(2),
			"item_count":   len(dto.Items),
		})
		s.logg.Info(logCtx, "order created")
	}
	return dto, nil
}

func (s *service) createOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if !input.PaymentMode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment mode must be cod or online")
	}
	lines := make([]inventory.Line, len(input.Lines))
	for i, l := range input.Lines {
		lines[i] = inventory.Line{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	if _, err := inventory.MergeLines(lines); err != nil {
		return nil, err
	}

	var (
		created models.Order
		intent  *PaymentIntentDTO
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reservations, err := s.ledger.Check(ctx, tx, lines)
		if err != nil {
			return err
		}
		if err := s.ensurePurchasable(ctx, tx, input.BuyerID, reservations); err != nil {
			return err
		}

		order := models.Order{
			ID:            uuid.New(),
			BuyerID:       input.BuyerID,
			PaymentMode:   input.PaymentMode,
			PaymentStatus: enums.PaymentStatusPending,
			OrderStatus:   enums.OrderStatusNew,
			Currency:      s.currency,
		}
		items := make([]models.OrderItem, 0, len(reservations))
		farmerIDs := make([]uuid.UUID, 0, len(reservations))
		seenFarmer := map[uuid.UUID]bool{}
		for _, res := range reservations {
			productID := res.Product.ID
			lineTotal := res.LineTotal()
			order.TotalAmount = order.TotalAmount.Add(lineTotal)
			items = append(items, models.OrderItem{
				OrderID:     order.ID,
				ProductID:   &productID,
				FarmerID:    res.Product.FarmerID,
				ProductName: res.Product.Name,
				Category:    res.Product.Category,
				UnitPrice:   res.Product.Price,
				Quantity:    res.Quantity,
				LineTotal:   lineTotal,
			})
			if !seenFarmer[res.Product.FarmerID] {
				seenFarmer[res.Product.FarmerID] = true
				farmerIDs = append(farmerIDs, res.Product.FarmerID)
			}
		}
		order.TotalAmount = order.TotalAmount.Round(2)

		if input.PaymentMode == enums.PaymentModeOnline {
			amountMinor := payments.MinorUnits(order.TotalAmount)
			receipt := fmt.Sprintf("order_%d", s.now().Unix())
			providerOrderID, err := s.gateway.CreateIntent(ctx, amountMinor, s.currency, receipt)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
			}
			order.PaymentOrderID = &providerOrderID
			intent = &PaymentIntentDTO{
				ProviderOrderID: providerOrderID,
				AmountMinor:     amountMinor,
				Currency:        s.currency,
				KeyID:           s.paymentKeyID,
			}
		}

		order.Items = items
		if err := s.repo.WithTx(tx).Create(ctx, &order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}
		if err := s.ledger.Commit(ctx, tx, reservations); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: string(enums.UserRoleBuyer)},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				BuyerID:     input.BuyerID,
				FarmerIDs:   farmerIDs,
				PaymentMode: order.PaymentMode,
				TotalAmount: order.TotalAmount.StringFixed(2),
				Currency:    order.Currency,
				ItemCount:   len(items),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_created")
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := ToOrderDTO(created)
	dto.Payment = intent
	return &dto, nil
}

// ensurePurchasable rejects lines the buyer could not see in the catalog:
// the farmer must be approved and farm within the radius of the buyer's
// stored location.
func (s *service) ensurePurchasable(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID, reservations []inventory.Reservation) error {
	var buyer models.User
	if err := tx.WithContext(ctx).Preload("BuyerProfile").First(&buyer, "id = ?", buyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}
	origin, ok := buyer.BuyerProfile.Location()
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer location required").
			WithDetails(map[string]string{"location": "log in with a location fix before ordering"})
	}

	ids := make([]uuid.UUID, 0, len(reservations))
	for _, res := range reservations {
		ids = append(ids, res.Product.FarmerID)
	}
	var farmers []models.User
	if err := tx.WithContext(ctx).Preload("FarmerProfile").Where("id IN ?", ids).Find(&farmers).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farmers")
	}
	byID := make(map[uuid.UUID]*models.User, len(farmers))
	for i := range farmers {
		byID[farmers[i].ID] = &farmers[i]
	}
	for i := range reservations {
		product := &reservations[i].Product
		farmer := byID[product.FarmerID]
		if err := visibility.EnsureProductVisible(product, farmer); err != nil {
			return err
		}
		farm, ok := farmer.FarmerProfile.Location()
		if !ok || !geo.WithinRadius(origin, farm, s.radiusKm) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not available at your location").
				WithDetails(map[string]any{"product_id": product.ID.String()})
		}
	}
	return nil
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID) ([]OrderDTO, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	rows, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	out := make([]OrderDTO, len(rows))
	for i, row := range rows {
		out[i] = ToOrderDTO(row)
	}
	return out, nil
}

func (s *service) ListFarmerOrders(ctx context.Context, farmerID uuid.UUID) ([]FarmerOrderDTO, error) {
	if farmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farmer id required")
	}
	rows, err := s.repo.ListByFarmer(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list farmer orders")
	}

	buyerIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		buyerIDs = append(buyerIDs, row.BuyerID)
	}
	buyers, err := s.repo.FindBuyers(ctx, buyerIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyers")
	}

	out := make([]FarmerOrderDTO, 0, len(rows))
	for _, row := range rows {
		entry := FarmerOrderDTO{
			OrderID:       row.ID,
			PaymentMode:   row.PaymentMode,
			PaymentStatus: row.PaymentStatus,
			OrderStatus:   row.OrderStatus,
			Items:         toItemDTOs(row.Items),
			CreatedAt:     row.CreatedAt,
		}
		if buyer, ok := buyers[row.BuyerID]; ok {
			entry.Buyer = toBuyerContact(&buyer)
		} else {
			entry.Buyer = BuyerContact{ID: row.BuyerID}
		}
		for _, item := range row.Items {
			entry.Subtotal = entry.Subtotal.Add(item.LineTotal)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, actor Actor, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if status != enums.OrderStatusPacked {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only packed is accepted")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return mapOrderLookup(err)
		}
		if err := s.ensureCanFulfil(ctx, repo, actor, orderID); err != nil {
			return err
		}
		if !order.OrderStatus.CanTransitionTo(status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already packed").
				WithDetails(map[string]any{"order_status": order.OrderStatus})
		}

		at := s.now().UTC()
		ok, err := repo.MarkPacked(ctx, orderID, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: pack order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already packed")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPacked,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderPackedEvent{
				OrderID:  orderID,
				BuyerID:  order.BuyerID,
				PackedBy: actor.UserID,
				PackedAt: at,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_packed")
		}

		order.OrderStatus = enums.OrderStatusPacked
		order.PackedAt = &at
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPacked()
	dto := ToOrderDTO(*updated)
	return &dto, nil
}

func (s *service) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderLookup(err)
	}

	switch actor.Role {
	case enums.UserRoleAdmin:
	case enums.UserRoleBuyer:
		if order.BuyerID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}
	case enums.UserRoleFarmer:
		involved := false
		for _, item := range order.Items {
			if item.FarmerID == actor.UserID {
				involved = true
				break
			}
		}
		if !involved {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order has no items from this farmer")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
	}

	dto := ToOrderDTO(*order)
	return &dto, nil
}

func (s *service) ensureCanFulfil(ctx context.Context, repo Repository, actor Actor, orderID uuid.UUID) error {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return nil
	case enums.UserRoleFarmer:
		ok, err := repo.HasFarmerItem(ctx, orderID, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order ownership")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order has no items from this farmer")
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can update order status")
	}
}

func mapOrderLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
