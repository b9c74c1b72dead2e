package payments

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/farmmarket-backend/pkg/config"
	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
)

// Gateway creates provider-side payment orders for online checkout.
type Gateway interface {
	// CreateIntent registers amountMinor (paise for INR) with the provider and
	// returns the provider order id.
	CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (string, error)
}

// NewGateway selects the gateway named by cfg.Provider.
func NewGateway(ctx context.Context, cfg config.PaymentConfig, logg *logger.Logger) (Gateway, error) {
	switch cfg.NormalizedProvider() {
	case config.PaymentProviderLocal:
		if logg != nil {
			logg.Info(ctx, "payment gateway initialized (local)")
		}
		return LocalGateway{}, nil
	case config.PaymentProviderRazorpay:
		gw, err := NewRazorpayGateway(cfg, &http.Client{Timeout: cfg.Timeout})
		if err != nil {
			return nil, err
		}
		if logg != nil {
			logg.Info(ctx, "payment gateway initialized (razorpay)")
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", cfg.Provider)
	}
}

// LocalGateway issues synthetic provider order ids for dev and tests.
type LocalGateway struct{}

func (LocalGateway) CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	if amountMinor <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}
	return "order_" + uuid.NewString(), nil
}
