package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the fulfillment state of an order. It only moves forward.
type OrderStatus string

const (
	OrderStatusNew    OrderStatus = "new"
	OrderStatusPacked OrderStatus = "packed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusPacked,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusNew && next == OrderStatusPacked
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
