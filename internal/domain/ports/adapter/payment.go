package adapter

import "context"

// PaymentRequest carries everything a gateway needs to bill a subscription.
type PaymentRequest struct {
	TelegramID   int64
	ChatID       int64
	Devices      int
	DurationDays int
	Price        int
	Currency     string
	IsExtend     bool
	IsChange     bool
}

// PaymentGateway is the port for payment providers.
type PaymentGateway interface {
	Name() string
	Currency() string
	// CreatePayment starts a payment and returns a reference the provider will echo back.
	CreatePayment(ctx context.Context, req PaymentRequest) (string, error)
}
