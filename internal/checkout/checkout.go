// Package checkout drives order creation and payment-side order processing.
// Payment capture itself happens in the externally hosted widget; this
// client only submits the resulting order.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/davrell/shopfront/internal/api"
)

// Client is the slice of the API client the service needs.
type Client interface {
	CreateOrder(ctx context.Context, productID int64) (api.CartMutation, error)
	ProcessOrder(ctx context.Context, info api.ShippingInfo, transactionID string) error
	GuestProcessOrder(ctx context.Context, info api.ShippingInfo, transactionID string) error
}

// CartState receives the cart-side effects of order operations.
type CartState interface {
	ApplyMutation(ctx context.Context, productID int64, resp api.CartMutation)
	Fetch(ctx context.Context) error
	FailWith(ctx context.Context, msg string)
	ResetAfterOrder(ctx context.Context)
	ClearGuest(ctx context.Context)
}

// Service coordinates checkout calls with the cart engine.
type Service struct {
	client Client
	cart   CartState
	log    *slog.Logger
	newID  func() string
}

// New builds a Service. Transaction ids are client-generated UUIDs so a
// resubmitted order is recognizable server-side.
func New(client Client, cart CartState, log *slog.Logger) *Service {
	return &Service{client: client, cart: cart, log: log, newID: uuid.NewString}
}

// AddToOrder ensures a pending order exists for the user and adds the
// product to it. When the response carries the updated line it merges into
// the cart snapshot directly; otherwise the cart is refetched. A failure
// resets the cart with the error recorded.
func (s *Service) AddToOrder(ctx context.Context, productID int64) error {
	resp, err := s.client.CreateOrder(ctx, productID)
	if err != nil {
		s.cart.FailWith(ctx, err.Error())
		return fmt.Errorf("create order: %w", err)
	}
	if resp.UpdatedItem != nil {
		s.cart.ApplyMutation(ctx, productID, resp)
		return nil
	}
	if err := s.cart.Fetch(ctx); err != nil {
		return fmt.Errorf("refresh cart after order: %w", err)
	}
	return nil
}

// Process completes the authenticated checkout and clears the local cart
// snapshot on success.
func (s *Service) Process(ctx context.Context, info api.ShippingInfo) error {
	txID := s.newID()
	if err := s.client.ProcessOrder(ctx, info, txID); err != nil {
		return fmt.Errorf("process order: %w", err)
	}
	s.log.Info("order processed", "transaction_id", txID)
	s.cart.ResetAfterOrder(ctx)
	return nil
}

// GuestProcess completes checkout for a guest. The server reads the cart
// cookie from the request and clears it; the client mirrors that by
// clearing its ledger and snapshot on success.
func (s *Service) GuestProcess(ctx context.Context, info api.ShippingInfo) error {
	txID := s.newID()
	if err := s.client.GuestProcessOrder(ctx, info, txID); err != nil {
		return fmt.Errorf("process guest order: %w", err)
	}
	s.log.Info("guest order processed", "transaction_id", txID)
	s.cart.ClearGuest(ctx)
	return nil
}
