package service

import (
	"context"
	"log/slog"

	"github.com/niksmo/shopfront/internal/core/domain"
)

// PlaceOrder checks out the server-side cart. The rendered cart is cleared
// only when the order is accepted.
func (s *Service) PlaceOrder(ctx context.Context) error {
	const op = "Service.PlaceOrder"

	token, err := s.requireToken(ctx, op, "Log in before checking out")
	if err != nil {
		return err
	}

	order, err := s.backend.Checkout(ctx, token)
	if err != nil {
		return s.fail(ctx, op, err, "Checkout failed")
	}

	slog.Info("order placed", "op", op, "order_id", order.ID)
	s.notifier.Notify("Order placed! ID: " + order.ID)
	s.renderCart(domain.Cart{})
	s.publish(ctx, domain.ClientEvent{
		Kind: domain.EventOrderPlaced, OrderID: order.ID,
	})
	s.Navigate(ctx, domain.PageHome)
	return nil
}
