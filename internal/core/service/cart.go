package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/shopfront/internal/core/domain"
	"github.com/niksmo/shopfront/pkg/retry"
)

// changeQtyRetry bounds the read-modify-write loop of ChangeQty when the
// backend rejects a stale cart version.
var changeQtyRetry = retry.RetryConfig{
	MaxAttempts: 3,
	Backoff:     retry.ExponentialBackoff(50 * time.Millisecond),
	ShouldRetry: func(err error) bool {
		return errors.Is(err, domain.ErrConflict)
	},
}

// AddItem adds qty units of a product and re-renders the cart as the
// backend reports it.
func (s *Service) AddItem(ctx context.Context, id domain.ProductID, qty int) error {
	const op = "Service.AddItem"

	token, err := s.requireToken(ctx, op, "Log in to add items to the cart")
	if err != nil {
		return err
	}

	if qty <= 0 {
		s.notifier.Notify("Quantity must be positive")
		return fmt.Errorf("%s: %w", op, &domain.ValidationError{Fields: []string{"qty"}})
	}

	cart, err := s.backend.AddCartItem(ctx, token, domain.CartLine{
		ProductID: id, Qty: qty,
	})
	if err != nil {
		return s.fail(ctx, op, err, "Failed to add item")
	}

	s.notifier.Notify("Added to cart")
	s.view.SetCartCount(cart.TotalCount())
	s.publish(ctx, domain.ClientEvent{
		Kind: domain.EventProductAdded, ProductID: id, Qty: qty,
	})

	_ = s.LoadCart(ctx)
	return nil
}

// LoadCart fetches and renders the cart. Without a token it renders the
// log-in prompt and makes no request.
func (s *Service) LoadCart(ctx context.Context) error {
	const op = "Service.LoadCart"

	if s.session.Token() == "" {
		s.view.SetCartCount(0)
		s.view.RenderLoginRequired()
		return fmt.Errorf("%s: %w", op, domain.ErrAuthRequired)
	}

	ctx, done := s.viewScope(ctx)
	defer done()

	cart, err := s.backend.Cart(ctx, s.session.Token())
	if err != nil {
		return s.fail(ctx, op, err, "Failed to load cart")
	}
	if err := ctx.Err(); err != nil {
		slog.Debug("dropping cart of a left page", "op", op)
		return fmt.Errorf("%s: %w", op, err)
	}

	s.renderCart(cart)
	return nil
}

// ChangeQty adds delta to the quantity of a product line, never below zero,
// and stores the resulting cart. Lines that reach zero are removed.
//
// The cart is read, modified and written back. When the backend versions
// carts a concurrent change is detected and the cycle is repeated; otherwise
// the last write wins.
func (s *Service) ChangeQty(ctx context.Context, id domain.ProductID, delta int) error {
	const op = "Service.ChangeQty"

	token, err := s.requireToken(ctx, op, "Log in to change the cart")
	if err != nil {
		return err
	}

	cart, err := retry.DoWithResult(ctx, changeQtyRetry,
		func() (domain.Cart, error) {
			current, err := s.backend.Cart(ctx, token)
			if err != nil {
				return domain.Cart{}, err
			}
			next := domain.Cart{
				Lines:   current.ApplyDelta(id, delta),
				Version: current.Version,
			}
			return s.backend.ReplaceCart(ctx, token, next)
		},
	)
	if err != nil {
		return s.fail(ctx, op, err, "Failed to update cart")
	}

	s.notifier.Notify("Cart updated")
	s.renderCart(cart)
	s.publish(ctx, domain.ClientEvent{
		Kind: domain.EventCartChanged, ProductID: id, Qty: delta,
	})
	return nil
}

// ClearCart empties the cart. Clearing an empty cart succeeds.
func (s *Service) ClearCart(ctx context.Context) error {
	const op = "Service.ClearCart"

	token, err := s.requireToken(ctx, op, "Log in first")
	if err != nil {
		return err
	}

	if err := s.backend.ClearCart(ctx, token); err != nil {
		return s.fail(ctx, op, err, "Failed to clear cart")
	}

	s.notifier.Notify("Cart emptied")
	s.renderCart(domain.Cart{})
	s.publish(ctx, domain.ClientEvent{Kind: domain.EventCartCleared})
	return nil
}

// renderCart is the single path through which cart state reaches the view.
func (s *Service) renderCart(cart domain.Cart) {
	s.view.RenderCart(cart)
	s.view.SetCartCount(cart.TotalCount())
}
