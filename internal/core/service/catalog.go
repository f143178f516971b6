package service

import (
	"context"
	"fmt"
	"log/slog"
)

// LoadProducts fetches the product list and renders it. On failure the
// rendered list is left as it was.
func (s *Service) LoadProducts(ctx context.Context) error {
	const op = "Service.LoadProducts"

	ctx, done := s.viewScope(ctx)
	defer done()

	ps, err := s.backend.Products(ctx)
	if err != nil {
		return s.fail(ctx, op, err, "Failed to load products")
	}
	if err := ctx.Err(); err != nil {
		slog.Debug("dropping products of a left page", "op", op)
		return fmt.Errorf("%s: %w", op, err)
	}

	s.view.RenderProducts(ps)
	return nil
}
