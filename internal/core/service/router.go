package service

import (
	"context"
	"log/slog"

	"github.com/niksmo/shopfront/internal/core/domain"
)

// Navigate shows page and hides the others. Showing the products or the cart
// page loads it. The previous page's pending loads are canceled.
func (s *Service) Navigate(ctx context.Context, page domain.Page) {
	const op = "Service.Navigate"

	if !page.Valid() {
		slog.Warn("page not found", "op", op, "page", page)
		return
	}

	viewCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	s.cancelView()
	s.page = page
	s.viewCtx = viewCtx
	s.cancelView = cancel
	s.mu.Unlock()

	s.view.ShowPage(page)

	switch page {
	case domain.PageProducts:
		_ = s.LoadProducts(ctx)
	case domain.PageCart:
		_ = s.LoadCart(ctx)
	}
}

func (s *Service) CurrentPage() domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// viewScope derives from ctx a context that is also canceled when the
// currently visible page is left.
func (s *Service) viewScope(ctx context.Context) (context.Context, context.CancelFunc) {
	s.mu.Lock()
	viewCtx := s.viewCtx
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(viewCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
