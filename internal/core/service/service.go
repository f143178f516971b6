package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/niksmo/shopfront/internal/core/domain"
	"github.com/niksmo/shopfront/internal/core/port"
	"github.com/niksmo/shopfront/internal/core/session"
)

var _ port.Authenticator = (*Service)(nil)
var _ port.Catalog = (*Service)(nil)
var _ port.CartManager = (*Service)(nil)
var _ port.OrderPlacer = (*Service)(nil)
var _ port.Navigator = (*Service)(nil)
var _ port.Starter = (*Service)(nil)

// A Service drives the storefront: it talks to the backend, keeps the
// session and renders every result through the view.
//
// It is safe for concurrent use, but commands are expected to arrive one at
// a time like events from a single UI thread.
type Service struct {
	backend  port.Backend
	session  *session.Session
	view     port.View
	notifier port.Notifier
	events   port.EventPublisher

	mu         sync.Mutex
	page       domain.Page
	viewCtx    context.Context
	cancelView context.CancelFunc

	now func() time.Time
}

// New returns a Service. events may be nil.
func New(
	backend port.Backend,
	session *session.Session,
	view port.View,
	notifier port.Notifier,
	events port.EventPublisher,
) *Service {
	viewCtx, cancel := context.WithCancel(context.Background())
	return &Service{
		backend:    backend,
		session:    session,
		view:       view,
		notifier:   notifier,
		events:     events,
		viewCtx:    viewCtx,
		cancelView: cancel,
		now:        time.Now,
	}
}

// Start renders the initial state: the home page, the product list and the
// cart counter of a restored session.
func (s *Service) Start(ctx context.Context) {
	s.Navigate(ctx, domain.PageHome)
	_ = s.LoadProducts(ctx)
	if s.session.Token() == "" {
		s.view.SetCartCount(0)
		return
	}
	_ = s.LoadCart(ctx)
}

func (s *Service) Session() domain.Session {
	return s.session.Snapshot()
}

// fail reports err to the user and returns it annotated with op. A session
// expiry also forces a logout.
func (s *Service) fail(ctx context.Context, op string, err error, fallback string) error {
	log := slog.With("op", op)

	var be *domain.BackendError
	switch {
	case errors.Is(err, context.Canceled):
		log.Debug("operation abandoned", "err", err)
	case errors.Is(err, domain.ErrSessionExpired):
		log.Warn("session expired", "err", err)
		s.endSession(ctx, "Session expired. Please log in again.")
	case errors.Is(err, domain.ErrConflict):
		log.Warn("concurrent cart update", "err", err)
		s.notifier.Notify("Cart was changed elsewhere, try again")
	case errors.Is(err, domain.ErrConnection):
		log.Error("backend is unreachable", "err", err)
		s.notifier.Notify("Connection error")
	case errors.As(err, &be) && be.Message != "":
		log.Warn("backend refused", "status", be.Status, "err", err)
		s.notifier.Notify(be.Message)
	default:
		log.Error("operation failed", "err", err)
		s.notifier.Notify(fallback)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// requireToken returns the bearer token or, when there is none, tells the
// user to log in and navigates to the login page.
func (s *Service) requireToken(ctx context.Context, op, msg string) (string, error) {
	token := s.session.Token()
	if token != "" {
		return token, nil
	}
	s.notifier.Notify(msg)
	s.Navigate(ctx, domain.PageLogin)
	return "", fmt.Errorf("%s: %w", op, domain.ErrAuthRequired)
}

// publish sends a client event. Failures are logged only.
func (s *Service) publish(ctx context.Context, e domain.ClientEvent) {
	const op = "Service.publish"

	if s.events == nil {
		return
	}

	snap := s.session.Snapshot()
	e.Username = snap.Username
	e.ClientID = snap.ClientID
	e.At = s.now()

	if err := s.events.Publish(ctx, e); err != nil {
		slog.Warn("failed to publish client event",
			"op", op, "kind", e.Kind, "err", err)
	}
}
