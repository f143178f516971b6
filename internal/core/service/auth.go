package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/niksmo/shopfront/internal/core/domain"
)

// ValidateApplication checks the client credentials with the backend and,
// on success, keeps the client id for the following login.
func (s *Service) ValidateApplication(ctx context.Context, clientID, secret string) error {
	const op = "Service.ValidateApplication"

	clientID = strings.TrimSpace(clientID)
	secret = strings.TrimSpace(secret)
	err := domain.RequireFields(map[string]string{
		"clientID":     clientID,
		"clientSecret": secret,
	})
	if err != nil {
		s.notifier.Notify("Fill in clientID and clientSecret")
		return fmt.Errorf("%s: %w", op, err)
	}

	err = s.backend.Auth(ctx, domain.Credentials{
		ClientID: clientID, ClientSecret: secret,
	})
	if err != nil {
		s.view.ShowAuthMessage(authFailureMessage(err), false)
		slog.Warn("application rejected", "op", op, "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	s.session.SetClientID(clientID)
	s.view.ShowAuthMessage("Application validated. Now log in.", true)
	s.notifier.Notify("Application validated")
	s.Navigate(ctx, domain.PageLogin)
	return nil
}

func authFailureMessage(err error) string {
	var be *domain.BackendError
	switch {
	case errors.Is(err, domain.ErrConnection):
		return "Connection error"
	case errors.As(err, &be) && be.Message != "":
		return be.Message
	default:
		return "Failed to validate"
	}
}

// Register creates a backend account and prepares the login form. It does
// not authenticate.
func (s *Service) Register(ctx context.Context, r domain.Registration) error {
	const op = "Service.Register"

	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	err := domain.RequireFields(map[string]string{
		"username": r.Username,
		"email":    r.Email,
		"password": r.Password,
	})
	if err != nil {
		s.notifier.Notify("Fill in all fields")
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.backend.Register(ctx, r); err != nil {
		return s.fail(ctx, op, err, "Registration failed")
	}

	s.notifier.Notify("Account created, please log in")
	s.view.PrefillLogin(r.Username)
	s.Navigate(ctx, domain.PageLogin)
	return nil
}

// Login requires a validated application. On success the token is kept,
// the products page is shown and the cart is loaded.
func (s *Service) Login(ctx context.Context, username, password string) error {
	const op = "Service.Login"
	log := slog.With("op", op)

	clientID := s.session.ClientID()
	if clientID == "" {
		s.notifier.Notify("Validate the application first (clientID/clientSecret)")
		s.Navigate(ctx, domain.PageAppAuth)
		return fmt.Errorf("%s: %w", op, domain.ErrClientNotValidated)
	}

	username = strings.TrimSpace(username)
	err := domain.RequireFields(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		s.notifier.Notify("Username and password are required")
		return fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.backend.Login(ctx, domain.Login{
		ClientID: clientID, Username: username, Password: password,
	})
	if err != nil {
		return s.fail(ctx, op, err, "Login failed")
	}

	if err := s.session.SetToken(ctx, token, username); err != nil {
		log.Warn("token is kept in memory only", "err", err)
	}

	log.Info("user logged in", "user", username)
	s.publish(ctx, domain.ClientEvent{Kind: domain.EventLoggedIn})
	s.notifier.Notify("Logged in")
	s.Navigate(ctx, domain.PageProducts)
	_ = s.LoadCart(ctx)
	return nil
}

// Logout forgets the session and returns to the application auth page.
func (s *Service) Logout(ctx context.Context) {
	s.endSession(ctx, "Logged out")
}

func (s *Service) endSession(ctx context.Context, msg string) {
	const op = "Service.endSession"

	ctx = context.WithoutCancel(ctx)
	s.publish(ctx, domain.ClientEvent{Kind: domain.EventLoggedOut})
	if err := s.session.Clear(ctx); err != nil {
		slog.Error("failed to clear persisted token", "op", op, "err", err)
	}
	s.view.SetCartCount(0)
	s.notifier.Notify(msg)
	s.Navigate(ctx, domain.PageAppAuth)
}
