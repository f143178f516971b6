package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niksmo/shopfront/internal/adapter/tokenstore/memory"
	"github.com/niksmo/shopfront/internal/core/domain"
	"github.com/niksmo/shopfront/internal/core/port"
	"github.com/niksmo/shopfront/internal/core/service"
	"github.com/niksmo/shopfront/internal/core/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type harness struct {
	svc      *service.Service
	session  *session.Session
	view     *recordingView
	notifier *recordingNotifier
}

func newHarness(backend port.Backend, events port.EventPublisher) harness {
	sess := session.New(memory.New())
	view := &recordingView{}
	notifier := &recordingNotifier{}
	svc := service.New(backend, sess, view, notifier, events)
	return harness{svc: svc, session: sess, view: view, notifier: notifier}
}

// loggedIn returns a harness whose session already holds the backend token.
func loggedIn(t *testing.T, b *fakeBackend) harness {
	t.Helper()
	h := newHarness(b, nil)
	h.session.SetClientID(b.clientID)
	require.NoError(t, h.session.SetToken(t.Context(), b.token, b.username))
	return h
}

func TestAuthFlow(t *testing.T) {
	t.Run("ValidateThenLogin", func(t *testing.T) {
		b := newFakeBackend()
		h := newHarness(b, nil)
		ctx := t.Context()

		require.NoError(t, h.svc.ValidateApplication(ctx, " 123 ", "abc"))
		assert.Equal(t, domain.PageLogin, h.svc.CurrentPage())
		assert.Equal(t, []bool{true}, h.view.authOK)

		require.NoError(t, h.svc.Login(ctx, "admin", "123"))

		snap := h.svc.Session()
		assert.Equal(t, "123", snap.ClientID)
		assert.Equal(t, "jwt-token", snap.Token)
		assert.Equal(t, "admin", snap.Username)
		assert.Equal(t, domain.UserAuthenticated, snap.State())
		assert.Equal(t, domain.PageProducts, h.svc.CurrentPage())
		assert.Contains(t, h.notifier.all(), "Logged in")
		assert.Equal(t, 1, b.callCount("Cart"))
	})

	t.Run("InvalidApplication", func(t *testing.T) {
		b := newFakeBackend()
		h := newHarness(b, nil)

		err := h.svc.ValidateApplication(t.Context(), "123", "wrong")
		require.ErrorIs(t, err, domain.ErrBackend)

		assert.Empty(t, h.svc.Session().ClientID)
		assert.Equal(t, []string{"Credenciais inválidas"}, h.view.authMsgs)
		assert.Equal(t, []bool{false}, h.view.authOK)
		assert.Equal(t, domain.Page(""), h.svc.CurrentPage())
	})

	t.Run("ValidateRequiresFields", func(t *testing.T) {
		backend := &MockBackend{}
		h := newHarness(backend, nil)

		err := h.svc.ValidateApplication(t.Context(), "  ", "abc")
		require.ErrorIs(t, err, domain.ErrValidation)
		backend.AssertNotCalled(t, "Auth", mock.Anything, mock.Anything)
		assert.Equal(t, "Fill in clientID and clientSecret", h.notifier.last())
	})

	t.Run("LoginWithoutValidatedClient", func(t *testing.T) {
		backend := &MockBackend{}
		h := newHarness(backend, nil)

		err := h.svc.Login(t.Context(), "admin", "123")
		require.ErrorIs(t, err, domain.ErrClientNotValidated)
		backend.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
		assert.Equal(t, domain.PageAppAuth, h.svc.CurrentPage())
		assert.Empty(t, h.svc.Session().Token)
	})

	t.Run("LoginRequiresFields", func(t *testing.T) {
		backend := &MockBackend{}
		h := newHarness(backend, nil)
		h.session.SetClientID("123")

		err := h.svc.Login(t.Context(), "admin", "")
		require.ErrorIs(t, err, domain.ErrValidation)
		backend.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		b := newFakeBackend()
		h := newHarness(b, nil)
		h.session.SetClientID("123")

		err := h.svc.Login(t.Context(), "admin", "nope")
		require.ErrorIs(t, err, domain.ErrBackend)
		assert.Equal(t, "login inválido", h.notifier.last())
		assert.Empty(t, h.svc.Session().Token)
		assert.Zero(t, b.callCount("Cart"))
	})

	t.Run("Register", func(t *testing.T) {
		b := newFakeBackend()
		h := newHarness(b, nil)

		err := h.svc.Register(t.Context(), domain.Registration{
			Username: "bob", Password: "pw", Email: "bob@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "bob", h.view.prefill)
		assert.Equal(t, domain.PageLogin, h.svc.CurrentPage())
		assert.Empty(t, h.svc.Session().Token)
		assert.Equal(t, "Account created, please log in", h.notifier.last())
	})

	t.Run("RegisterRequiresFields", func(t *testing.T) {
		backend := &MockBackend{}
		h := newHarness(backend, nil)

		err := h.svc.Register(t.Context(), domain.Registration{Username: "bob"})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"email", "password"}, verr.Fields)
		backend.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("Logout", func(t *testing.T) {
		b := newFakeBackend()
		h := loggedIn(t, b)

		h.svc.Logout(t.Context())

		assert.Equal(t, domain.Session{}, h.svc.Session())
		assert.Equal(t, domain.PageAppAuth, h.svc.CurrentPage())
		assert.Zero(t, h.view.cartCount())
		assert.Equal(t, "Logged out", h.notifier.last())
	})
}

func TestProducts(t *testing.T) {
	t.Run("RendersBackendList", func(t *testing.T) {
		b := newFakeBackend()
		b.products = []domain.Product{{ID: 1, Name: "Camiseta", Price: 9.9}}
		h := newHarness(b, nil)

		h.svc.Navigate(t.Context(), domain.PageProducts)

		require.Len(t, h.view.products, 1)
		require.Len(t, h.view.products[0], 1)
		p := h.view.products[0][0]
		assert.Equal(t, "Camiseta", p.Name)
		assert.Equal(t, "R$ 9.90", p.FormattedPrice())
		assert.Equal(t, domain.ProductID(1), p.ID)
	})

	t.Run("FailureKeepsRenderedList", func(t *testing.T) {
		b := newFakeBackend()
		b.failNext("Products", &domain.ConnectionError{Err: errors.New("refused")})
		h := newHarness(b, nil)

		err := h.svc.LoadProducts(t.Context())
		require.ErrorIs(t, err, domain.ErrConnection)
		assert.Empty(t, h.view.products)
		assert.Equal(t, "Connection error", h.notifier.last())
	})

	t.Run("LeavingPageDropsPendingLoad", func(t *testing.T) {
		b := newFakeBackend()
		b.productsGate = make(chan struct{})
		h := newHarness(b, nil)
		ctx := t.Context()

		h.svc.Navigate(ctx, domain.PageHome)

		errCh := make(chan error, 1)
		go func() { errCh <- h.svc.LoadProducts(ctx) }()

		<-b.productsGate
		h.svc.Navigate(ctx, domain.PageLogin)

		select {
		case err := <-errCh:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Fatal("load was not canceled")
		}
		assert.Empty(t, h.view.products)
		assert.Empty(t, h.notifier.all())
	})
}

func TestCart(t *testing.T) {
	t.Run("OperationsWithoutTokenMakeNoRequest", func(t *testing.T) {
		backend := &MockBackend{}
		h := newHarness(backend, nil)
		ctx := t.Context()

		require.ErrorIs(t, h.svc.AddItem(ctx, 1, 1), domain.ErrAuthRequired)
		require.ErrorIs(t, h.svc.ChangeQty(ctx, 1, 1), domain.ErrAuthRequired)
		require.ErrorIs(t, h.svc.ClearCart(ctx), domain.ErrAuthRequired)
		require.ErrorIs(t, h.svc.PlaceOrder(ctx), domain.ErrAuthRequired)
		require.ErrorIs(t, h.svc.LoadCart(ctx), domain.ErrAuthRequired)

		backend.AssertExpectations(t)
		assert.Empty(t, backend.Calls)
		assert.Equal(t, domain.PageLogin, h.svc.CurrentPage())
		assert.Equal(t, 1, h.view.loginRequired)
	})

	t.Run("AddItem", func(t *testing.T) {
		b := newFakeBackend()
		h := loggedIn(t, b)

		require.NoError(t, h.svc.AddItem(t.Context(), 1, 1))

		cart, ok := h.view.lastCart()
		require.True(t, ok)
		assert.Equal(t, []domain.CartLine{{ProductID: 1, Qty: 1}}, cart.Lines)
		assert.Equal(t, 1, h.view.cartCount())
		assert.Contains(t, h.notifier.all(), "Added to cart")
	})

	t.Run("AddItemRejectsNonPositiveQty", func(t *testing.T) {
		b := newFakeBackend()
		h := loggedIn(t, b)

		err := h.svc.AddItem(t.Context(), 1, 0)
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, b.callCount("AddCartItem"))
	})

	t.Run("ChangeQtyRoundTrip", func(t *testing.T) {
		b := newFakeBackend()
		b.cart = []domain.CartLine{{ProductID: 2, Qty: 1}}
		h := loggedIn(t, b)
		ctx := t.Context()

		require.NoError(t, h.svc.ChangeQty(ctx, 1, 2))
		assert.Equal(t, 3, h.view.cartCount())

		require.NoError(t, h.svc.ChangeQty(ctx, 1, -2))
		cart, _ := h.view.lastCart()
		assert.Equal(t, []domain.CartLine{{ProductID: 2, Qty: 1}}, cart.Lines)
		assert.Equal(t, 1, h.view.cartCount())
	})

	t.Run("ChangeQtyClampsAtZero", func(t *testing.T) {
		b := newFakeBackend()
		b.cart = []domain.CartLine{{ProductID: 1, Qty: 1}}
		h := loggedIn(t, b)

		require.NoError(t, h.svc.ChangeQty(t.Context(), 1, -5))
		cart, _ := h.view.lastCart()
		assert.Empty(t, cart.Lines)
		assert.Zero(t, h.view.cartCount())
	})

	t.Run("ChangeQtyRetriesStaleVersion", func(t *testing.T) {
		b := newFakeBackend()
		b.versions = true
		b.cart = []domain.CartLine{{ProductID: 1, Qty: 1}}
		h := loggedIn(t, b)

		// The first write is rejected as stale.
		b.failNext("ReplaceCart", errors.Join(domain.ErrConflict,
			&domain.BackendError{Status: 412}))

		require.NoError(t, h.svc.ChangeQty(t.Context(), 1, 1))
		assert.Equal(t, 2, b.callCount("ReplaceCart"))
		assert.Equal(t, 2, b.callCount("Cart"))
		assert.Equal(t, 2, h.view.cartCount())
	})

	t.Run("ChangeQtyGivesUpAfterRepeatedConflicts", func(t *testing.T) {
		backend := &MockBackend{}
		h := newHarness(backend, nil)
		h.session.SetClientID("123")
		require.NoError(t, h.session.SetToken(t.Context(), "tok", "admin"))

		backend.On("Cart", mock.Anything, "tok").
			Return(domain.Cart{Version: "1"}, nil)
		backend.On("ReplaceCart", mock.Anything, "tok", mock.Anything).
			Return(domain.Cart{}, domain.ErrConflict)

		err := h.svc.ChangeQty(t.Context(), 1, 1)
		require.ErrorIs(t, err, domain.ErrConflict)
		backend.AssertNumberOfCalls(t, "ReplaceCart", 3)
		assert.Equal(t, "Cart was changed elsewhere, try again", h.notifier.last())
	})

	t.Run("ClearTwice", func(t *testing.T) {
		b := newFakeBackend()
		b.cart = []domain.CartLine{{ProductID: 1, Qty: 4}}
		h := loggedIn(t, b)
		ctx := t.Context()

		require.NoError(t, h.svc.ClearCart(ctx))
		require.NoError(t, h.svc.ClearCart(ctx))

		cart, _ := h.view.lastCart()
		assert.True(t, cart.IsEmpty())
		assert.Zero(t, h.view.cartCount())
	})

	t.Run("ExpiredSessionLogsOut", func(t *testing.T) {
		b := newFakeBackend()
		h := loggedIn(t, b)
		b.token = "rotated"

		err := h.svc.LoadCart(t.Context())
		require.ErrorIs(t, err, domain.ErrSessionExpired)

		assert.Empty(t, h.svc.Session().Token)
		assert.Empty(t, h.svc.Session().ClientID)
		assert.Equal(t, domain.PageAppAuth, h.svc.CurrentPage())
		assert.Equal(t, "Session expired. Please log in again.", h.notifier.last())
	})
}

func TestPlaceOrder(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		b := newFakeBackend()
		b.cart = []domain.CartLine{{ProductID: 1, Qty: 2}}
		h := loggedIn(t, b)

		require.NoError(t, h.svc.PlaceOrder(t.Context()))

		assert.Equal(t, "Order placed! ID: 1760000000", h.notifier.last())
		cart, _ := h.view.lastCart()
		assert.True(t, cart.IsEmpty())
		assert.Zero(t, h.view.cartCount())
		assert.Equal(t, domain.PageHome, h.svc.CurrentPage())
	})

	t.Run("EmptyCartKeepsDisplay", func(t *testing.T) {
		b := newFakeBackend()
		h := loggedIn(t, b)

		err := h.svc.PlaceOrder(t.Context())
		require.ErrorIs(t, err, domain.ErrBackend)
		assert.Equal(t, "carrinho vazio", h.notifier.last())
		assert.Empty(t, h.view.carts)
	})
}

func TestNavigate(t *testing.T) {
	t.Run("UnknownPageIsIgnored", func(t *testing.T) {
		b := newFakeBackend()
		h := newHarness(b, nil)

		h.svc.Navigate(t.Context(), domain.PageHome)
		h.svc.Navigate(t.Context(), domain.Page("nonexistent"))

		assert.Equal(t, domain.PageHome, h.svc.CurrentPage())
		assert.Equal(t, []domain.Page{domain.PageHome}, h.view.pages)
	})

	t.Run("CartPageWithoutToken", func(t *testing.T) {
		backend := &MockBackend{}
		h := newHarness(backend, nil)

		h.svc.Navigate(t.Context(), domain.PageCart)

		assert.Equal(t, domain.PageCart, h.svc.CurrentPage())
		assert.Equal(t, 1, h.view.loginRequired)
		assert.Empty(t, backend.Calls)
	})
}

func TestStart(t *testing.T) {
	t.Run("Anonymous", func(t *testing.T) {
		b := newFakeBackend()
		b.products = []domain.Product{{ID: 1, Name: "Camiseta", Price: 9.9}}
		h := newHarness(b, nil)

		h.svc.Start(t.Context())

		assert.Equal(t, domain.PageHome, h.svc.CurrentPage())
		assert.Len(t, h.view.products, 1)
		assert.Zero(t, b.callCount("Cart"))
	})

	t.Run("RestoredSession", func(t *testing.T) {
		b := newFakeBackend()
		b.cart = []domain.CartLine{{ProductID: 1, Qty: 3}}
		h := loggedIn(t, b)

		h.svc.Start(t.Context())

		assert.Equal(t, 3, h.view.cartCount())
		assert.Equal(t, 1, b.callCount("Cart"))
	})
}

func TestClientEvents(t *testing.T) {
	t.Run("PublishedWithSessionIdentity", func(t *testing.T) {
		b := newFakeBackend()
		events := &MockPublisher{}
		h := newHarness(b, events)
		h.session.SetClientID("123")
		require.NoError(t, h.session.SetToken(t.Context(), b.token, "admin"))

		events.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.ClientEvent) bool {
			return e.Kind == domain.EventProductAdded &&
				e.Username == "admin" && e.ClientID == "123" &&
				e.ProductID == 1 && e.Qty == 2 && !e.At.IsZero()
		})).Return(nil).Once()

		require.NoError(t, h.svc.AddItem(t.Context(), 1, 2))
		events.AssertExpectations(t)
	})

	t.Run("PublishFailureIsIgnored", func(t *testing.T) {
		b := newFakeBackend()
		events := &MockPublisher{}
		h := newHarness(b, events)
		require.NoError(t, h.session.SetToken(t.Context(), b.token, "admin"))

		events.On("Publish", mock.Anything, mock.Anything).
			Return(errors.New("broker down"))

		require.NoError(t, h.svc.ClearCart(t.Context()))
		assert.Equal(t, "Cart emptied", h.notifier.last())
	})
}
