package port

import (
	"context"

	"github.com/niksmo/shopfront/internal/core/domain"
)

type closer interface {
	Close()
}

// Inbound ports, implemented by the core service.

type Authenticator interface {
	ValidateApplication(ctx context.Context, clientID, secret string) error
	Register(ctx context.Context, r domain.Registration) error
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context)
	Session() domain.Session
}

type Catalog interface {
	LoadProducts(ctx context.Context) error
}

type CartManager interface {
	AddItem(ctx context.Context, id domain.ProductID, qty int) error
	LoadCart(ctx context.Context) error
	ChangeQty(ctx context.Context, id domain.ProductID, delta int) error
	ClearCart(ctx context.Context) error
}

type Starter interface {
	Start(ctx context.Context)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context) error
}

type Navigator interface {
	Navigate(ctx context.Context, page domain.Page)
	CurrentPage() domain.Page
}

// Outbound ports, implemented by adapters.

// A Backend performs one request per call against the shop REST API.
//
// Authenticated methods fail with [domain.ErrAuthRequired] without any
// network I/O when token is empty.
type Backend interface {
	Auth(ctx context.Context, c domain.Credentials) error
	Register(ctx context.Context, r domain.Registration) error
	Login(ctx context.Context, l domain.Login) (token string, err error)
	Products(ctx context.Context) ([]domain.Product, error)
	Cart(ctx context.Context, token string) (domain.Cart, error)
	AddCartItem(ctx context.Context, token string, l domain.CartLine) (domain.Cart, error)
	ReplaceCart(ctx context.Context, token string, c domain.Cart) (domain.Cart, error)
	ClearCart(ctx context.Context, token string) error
	Checkout(ctx context.Context, token string) (domain.Order, error)
}

// A TokenStore persists the bearer token across restarts.
//
// Load returns an empty string and nil error when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// A View renders page sections.
type View interface {
	ShowPage(p domain.Page)
	RenderProducts(ps []domain.Product)
	RenderCart(c domain.Cart)
	RenderLoginRequired()
	SetCartCount(n int)
	ShowAuthMessage(msg string, ok bool)
	PrefillLogin(username string)
}

// A Notifier shows transient user-visible messages.
type Notifier interface {
	Notify(msg string)
}

type EventPublisher interface {
	Publish(ctx context.Context, e domain.ClientEvent) error
}

type ClientEventsProducer interface {
	EventPublisher
	closer
}
