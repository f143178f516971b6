package service_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/niksmo/shopfront/internal/core/domain"
	"github.com/niksmo/shopfront/internal/core/port"
	"github.com/stretchr/testify/mock"
)

// fakeBackend is an in-memory shop that mirrors the reference server.
type fakeBackend struct {
	mu sync.Mutex

	clientID, secret   string
	username, password string
	token              string

	products []domain.Product
	cart     []domain.CartLine
	version  int
	versions bool // report and check cart versions

	calls map[string]int

	// errs forces the next call of a method to fail.
	errs map[string]error

	// productsGate, when set, blocks Products until ctx is done.
	productsGate chan struct{}
}

var _ port.Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		clientID: "123", secret: "abc",
		username: "admin", password: "123",
		token: "jwt-token",
		calls: map[string]int{},
		errs:  map[string]error{},
	}
}

func (b *fakeBackend) enter(method string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[method]++
	if err, ok := b.errs[method]; ok {
		delete(b.errs, method)
		return err
	}
	return nil
}

func (b *fakeBackend) failNext(method string, err error) {
	b.mu.Lock()
	b.errs[method] = err
	b.mu.Unlock()
}

func (b *fakeBackend) callCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func (b *fakeBackend) totalCalls() (n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		n += c
	}
	return n
}

func (b *fakeBackend) Auth(_ context.Context, c domain.Credentials) error {
	if err := b.enter("Auth"); err != nil {
		return err
	}
	if c.ClientID != b.clientID || c.ClientSecret != b.secret {
		return &domain.BackendError{Status: 401, Message: "Credenciais inválidas"}
	}
	return nil
}

func (b *fakeBackend) Register(_ context.Context, r domain.Registration) error {
	return b.enter("Register")
}

func (b *fakeBackend) Login(_ context.Context, l domain.Login) (string, error) {
	if err := b.enter("Login"); err != nil {
		return "", err
	}
	if l.Username != b.username || l.Password != b.password {
		return "", &domain.BackendError{Status: 401, Message: "login inválido"}
	}
	return b.token, nil
}

func (b *fakeBackend) Products(ctx context.Context) ([]domain.Product, error) {
	if err := b.enter("Products"); err != nil {
		return nil, err
	}
	if b.productsGate != nil {
		close(b.productsGate)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return b.products, nil
}

func (b *fakeBackend) authorize(method, token string) error {
	if err := b.enter(method); err != nil {
		return err
	}
	if token == "" {
		return domain.ErrAuthRequired
	}
	if token != b.token {
		return fmt.Errorf("%w: %w", domain.ErrSessionExpired,
			&domain.BackendError{Status: 401, Message: "não autorizado"})
	}
	return nil
}

func (b *fakeBackend) snapshot() domain.Cart {
	c := domain.Cart{Lines: append([]domain.CartLine{}, b.cart...)}
	if b.versions {
		c.Version = strconv.Itoa(b.version)
	}
	return c
}

func (b *fakeBackend) Cart(_ context.Context, token string) (domain.Cart, error) {
	if err := b.authorize("Cart", token); err != nil {
		return domain.Cart{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot(), nil
}

func (b *fakeBackend) AddCartItem(
	_ context.Context, token string, l domain.CartLine,
) (domain.Cart, error) {
	if err := b.authorize("AddCartItem", token); err != nil {
		return domain.Cart{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	found := false
	for i := range b.cart {
		if b.cart[i].ProductID == l.ProductID {
			b.cart[i].Qty += l.Qty
			found = true
		}
	}
	if !found {
		b.cart = append(b.cart, l)
	}
	b.version++
	return b.snapshot(), nil
}

func (b *fakeBackend) ReplaceCart(
	_ context.Context, token string, c domain.Cart,
) (domain.Cart, error) {
	if err := b.authorize("ReplaceCart", token); err != nil {
		return domain.Cart{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.versions && c.Version != strconv.Itoa(b.version) {
		return domain.Cart{}, fmt.Errorf("%w: %w", domain.ErrConflict,
			&domain.BackendError{Status: 412, Message: "stale cart"})
	}
	b.cart = domain.NonEmptyLines(c.Lines)
	b.version++
	return b.snapshot(), nil
}

func (b *fakeBackend) ClearCart(_ context.Context, token string) error {
	if err := b.authorize("ClearCart", token); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cart = nil
	b.version++
	return nil
}

func (b *fakeBackend) Checkout(_ context.Context, token string) (domain.Order, error) {
	if err := b.authorize("Checkout", token); err != nil {
		return domain.Order{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.cart) == 0 {
		return domain.Order{}, &domain.BackendError{Status: 400, Message: "carrinho vazio"}
	}
	b.cart = nil
	return domain.Order{ID: "1760000000"}, nil
}

// recordingView keeps everything it was asked to render.
type recordingView struct {
	mu            sync.Mutex
	pages         []domain.Page
	products      [][]domain.Product
	carts         []domain.Cart
	loginRequired int
	count         int
	authMsgs      []string
	authOK        []bool
	prefill       string
}

var _ port.View = (*recordingView)(nil)

func (v *recordingView) ShowPage(p domain.Page) {
	v.mu.Lock()
	v.pages = append(v.pages, p)
	v.mu.Unlock()
}

func (v *recordingView) RenderProducts(ps []domain.Product) {
	v.mu.Lock()
	v.products = append(v.products, ps)
	v.mu.Unlock()
}

func (v *recordingView) RenderCart(c domain.Cart) {
	v.mu.Lock()
	v.carts = append(v.carts, c)
	v.mu.Unlock()
}

func (v *recordingView) RenderLoginRequired() {
	v.mu.Lock()
	v.loginRequired++
	v.mu.Unlock()
}

func (v *recordingView) SetCartCount(n int) {
	v.mu.Lock()
	v.count = n
	v.mu.Unlock()
}

func (v *recordingView) ShowAuthMessage(msg string, ok bool) {
	v.mu.Lock()
	v.authMsgs = append(v.authMsgs, msg)
	v.authOK = append(v.authOK, ok)
	v.mu.Unlock()
}

func (v *recordingView) PrefillLogin(username string) {
	v.mu.Lock()
	v.prefill = username
	v.mu.Unlock()
}

func (v *recordingView) lastCart() (domain.Cart, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.carts) == 0 {
		return domain.Cart{}, false
	}
	return v.carts[len(v.carts)-1], true
}

func (v *recordingView) cartCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.count
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.msgs) == 0 {
		return ""
	}
	return n.msgs[len(n.msgs)-1]
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.msgs...)
}

// MockBackend fails the test on any call without an expectation.
type MockBackend struct {
	mock.Mock
}

var _ port.Backend = (*MockBackend)(nil)

func (m *MockBackend) Auth(ctx context.Context, c domain.Credentials) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockBackend) Register(ctx context.Context, r domain.Registration) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockBackend) Login(ctx context.Context, l domain.Login) (string, error) {
	args := m.Called(ctx, l)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Products(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]domain.Product)
	return ps, args.Error(1)
}

func (m *MockBackend) Cart(ctx context.Context, token string) (domain.Cart, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Cart), args.Error(1)
}

func (m *MockBackend) AddCartItem(
	ctx context.Context, token string, l domain.CartLine,
) (domain.Cart, error) {
	args := m.Called(ctx, token, l)
	return args.Get(0).(domain.Cart), args.Error(1)
}

func (m *MockBackend) ReplaceCart(
	ctx context.Context, token string, c domain.Cart,
) (domain.Cart, error) {
	args := m.Called(ctx, token, c)
	return args.Get(0).(domain.Cart), args.Error(1)
}

func (m *MockBackend) ClearCart(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockBackend) Checkout(ctx context.Context, token string) (domain.Order, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Order), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, e domain.ClientEvent) error {
	return m.Called(ctx, e).Error(0)
}
