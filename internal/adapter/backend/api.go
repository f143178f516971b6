package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/niksmo/shopfront/internal/core/domain"
)

type (
	authRequest struct {
		ClientID     string `json:"clientID"`
		ClientSecret string `json:"clientSecret"`
	}

	registerRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}

	loginRequest struct {
		ClientID string `json:"clientID"`
		Username string `json:"username"`
		Password string `json:"password"`
	}

	loginResponse struct {
		Token string `json:"token"`
	}

	cartLine struct {
		ProductID domain.ProductID `json:"product_id"`
		Qty       int              `json:"qty"`
	}

	replaceCartRequest struct {
		Items []cartLine `json:"items"`
	}

	cartResponse struct {
		Cart []cartLine `json:"cart"`
	}
)

func (c *Client) Auth(ctx context.Context, cr domain.Credentials) error {
	const op = "Client.Auth"

	_, err := c.do(ctx, request{
		method: http.MethodPost,
		route:  routeAuth,
		body:   authRequest{cr.ClientID, cr.ClientSecret},
	})
	return opErr(op, err)
}

func (c *Client) Register(ctx context.Context, r domain.Registration) error {
	const op = "Client.Register"

	_, err := c.do(ctx, request{
		method: http.MethodPost,
		route:  routeRegister,
		body:   registerRequest{r.Username, r.Password, r.Email},
	})
	return opErr(op, err)
}

func (c *Client) Login(ctx context.Context, l domain.Login) (string, error) {
	const op = "Client.Login"

	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		route:  routeLogin,
		body:   loginRequest{l.ClientID, l.Username, l.Password},
	})
	if err != nil {
		return "", opErr(op, err)
	}

	var v loginResponse
	if err := json.Unmarshal(resp.body, &v); err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	}
	if v.Token == "" {
		return "", fmt.Errorf("%s: %w: no token", op, ErrMalformedResponse)
	}
	return v.Token, nil
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	const op = "Client.Products"

	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		route:  routeProducts,
	})
	if err != nil {
		return nil, opErr(op, err)
	}

	ps, err := parseProducts(resp.body)
	if err != nil {
		return nil, opErr(op, err)
	}
	return ps, nil
}

func (c *Client) Cart(ctx context.Context, token string) (domain.Cart, error) {
	const op = "Client.Cart"

	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		route:  routeCart,
		authed: true,
		token:  token,
	})
	if err != nil {
		return domain.Cart{}, opErr(op, err)
	}

	cart, err := parseCart(resp)
	return cart, opErr(op, err)
}

func (c *Client) AddCartItem(
	ctx context.Context, token string, l domain.CartLine,
) (domain.Cart, error) {
	const op = "Client.AddCartItem"

	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		route:  routeCart,
		authed: true,
		token:  token,
		body:   cartLine{l.ProductID, l.Qty},
	})
	if err != nil {
		return domain.Cart{}, opErr(op, err)
	}

	cart, err := parseCart(resp)
	return cart, opErr(op, err)
}

// ReplaceCart sends the non-empty lines of cr as the new cart. A non-empty
// cr.Version is sent as If-Match.
func (c *Client) ReplaceCart(
	ctx context.Context, token string, cr domain.Cart,
) (domain.Cart, error) {
	const op = "Client.ReplaceCart"

	lines := domain.NonEmptyLines(cr.Lines)
	items := make([]cartLine, len(lines))
	for i, l := range lines {
		items[i] = cartLine{l.ProductID, l.Qty}
	}

	var header http.Header
	if cr.Version != "" {
		header = http.Header{"If-Match": []string{cr.Version}}
	}

	resp, err := c.do(ctx, request{
		method: http.MethodPut,
		route:  routeCart,
		authed: true,
		token:  token,
		body:   replaceCartRequest{items},
		header: header,
	})
	if err != nil {
		return domain.Cart{}, opErr(op, err)
	}

	cart, err := parseCart(resp)
	return cart, opErr(op, err)
}

func (c *Client) ClearCart(ctx context.Context, token string) error {
	const op = "Client.ClearCart"

	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		route:  routeCart,
		authed: true,
		token:  token,
	})
	return opErr(op, err)
}

func (c *Client) Checkout(ctx context.Context, token string) (domain.Order, error) {
	const op = "Client.Checkout"

	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		route:  routeCheckout,
		authed: true,
		token:  token,
	})
	if err != nil {
		return domain.Order{}, opErr(op, err)
	}
	return parseOrder(resp.body), nil
}
