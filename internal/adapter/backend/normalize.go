package backend

import (
	"encoding/json"
	"fmt"

	"github.com/niksmo/shopfront/internal/core/domain"
	"github.com/tidwall/gjson"
)

// Fields a product image may arrive under, in order of preference.
var imageFields = []string{"img", "image", "img_url"}

// Fields an error body may carry its message under.
var messageFields = []string{"error", "detail", "message"}

// parseProducts accepts a bare array or an object with a products field.
// Any other object yields no products.
func parseProducts(body []byte) ([]domain.Product, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: products are not JSON", ErrMalformedResponse)
	}

	list := gjson.ParseBytes(body)
	if !list.IsArray() {
		list = list.Get("products")
	}

	ps := []domain.Product{}
	if !list.IsArray() {
		return ps, nil
	}

	for _, item := range list.Array() {
		if !item.IsObject() {
			continue
		}
		ps = append(ps, domain.Product{
			ID:       domain.ProductID(item.Get("id").Int()),
			Name:     item.Get("name").String(),
			Price:    item.Get("price").Float(),
			ImageURL: firstString(item, imageFields),
		})
	}
	return ps, nil
}

func parseCart(resp response) (domain.Cart, error) {
	var v cartResponse
	if len(resp.body) != 0 {
		if err := json.Unmarshal(resp.body, &v); err != nil {
			return domain.Cart{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}

	cart := domain.Cart{
		Lines:   make([]domain.CartLine, len(v.Cart)),
		Version: resp.header.Get("ETag"),
	}
	for i, l := range v.Cart {
		cart.Lines[i] = domain.CartLine{ProductID: l.ProductID, Qty: l.Qty}
	}
	return cart, nil
}

func parseOrder(body []byte) domain.Order {
	return domain.Order{ID: gjson.GetBytes(body, "order.id").String()}
}

// errorMessage extracts the backend message from an error body.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return firstString(gjson.ParseBytes(body), messageFields)
}

func firstString(v gjson.Result, fields []string) string {
	for _, f := range fields {
		if s := v.Get(f).String(); s != "" {
			return s
		}
	}
	return ""
}
