package domain

import "slices"

type Page string

const (
	PageHome     Page = "home"
	PageAppAuth  Page = "appAuth"
	PageRegister Page = "register"
	PageLogin    Page = "login"
	PageProducts Page = "products"
	PageCart     Page = "cart"
	PageCheckout Page = "checkout"
)

var pages = []Page{
	PageHome, PageAppAuth, PageRegister, PageLogin,
	PageProducts, PageCart, PageCheckout,
}

func Pages() []Page {
	out := make([]Page, len(pages))
	copy(out, pages)
	return out
}

func (p Page) Valid() bool {
	return slices.Contains(pages, p)
}
