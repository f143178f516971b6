package domain

import "fmt"

// A ProductID identifies a product on the backend.
type ProductID int64

func (id ProductID) String() string {
	return fmt.Sprintf("%d", int64(id))
}

// PlaceholderImageURL is shown for products without an image.
const PlaceholderImageURL = "https://via.placeholder.com/300?text=Produto"

type Product struct {
	ID       ProductID
	Name     string
	Price    float64
	ImageURL string
}

// FormattedPrice returns the price the way the storefront displays it.
func (p Product) FormattedPrice() string {
	return fmt.Sprintf("R$ %.2f", p.Price)
}

func (p Product) Image() string {
	if p.ImageURL == "" {
		return PlaceholderImageURL
	}
	return p.ImageURL
}
