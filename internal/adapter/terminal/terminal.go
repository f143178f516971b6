// Package terminal renders the storefront as plain text.
package terminal

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/niksmo/shopfront/internal/core/domain"
	"github.com/niksmo/shopfront/internal/core/port"
)

var _ port.View = (*View)(nil)
var _ port.Notifier = (*View)(nil)

var pageTitles = map[domain.Page]string{
	domain.PageHome:     "Home",
	domain.PageAppAuth:  "Application authentication",
	domain.PageRegister: "Register",
	domain.PageLogin:    "Log in",
	domain.PageProducts: "Products",
	domain.PageCart:     "Cart",
	domain.PageCheckout: "Checkout",
}

// pageHints lists the commands that make sense on a page.
var pageHints = map[domain.Page]string{
	domain.PageHome:     "products | cart | auth <clientID> <clientSecret>",
	domain.PageAppAuth:  "auth <clientID> <clientSecret>",
	domain.PageRegister: "register <username> <email> <password>",
	domain.PageLogin:    "login [username] <password> | go register",
	domain.PageProducts: "add <id> [qty] | cart",
	domain.PageCart:     "inc <id> | dec <id> | clear | go checkout",
	domain.PageCheckout: "checkout | cart",
}

// A View writes every rendered section to w. It is safe for concurrent use.
type View struct {
	mu        sync.Mutex
	w         io.Writer
	page      domain.Page
	cartCount int
	prefill   string
}

func New(w io.Writer) *View {
	return &View{w: w}
}

func (v *View) ShowPage(p domain.Page) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.page = p
	v.printf("\n== %s ==  (cart: %d)\n", pageTitles[p], v.cartCount)
	if hint, ok := pageHints[p]; ok {
		v.printf("   %s\n", hint)
	}
}

func (v *View) RenderProducts(ps []domain.Product) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(ps) == 0 {
		v.printf("No products available.\n")
		return
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, p := range ps {
		fmt.Fprintf(tw, "  [%s]\t%s\t%s\t%s\tadd %s\n",
			p.ID, p.Name, p.FormattedPrice(), p.Image(), p.ID)
	}
	tw.Flush()
	v.printf("%s", b.String())
}

func (v *View) RenderCart(c domain.Cart) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if c.IsEmpty() {
		v.printf("Your cart is empty.\n")
		return
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, l := range c.Lines {
		fmt.Fprintf(tw, "  product %s\tqty %d\tinc %s | dec %s\n",
			l.ProductID, l.Qty, l.ProductID, l.ProductID)
	}
	tw.Flush()
	v.printf("%sTotal items: %d\n", b.String(), c.TotalCount())
}

func (v *View) RenderLoginRequired() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printf("Log in to see your cart.\n")
}

func (v *View) SetCartCount(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cartCount == n {
		return
	}
	v.cartCount = n
	v.printf("(cart: %d)\n", n)
}

func (v *View) ShowAuthMessage(msg string, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	status := "error"
	if ok {
		status = "ok"
	}
	v.printf("[%s] %s\n", status, msg)
}

func (v *View) PrefillLogin(username string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prefill = username
	v.printf("Username %q is ready, log in with: login <password>\n", username)
}

// Prefill returns the username offered by the last registration.
func (v *View) Prefill() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.prefill
}

func (v *View) CartCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cartCount
}

func (v *View) Page() domain.Page {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

func (v *View) Notify(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printf("* %s\n", msg)
}

// printf must be called with mu held.
func (v *View) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(v.w, format, args...); err != nil {
		slog.Error("failed to write view", "op", "View.printf", "err", err)
	}
}
