// Package shell reads storefront commands line by line and dispatches them
// to the core service.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/niksmo/shopfront/internal/core/domain"
	"github.com/niksmo/shopfront/internal/core/port"
)

// A Storefront is everything the shell can ask for.
type Storefront interface {
	port.Authenticator
	port.Catalog
	port.CartManager
	port.OrderPlacer
	port.Navigator
}

const usage = `commands:
  auth <clientID> <clientSecret>         validate the application
  register <username> <email> <password> create an account
  login [username] <password>            log in
  logout
  products                               list products
  add <id> [qty]                         add a product to the cart
  cart                                   show the cart
  inc <id> | dec <id>                    change a cart line by one
  clear                                  empty the cart
  checkout                               place the order
  go <page>                              show a page
  whoami                                 show the session state
  help
  quit
`

type Shell struct {
	sf      Storefront
	out     io.Writer
	prefill func() string
	prompt  string
}

type Opt func(*Shell)

// WithPrefill sets the source of the username used by a one-argument login.
func WithPrefill(fn func() string) Opt {
	return func(s *Shell) {
		s.prefill = fn
	}
}

func WithPrompt(prompt string) Opt {
	return func(s *Shell) {
		s.prompt = prompt
	}
}

func New(sf Storefront, out io.Writer, opts ...Opt) *Shell {
	s := &Shell{
		sf:      sf,
		out:     out,
		prefill: func() string { return "" },
		prompt:  "> ",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the lines of in until EOF, a quit command or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	const op = "Shell.Run"

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		s.write(s.prompt)
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("%s: %w", op, err)
					}
				default:
				}
				return nil
			}
			if s.Exec(ctx, line) {
				return nil
			}
		}
	}
}

// Exec runs one command line and reports whether the shell should stop.
// Command failures are shown by the service and are not returned.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool) {
	const op = "Shell.Exec"

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help", "?":
		s.write(usage)
	case "auth":
		if !s.arity(args, 2, 2, "auth <clientID> <clientSecret>") {
			return false
		}
		err = s.sf.ValidateApplication(ctx, args[0], args[1])
	case "register":
		if !s.arity(args, 3, 3, "register <username> <email> <password>") {
			return false
		}
		err = s.sf.Register(ctx, domain.Registration{
			Username: args[0], Email: args[1], Password: args[2],
		})
	case "login":
		err = s.login(ctx, args)
	case "logout":
		s.sf.Logout(ctx)
	case "products":
		s.sf.Navigate(ctx, domain.PageProducts)
	case "cart":
		s.sf.Navigate(ctx, domain.PageCart)
	case "add":
		if !s.arity(args, 1, 2, "add <id> [qty]") {
			return false
		}
		id, ok := s.productID(args[0])
		if !ok {
			return false
		}
		qty := 1
		if len(args) == 2 {
			n, convErr := strconv.Atoi(args[1])
			if convErr != nil {
				s.write("qty must be a number\n")
				return false
			}
			qty = n
		}
		err = s.sf.AddItem(ctx, id, qty)
	case "inc", "dec":
		if !s.arity(args, 1, 1, cmd+" <id>") {
			return false
		}
		id, ok := s.productID(args[0])
		if !ok {
			return false
		}
		delta := 1
		if cmd == "dec" {
			delta = -1
		}
		err = s.sf.ChangeQty(ctx, id, delta)
	case "clear":
		err = s.sf.ClearCart(ctx)
	case "checkout":
		err = s.sf.PlaceOrder(ctx)
	case "go":
		if !s.arity(args, 1, 1, "go <page>") {
			return false
		}
		s.sf.Navigate(ctx, domain.Page(args[0]))
	case "whoami":
		sess := s.sf.Session()
		s.write(fmt.Sprintf("state: %s, user: %q, page: %s\n",
			sess.State(), sess.Username, s.sf.CurrentPage()))
	default:
		s.write(fmt.Sprintf("unknown command %q, type help\n", cmd))
	}

	if err != nil {
		slog.Debug("command failed", "op", op, "cmd", cmd, "err", err)
	}
	return false
}

func (s *Shell) login(ctx context.Context, args []string) error {
	switch len(args) {
	case 2:
		return s.sf.Login(ctx, args[0], args[1])
	case 1:
		if u := s.prefill(); u != "" {
			return s.sf.Login(ctx, u, args[0])
		}
	}
	s.write("usage: login [username] <password>\n")
	return nil
}

func (s *Shell) arity(args []string, lo, hi int, form string) bool {
	if len(args) < lo || len(args) > hi {
		s.write("usage: " + form + "\n")
		return false
	}
	return true
}

func (s *Shell) productID(arg string) (domain.ProductID, bool) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		s.write(fmt.Sprintf("invalid product id %q\n", arg))
		return 0, false
	}
	return domain.ProductID(n), true
}

func (s *Shell) write(str string) {
	if _, err := io.WriteString(s.out, str); err != nil {
		slog.Error("failed to write output", "op", "Shell.write", "err", err)
	}
}
