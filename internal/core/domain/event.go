package domain

import "time"

type ClientEventKind string

const (
	EventLoggedIn     ClientEventKind = "logged_in"
	EventLoggedOut    ClientEventKind = "logged_out"
	EventProductAdded ClientEventKind = "product_added"
	EventCartChanged  ClientEventKind = "cart_changed"
	EventCartCleared  ClientEventKind = "cart_cleared"
	EventOrderPlaced  ClientEventKind = "order_placed"
)

// A ClientEvent records a user action for analytics.
type ClientEvent struct {
	Kind      ClientEventKind
	Username  string
	ClientID  string
	ProductID ProductID
	Qty       int
	OrderID   string
	At        time.Time
}

// Key is the partitioning key of the event.
func (e ClientEvent) Key() string {
	if e.Username != "" {
		return e.Username
	}
	return e.ClientID
}
