package domain

// A Session is a snapshot of the client credentials. Empty strings mean unset.
type Session struct {
	ClientID string
	Token    string
	Username string
}

type AuthState int

const (
	Unauthenticated AuthState = iota
	AppValidated
	UserAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AppValidated:
		return "app-validated"
	case UserAuthenticated:
		return "user-authenticated"
	default:
		return "unknown"
	}
}

// State derives the auth flow position from the held credentials.
//
// A token restored from storage authenticates the user even though the
// client id is lost on restart.
func (s Session) State() AuthState {
	switch {
	case s.Token != "":
		return UserAuthenticated
	case s.ClientID != "":
		return AppValidated
	default:
		return Unauthenticated
	}
}

type Credentials struct {
	ClientID     string
	ClientSecret string
}

type Registration struct {
	Username string
	Password string
	Email    string
}

type Login struct {
	ClientID string
	Username string
	Password string
}
