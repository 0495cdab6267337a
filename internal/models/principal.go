package models

// Principal is the caller identity for a request. Handlers and the access
// policy type-switch on the two concrete forms instead of null-checking.
type Principal interface {
	isPrincipal()
}

// Anonymous is an unauthenticated caller.
type Anonymous struct{}

func (Anonymous) isPrincipal() {}

// Authenticated is a caller resolved from a valid bearer token.
type Authenticated struct {
	UserID   int64
	Username string
	Role     string
}

func (Authenticated) isPrincipal() {}
