package client

import "net/http"

// Authenticator decorates an outgoing request with credentials.
type Authenticator interface {
	Authenticate(r *http.Request)
}

// AuthFunc adapts a plain function to an [Authenticator].
type AuthFunc func(r *http.Request)

// Authenticate calls f(r).
func (f AuthFunc) Authenticate(r *http.Request) {
	f(r)
}

// BasicAuth returns an [Authenticator] sending HTTP Basic credentials.
func BasicAuth(username, password string) Authenticator {
	return basicAuth{username: username, password: password}
}

// BearerToken returns an [Authenticator] sending an `Authorization: Bearer` header.
func BearerToken(token string) Authenticator {
	return bearerToken(token)
}

type basicAuth struct {
	username string
	password string
}

func (a basicAuth) Authenticate(r *http.Request) {
	r.SetBasicAuth(a.username, a.password)
}

type bearerToken string

func (t bearerToken) Authenticate(r *http.Request) {
	r.Header.Set("Authorization", "Bearer "+string(t))
}
