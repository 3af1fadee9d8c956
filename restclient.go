// Package restclient exposes the REST client builder.
//
// See [github.com/adamwoolhether/restclient/client] for the options
// accepted by New and the call API.
package restclient

import (
	"github.com/adamwoolhether/restclient/client"
)

// New instantiates a *client.Client issuing calls against baseURL.
// If not specified, a fresh http.Client over http.DefaultTransport is used.
func New(baseURL string, opts ...client.Option) (*client.Client, error) {
	return client.New(baseURL, opts...)
}
