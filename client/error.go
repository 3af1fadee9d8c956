package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// maxErrBodySize caps the amount of response body read when
// building a [StatusError].
const maxErrBodySize = 4 << 10 // 4KB

// Kind classifies a failed call.
type Kind string

const (
	// KindFailure marks transport errors returned by [http.Client.Do].
	KindFailure Kind = "failure"
	// KindRedirect marks a 3xx response that carried a Location header.
	KindRedirect Kind = "redirect"
	// KindClient marks a 4xx response.
	KindClient Kind = "client"
	// KindServer marks a 5xx response.
	KindServer Kind = "server"
)

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by every [StatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrRedirect is joined with [ErrUnexpectedStatusCode] for unfollowed redirects.
	ErrRedirect = errors.New("redirect")
	// ErrClientStatus is joined with [ErrUnexpectedStatusCode] for 4xx responses.
	ErrClientStatus = errors.New("client error")
	// ErrServerStatus is joined with [ErrUnexpectedStatusCode] for 5xx responses.
	ErrServerStatus = errors.New("server error")
	// ErrAuthFailure is additionally joined when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
)

// StatusError is returned by [Client.Call] when status checking is enabled
// and the response is a redirect, a client error or a server error.
//
// Code and Message are extracted from a JSON body of the form
// {"error": "...", "message": "..."} and default to "-". Status holds the
// response status text, e.g. "404 Not Found".
type StatusError struct {
	Kind       Kind
	StatusCode int
	Status     string
	Code       string
	Message    string
	Location   string
	Body       string
	Err        error
}

func (e *StatusError) Error() string {
	if e.Kind == KindRedirect {
		return fmt.Sprintf("%v: %d, location: %s", e.Err, e.StatusCode, e.Location)
	}

	return fmt.Sprintf("%v: %d, error: %s, message: %s", e.Err, e.StatusCode, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// errorPayload is the error document a JSON API is expected to answer with.
type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// parseErrorPayload never fails, missing values become "-".
func parseErrorPayload(body []byte) (code, message string) {
	code, message = "-", "-"

	var p errorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return code, message
	}

	if p.Error != "" {
		code = p.Error
	}
	if p.Message != "" {
		message = p.Message
	}

	return code, message
}

// isRedirect reports whether resp is a redirect that was not followed.
func isRedirect(resp *http.Response) bool {
	if resp.Header.Get("Location") == "" {
		return false
	}

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}

	return false
}

// statusKind returns the failure kind of resp, or "" when the response is acceptable.
func statusKind(resp *http.Response) Kind {
	switch {
	case isRedirect(resp):
		return KindRedirect
	case resp.StatusCode >= http.StatusInternalServerError:
		return KindServer
	case resp.StatusCode >= http.StatusBadRequest:
		return KindClient
	}

	return ""
}

func sentinelFor(kind Kind, statusCode int) error {
	var err error
	switch kind {
	case KindRedirect:
		err = ErrRedirect
	case KindServer:
		err = ErrServerStatus
	default:
		err = ErrClientStatus
	}

	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %w: %w", ErrAuthFailure, err, ErrUnexpectedStatusCode)
	}

	return fmt.Errorf("%w: %w", err, ErrUnexpectedStatusCode)
}

// errorName names a transport error for logging.
func errorName(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		if ue.Timeout() {
			return "timeout"
		}
		return fmt.Sprintf("%T", ue.Err)
	}

	return fmt.Sprintf("%T", err)
}
