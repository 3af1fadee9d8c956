package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Decode reads the JSON body of resp into a T and closes the body.
// It does not look at the status code.
func Decode[T any](resp *http.Response, opts ...DecodeOption) (T, error) {
	var v T
	if resp == nil || resp.Body == nil {
		return v, errors.New("response has no body")
	}

	var settings decodeOpts
	for _, opt := range opts {
		opt(&settings)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	d := json.NewDecoder(resp.Body)
	if settings.useJSONNum {
		d.UseNumber()
	}

	if err := d.Decode(&v); err != nil {
		return v, fmt.Errorf("decoding body: %w", err)
	}

	return v, nil
}
