package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// ErrSuperseded marks a response that arrived after a newer request for the
// same resource was issued. The caller discards the result and keeps waiting
// for the newest request to land.
var ErrSuperseded = errors.New("superseded by a newer request")

// CircuitOpenFallback converts an open-circuit rejection into a structured
// error with a retry hint instead of letting the raw ErrCircuitOpen propagate.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("commerce platform is temporarily unavailable, please retry after 30 seconds")
}

// getJSON performs a GET against the commerce platform and decodes a JSON
// body into out. Non-2xx responses surface through ParseResponseError with
// the server's own message preserved.
func getJSON(ctx context.Context, client HTTPDoer, url, upstream string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", upstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call %s: %w", upstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, upstream)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", upstream, err)
	}

	return nil
}
