package ports

import "net/http"

// HTTPClient is the one-method slice of *http.Client the gateway
// transport depends on. Tests substitute a hand-written double and
// production wires the pooled client from pkg/http.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
