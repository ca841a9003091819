// Package mocks holds hand-written test doubles for the adapter ports.
package mocks

import (
	"io"
	"net/http"
	"strings"
)

// MockHTTPClient implements ports.HTTPClient with a scriptable Do. Every
// request that passes through is recorded in Calls so tests can assert on
// what actually went over the wire.
type MockHTTPClient struct {
	DoFunc func(*http.Request) (*http.Response, error)
	Calls  []*http.Request
}

func NewMockHTTPClient(do func(*http.Request) (*http.Response, error)) *MockHTTPClient {
	return &MockHTTPClient{DoFunc: do}
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.Calls = append(m.Calls, req)
	if m.DoFunc == nil {
		return XMLResponse(http.StatusOK, `<response><codigo>00</codigo></response>`), nil
	}
	return m.DoFunc(req)
}

// Reset forgets recorded calls so one mock can serve several subtests.
func (m *MockHTTPClient) Reset() {
	m.Calls = nil
}

// XMLResponse wraps a body the way the gateway answers, for DoFunc scripts.
func XMLResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"text/xml"}},
	}
}
