// Package httputil carries the shared HTTP plumbing: JSON
// request/response helpers for the API handlers, and a small client
// abstraction for tools that talk to a running trackd.
package httputil

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// HTTPClient is the request surface the replay streamer and other
// trackd clients depend on. *http.Client satisfies it via
// StandardClient; MockHTTPClient stands in for tests.
type HTTPClient interface {
	Get(url string) (*http.Response, error)
	Post(url, contentType string, body io.Reader) (*http.Response, error)
}

// StandardClient wraps *http.Client to implement HTTPClient.
type StandardClient struct {
	*http.Client
}

// NewStandardClient wraps c, falling back to http.DefaultClient when
// c is nil.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &StandardClient{Client: c}
}

// Get issues a GET request.
func (c *StandardClient) Get(url string) (*http.Response, error) {
	return c.Client.Get(url)
}

// Post issues a POST request.
func (c *StandardClient) Post(url, contentType string, body io.Reader) (*http.Response, error) {
	return c.Client.Post(url, contentType, body)
}

// MockHTTPClient records every call and replays a queue of canned
// responses. Once the queue runs out it answers 200 with an empty
// body, so tests only queue the responses they care about.
type MockHTTPClient struct {
	mu    sync.Mutex
	calls []MockCall
	queue []*mockResponse
	next  int
}

// MockCall is one recorded request. The body is captured at call time
// because callers hand over single-use readers.
type MockCall struct {
	Method string
	URL    string
	Body   []byte
}

type mockResponse struct {
	status int
	body   string
	err    error
}

// NewMockHTTPClient creates an empty mock client.
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{}
}

// AddResponse queues a canned response.
func (m *MockHTTPClient) AddResponse(status int, body string) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, &mockResponse{status: status, body: body})
	return m
}

// AddError queues a transport-level failure.
func (m *MockHTTPClient) AddError(err error) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, &mockResponse{err: err})
	return m
}

// Get records a GET call and answers from the queue.
func (m *MockHTTPClient) Get(url string) (*http.Response, error) {
	return m.respond(MockCall{Method: http.MethodGet, URL: url})
}

// Post records a POST call, capturing the body, and answers from the
// queue.
func (m *MockHTTPClient) Post(url, contentType string, body io.Reader) (*http.Response, error) {
	var data []byte
	if body != nil {
		var err error
		data, err = io.ReadAll(body)
		if err != nil {
			return nil, err
		}
	}
	return m.respond(MockCall{Method: http.MethodPost, URL: url, Body: data})
}

func (m *MockHTTPClient) respond(call MockCall) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, call)

	if m.next < len(m.queue) {
		resp := m.queue[m.next]
		m.next++
		if resp.err != nil {
			return nil, resp.err
		}
		return &http.Response{
			StatusCode: resp.status,
			Body:       io.NopCloser(bytes.NewBufferString(resp.body)),
			Header:     make(http.Header),
		}, nil
	}

	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString("")),
		Header:     make(http.Header),
	}, nil
}

// Calls returns a copy of the recorded calls in order.
func (m *MockHTTPClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of recorded calls.
func (m *MockHTTPClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
