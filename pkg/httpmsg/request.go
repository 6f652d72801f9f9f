package httpmsg

import (
	"fmt"
	"net/http"
	"net/url"
)

// Request is an immutable-in-intent representation of an HTTP request.
// Callers that need to hand a Request to code they do not control should
// pass a Clone.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// NewRequest builds a Request for the given method and URL. An empty method
// defaults to GET, matching what a transport collaborator would assume.
func NewRequest(method, rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("httpmsg: parse request url: %w", err)
	}
	if method == "" {
		method = http.MethodGet
	}
	return &Request{
		Method: method,
		URL:    u,
		Header: make(http.Header),
	}, nil
}

// Clone returns a deep copy of the request. The copy shares no mutable state
// with the original: URL, headers, and body are all duplicated.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := &Request{
		Method: r.Method,
		Header: cloneHeader(r.Header),
		Body:   cloneBody(r.Body),
	}
	if r.URL != nil {
		u := *r.URL
		if r.URL.User != nil {
			user := *r.URL.User
			u.User = &user
		}
		out.URL = &u
	}
	return out
}

// BodyString returns the body as a string.
func (r *Request) BodyString() string {
	return string(r.Body)
}

// SetBodyString replaces the body with the given text.
func (r *Request) SetBodyString(s string) {
	r.Body = []byte(s)
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return make(http.Header)
	}
	out := make(http.Header, len(h))
	for k, vv := range h {
		values := make([]string, len(vv))
		copy(values, vv)
		out[k] = values
	}
	return out
}

func cloneBody(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
