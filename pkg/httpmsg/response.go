package httpmsg

import "net/http"

// Response is an immutable-in-intent representation of an HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewResponse builds a Response with the given status code and an empty body.
func NewResponse(status int) *Response {
	return &Response{
		StatusCode: status,
		Header:     make(http.Header),
	}
}

// NotFound returns the default fallback response: an empty-bodied 404. The
// chain returns a duplicate of it when no handler produces a response.
func NotFound() *Response {
	return NewResponse(http.StatusNotFound)
}

// Clone returns a deep copy of the response with no shared mutable state.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	return &Response{
		StatusCode: r.StatusCode,
		Header:     cloneHeader(r.Header),
		Body:       cloneBody(r.Body),
	}
}

// BodyString returns the body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}

// SetBodyString replaces the body with the given text.
func (r *Response) SetBodyString(s string) {
	r.Body = []byte(s)
}
