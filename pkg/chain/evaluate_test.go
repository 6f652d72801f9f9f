package chain

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/relaykit/relay/pkg/httpmsg"
)

func testRequest(t testing.TB) *httpmsg.Request {
	t.Helper()
	req, err := httpmsg.NewRequest(http.MethodGet, "http://localhost/")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func TestEvaluateEmptySequence(t *testing.T) {
	fallback := httpmsg.NewResponse(http.StatusNotFound)
	fallback.Header.Set("X-Origin", "fallback")

	resp, err := Evaluate(context.Background(), testRequest(t), fallback)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp == fallback {
		t.Fatal("result is instance-equal to the fallback")
	}
	if resp.StatusCode != http.StatusNotFound || resp.Header.Get("X-Origin") != "fallback" {
		t.Errorf("result content diverged from fallback: %d %q", resp.StatusCode, resp.Header.Get("X-Origin"))
	}

	// The result must be freely mutable without reaching the fallback.
	resp.Header.Set("X-Origin", "caller")
	if fallback.Header.Get("X-Origin") != "fallback" {
		t.Error("mutating the result reached the fallback instance")
	}
}

func TestEvaluateNilFallbackDefaultsToNotFound(t *testing.T) {
	resp, err := Evaluate(context.Background(), testRequest(t), nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 default, got %d", resp.StatusCode)
	}
	if len(resp.Body) != 0 {
		t.Errorf("expected empty default body, got %q", resp.Body)
	}
}

func TestEvaluateNilRequestPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil request")
		}
	}()
	_, _ = Evaluate(context.Background(), nil, nil)
}

func TestShortCircuit(t *testing.T) {
	h0Resp := httpmsg.NewResponse(http.StatusOK)
	h0Resp.SetBodyString("from h0")

	h1Calls := 0
	h0 := func(_ context.Context, _ *httpmsg.Request, _ Next) (*httpmsg.Response, error) {
		return h0Resp, nil
	}
	h1 := func(ctx context.Context, _ *httpmsg.Request, next Next) (*httpmsg.Response, error) {
		h1Calls++
		return next(ctx, nil)
	}

	resp, err := Evaluate(context.Background(), testRequest(t), nil, h0, h1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if h1Calls != 0 {
		t.Errorf("h1 invoked %d times, expected 0", h1Calls)
	}
	if resp.BodyString() != "from h0" || resp.StatusCode != http.StatusOK {
		t.Errorf("unexpected result: %d %q", resp.StatusCode, resp.BodyString())
	}
	if resp == h0Resp {
		t.Error("result is instance-equal to the handler's response")
	}
}

func TestDelegation(t *testing.T) {
	h1Calls := 0
	h0 := func(ctx context.Context, _ *httpmsg.Request, next Next) (*httpmsg.Response, error) {
		return next(ctx, nil)
	}
	h1 := func(_ context.Context, _ *httpmsg.Request, _ Next) (*httpmsg.Response, error) {
		h1Calls++
		resp := httpmsg.NewResponse(http.StatusOK)
		resp.SetBodyString("from h1")
		return resp, nil
	}

	resp, err := Evaluate(context.Background(), testRequest(t), nil, h0, h1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if h1Calls != 1 {
		t.Errorf("h1 invoked %d times, expected 1", h1Calls)
	}
	if resp.BodyString() != "from h1" {
		t.Errorf("expected h1's body, got %q", resp.BodyString())
	}
}

func TestRequestMutationDoesNotLeakWithoutForwarding(t *testing.T) {
	h0 := func(ctx context.Context, req *httpmsg.Request, next Next) (*httpmsg.Response, error) {
		req.Header.Set("X-Mutated", "yes")
		return next(ctx, nil) // proceed with the *current* request, not the mutated one
	}
	h1 := func(_ context.Context, req *httpmsg.Request, _ Next) (*httpmsg.Response, error) {
		if req.Header.Get("X-Mutated") != "" {
			t.Error("h1 observed h0's unforwarded mutation")
		}
		return httpmsg.NewResponse(http.StatusOK), nil
	}

	if _, err := Evaluate(context.Background(), testRequest(t), nil, h0, h1); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
}

func TestRequestMutationForwardedExplicitly(t *testing.T) {
	var forwarded *httpmsg.Request
	h0 := func(ctx context.Context, req *httpmsg.Request, next Next) (*httpmsg.Response, error) {
		req.Header.Set("X-Mutated", "yes")
		forwarded = req
		return next(ctx, req)
	}
	h1 := func(_ context.Context, req *httpmsg.Request, _ Next) (*httpmsg.Response, error) {
		if req.Header.Get("X-Mutated") != "yes" {
			t.Error("h1 did not observe the forwarded mutation")
		}
		if req == forwarded {
			t.Error("h1 received the forwarded instance itself instead of a duplicate")
		}
		return httpmsg.NewResponse(http.StatusOK), nil
	}

	if _, err := Evaluate(context.Background(), testRequest(t), nil, h0, h1); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
}

func TestResponseDuplicationAcrossStack(t *testing.T) {
	var h1Returned *httpmsg.Response
	h0 := func(ctx context.Context, _ *httpmsg.Request, next Next) (*httpmsg.Response, error) {
		resp, err := next(ctx, nil)
		if err != nil {
			return nil, err
		}
		if resp == h1Returned {
			t.Error("h0 received h1's instance rather than a duplicate")
		}
		if resp.BodyString() != h1Returned.BodyString() || resp.StatusCode != h1Returned.StatusCode {
			t.Errorf("duplicate content diverged: %d %q", resp.StatusCode, resp.BodyString())
		}
		// Mutating the received duplicate must not touch h1's copy.
		resp.SetBodyString("scribbled")
		return resp, nil
	}
	h1 := func(_ context.Context, _ *httpmsg.Request, _ Next) (*httpmsg.Response, error) {
		h1Returned = httpmsg.NewResponse(http.StatusOK)
		h1Returned.SetBodyString("payload")
		return h1Returned, nil
	}

	resp, err := Evaluate(context.Background(), testRequest(t), nil, h0, h1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if h1Returned.BodyString() != "payload" {
		t.Errorf("h0's mutation reached h1's instance: %q", h1Returned.BodyString())
	}
	if resp.BodyString() != "scribbled" {
		t.Errorf("expected h0's final body, got %q", resp.BodyString())
	}
}

func TestReentryShortCircuits(t *testing.T) {
	h1Calls := 0
	h0 := func(ctx context.Context, _ *httpmsg.Request, next Next) (*httpmsg.Response, error) {
		first, err := next(ctx, nil)
		if err != nil {
			return nil, err
		}
		// Misbehaving handler: re-enter the same tail. The engine must not
		// run h1 again; it answers with a duplicate of the current response.
		second, err := next(ctx, nil)
		if err != nil {
			return nil, err
		}
		if second.StatusCode != http.StatusNotFound {
			t.Errorf("reentry result should duplicate the fallback, got status %d", second.StatusCode)
		}
		if second == first {
			t.Error("reentry returned a previously seen instance")
		}
		return first, nil
	}
	h1 := func(_ context.Context, _ *httpmsg.Request, _ Next) (*httpmsg.Response, error) {
		h1Calls++
		resp := httpmsg.NewResponse(http.StatusOK)
		resp.SetBodyString("once")
		return resp, nil
	}

	resp, err := Evaluate(context.Background(), testRequest(t), nil, h0, h1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if h1Calls != 1 {
		t.Errorf("h1 invoked %d times, expected exactly 1", h1Calls)
	}
	if resp.BodyString() != "once" {
		t.Errorf("expected first pass result, got %q", resp.BodyString())
	}
}

func TestHandlerErrorPropagates(t *testing.T) {
	sentinel := errors.New("backend exploded")
	h0 := func(ctx context.Context, _ *httpmsg.Request, next Next) (*httpmsg.Response, error) {
		return next(ctx, nil)
	}
	h1 := func(_ context.Context, _ *httpmsg.Request, _ Next) (*httpmsg.Response, error) {
		return nil, sentinel
	}

	resp, err := Evaluate(context.Background(), testRequest(t), nil, h0, h1)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if resp != nil {
		t.Errorf("expected nil response on failure, got %+v", resp)
	}
}

func TestHandlerReceivesRequestDuplicate(t *testing.T) {
	caller := testRequest(t)
	caller.Header.Set("X-Caller", "original")

	h0 := func(_ context.Context, req *httpmsg.Request, _ Next) (*httpmsg.Response, error) {
		if req == caller {
			t.Error("handler received the caller's request instance")
		}
		if req.Header.Get("X-Caller") != "original" {
			t.Error("handler's duplicate lost caller content")
		}
		req.Header.Set("X-Caller", "mutated")
		return httpmsg.NewResponse(http.StatusOK), nil
	}

	if _, err := Evaluate(context.Background(), caller, nil, h0); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if caller.Header.Get("X-Caller") != "original" {
		t.Error("handler mutation reached the caller's request")
	}
}

func TestHandlerNilResponseNilError(t *testing.T) {
	broken := func(_ context.Context, _ *httpmsg.Request, _ Next) (*httpmsg.Response, error) {
		return nil, nil
	}

	resp, err := Evaluate(context.Background(), testRequest(t), nil, broken)
	if !errors.Is(err, ErrNilResponse) {
		t.Fatalf("expected ErrNilResponse, got %v", err)
	}
	if resp != nil {
		t.Errorf("expected nil response alongside the error, got %+v", resp)
	}
}

// A handler may give up on an in-flight delegation and call next again, the
// way the timeout middleware abandons its goroutine on deadline. The retry
// then overlaps the abandoned goroutine still walking the tail, so the
// reentry guard must tolerate that overlap.
func TestNextRetryOverlapsAbandonedDelegate(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	slow := func(ctx context.Context, _ *httpmsg.Request, next Next) (*httpmsg.Response, error) {
		close(entered)
		<-release
		return next(ctx, nil)
	}
	terminal := func(_ context.Context, _ *httpmsg.Request, _ Next) (*httpmsg.Response, error) {
		return httpmsg.NewResponse(http.StatusOK), nil
	}
	racer := func(ctx context.Context, _ *httpmsg.Request, next Next) (*httpmsg.Response, error) {
		delegate := make(chan struct{})
		go func() {
			defer close(delegate)
			_, _ = next(ctx, nil)
		}()
		<-entered
		close(release)
		resp, err := next(ctx, nil)
		<-delegate
		return resp, err
	}

	resp, err := Evaluate(context.Background(), testRequest(t), nil, racer, slow, terminal)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// The retried tail had already begun, so the retry yields the fallback.
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected the fallback for the retried tail, got %d", resp.StatusCode)
	}
}
