package httpcontext

import (
	"testing"
	"time"

	"github.com/valyala/fasthttp"
)

func TestAdapter_Attach(t *testing.T) {
	var rc fasthttp.RequestCtx
	rc.Request.SetRequestURI("/api/v1/products?status=sold")
	rc.Request.Header.Set("X-Request-ID", "req-1")
	rc.Request.Header.Set(HeaderClientID, "client-7")
	rc.Request.Header.SetUserAgent("test-agent")

	ctx, cancel := NewAdapter(time.Second).Attach(&rc)
	defer cancel()

	if _, ok := ctx.Deadline(); !ok {
		t.Error("Attach() context has no deadline")
	}
	if got := ClientID(ctx); got != "client-7" {
		t.Errorf("ClientID() = %q, want client-7", got)
	}
	if got := UserAgent(ctx); got != "test-agent" {
		t.Errorf("UserAgent() = %q, want test-agent", got)
	}
	if got := Path(ctx); got != "/api/v1/products" {
		t.Errorf("Path() = %q, want /api/v1/products", got)
	}
	if got := string(rc.Response.Header.Peek("X-Request-ID")); got != "req-1" {
		t.Errorf("X-Request-ID = %q, want req-1", got)
	}
}

func TestAdapter_AttachStream(t *testing.T) {
	var rc fasthttp.RequestCtx
	rc.Request.SetRequestURI("/stream")

	ctx, cancel := NewAdapter(time.Second).AttachStream(&rc)
	if _, ok := ctx.Deadline(); ok {
		t.Error("AttachStream() context should not have a deadline")
	}
	if len(rc.Response.Header.Peek("X-Request-ID")) == 0 {
		t.Error("AttachStream() should assign a request id")
	}
	if ClientID(ctx) != "" {
		t.Error("ClientID() should be empty without the header")
	}
	cancel()
	if ctx.Err() == nil {
		t.Error("context not cancelled")
	}
}
