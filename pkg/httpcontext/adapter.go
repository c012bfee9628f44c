package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/tikshop/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
	KeyClientID   Key = "client_id"
	KeyPath       Key = "path"

	// HeaderClientID identifies a browser across requests for preferences.
	HeaderClientID = "X-Client-ID"
)

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines and metadata.
type Adapter struct {
	timeout time.Duration
}

// NewAdapter constructs a new Adapter using the provided timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		timeout: timeout,
	}
}

// Attach creates a context with timeout derived from the adapter and enriches it with request metadata.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
	return enrich(stdCtx, ctx), cancel
}

// AttachStream is Attach without the deadline, for long-lived responses
// such as event streams. The caller must cancel it when the stream ends.
func (a *Adapter) AttachStream(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithCancel(context.Background())
	return enrich(stdCtx, ctx), cancel
}

func enrich(stdCtx context.Context, ctx *fasthttp.RequestCtx) context.Context {
	reqID := getRequestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)
	if ctx == nil {
		return stdCtx
	}
	ctx.Response.Header.Set("X-Request-ID", reqID)

	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr.String())
	}
	if ua := string(ctx.Request.Header.UserAgent()); ua != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, ua)
	}
	if clientID := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderClientID))); clientID != "" {
		stdCtx = context.WithValue(stdCtx, KeyClientID, clientID)
	}
	stdCtx = context.WithValue(stdCtx, KeyPath, string(ctx.Path()))
	return stdCtx
}

// ClientID returns the client id attached to ctx, if any.
func ClientID(ctx context.Context) string {
	return stringValue(ctx, KeyClientID)
}

// UserAgent returns the user agent attached to ctx, if any.
func UserAgent(ctx context.Context) string {
	return stringValue(ctx, KeyUserAgent)
}

// Path returns the request path attached to ctx, if any.
func Path(ctx context.Context) string {
	return stringValue(ctx, KeyPath)
}

func stringValue(ctx context.Context, key Key) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func getRequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if header := string(ctx.Request.Header.Peek("X-Request-ID")); strings.TrimSpace(header) != "" {
		return header
	}
	return uuid.NewString()
}
