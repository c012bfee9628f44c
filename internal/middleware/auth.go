package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const sessionIDKey = "admin_session_id"

// SessionValidator is implemented by the admin session guard.
type SessionValidator interface {
	ParseToken(token string) (string, error)
	ValidateSession(ctx context.Context, id string) error
}

// AdminSession lets a request through only while its admin session is valid.
// Any failure answers 303 to the public entry point with no body.
func AdminSession(guard SessionValidator, entryPoint string, timeout time.Duration, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if entryPoint == "" {
		entryPoint = "/"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			sessionID, err := guard.ParseToken(extractToken(ctx))
			if err == nil {
				checkCtx, cancel := context.WithTimeout(context.Background(), timeout)
				err = guard.ValidateSession(checkCtx, sessionID)
				cancel()
			}
			if err != nil {
				logger.Debug("admin session rejected", zap.String("path", string(ctx.Path())), zap.Error(err))
				ctx.Response.Header.Set("Location", entryPoint)
				ctx.SetStatusCode(fasthttp.StatusSeeOther)
				ctx.ResetBody()
				return
			}

			ctx.SetUserValue(sessionIDKey, sessionID)
			next(ctx)
		}
	}
}

// SessionID returns the admin session id stored by AdminSession.
func SessionID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue(sessionIDKey).(string)
	return id
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		// event streams cannot set headers
		return string(ctx.QueryArgs().Peek("access_token"))
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
