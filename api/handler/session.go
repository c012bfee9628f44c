package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/api/transport"
	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/internal/middleware"
	"github.com/fastygo/tikshop/pkg/httpcontext"
	"github.com/fastygo/tikshop/usecase/session"
)

type SessionService interface {
	Login(ctx context.Context, password string) (*session.LoginResult, error)
	EndSession(ctx context.Context, id string) error
	RemainingTime(ctx context.Context, id string) time.Duration
	Watch(ctx context.Context, id string, onTick func(time.Duration)) error
}

type SessionHandler struct {
	baseHandler
	guard      SessionService
	entryPoint string
}

func NewSessionHandler(guard SessionService, entryPoint string, adapter *httpcontext.Adapter, logger *zap.Logger) *SessionHandler {
	if entryPoint == "" {
		entryPoint = "/"
	}
	return &SessionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		guard:       guard,
		entryPoint:  entryPoint,
	}
}

// @Summary Admin login
// @Tags admin
// @Router /api/v1/admin/login [post]
func (h *SessionHandler) Login(ctx *fasthttp.RequestCtx) {
	var req transport.LoginRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.guard.Login(stdCtx, req.Password)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}

	h.respondSuccess(ctx, http.StatusOK, transport.LoginResponse{
		Token:            result.Token,
		SessionID:        result.SessionID,
		ExpiresAt:        result.ExpiresAt,
		RemainingSeconds: int(result.Remaining / time.Second),
	})
}

// @Summary Admin logout
// @Tags admin
// @Router /api/v1/admin/logout [post]
func (h *SessionHandler) Logout(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.guard.EndSession(stdCtx, middleware.SessionID(ctx)); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Admin session status
// @Tags admin
// @Router /api/v1/admin/session [get]
func (h *SessionHandler) Status(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	remaining := h.guard.RemainingTime(stdCtx, middleware.SessionID(ctx))
	h.respondSuccess(ctx, http.StatusOK, transport.SessionResponse{
		Authenticated:    remaining > 0,
		RemainingSeconds: int(remaining / time.Second),
	})
}

// @Summary Session countdown stream
// @Description Server-sent events: "tick" every second, then "logout" when the session runs out.
// @Tags admin
// @Router /api/v1/admin/session/countdown [get]
func (h *SessionHandler) Countdown(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.streamContext(ctx)
	sessionID := middleware.SessionID(ctx)
	log := h.logger.With(zap.String("session_id", sessionID))

	prepareStream(ctx)
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		err := h.guard.Watch(stdCtx, sessionID, func(remaining time.Duration) {
			tick := transport.CountdownEvent{
				RemainingSeconds: int(remaining / time.Second),
				Display:          formatCountdown(remaining),
			}
			if err := writeEvent(w, "tick", tick); err != nil {
				log.Debug("countdown client gone", zap.Error(err))
				cancel()
			}
		})
		if errors.Is(err, domain.ErrSessionExpired) {
			_ = writeEvent(w, "logout", transport.LogoutEvent{
				Reason:   domain.ErrSessionExpired.Message,
				Redirect: h.entryPoint,
			})
		}
	})
}

// formatCountdown renders d as MM:SS.
func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
