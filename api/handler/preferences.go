package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/api/transport"
	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/pkg/httpcontext"
	"github.com/fastygo/tikshop/repository"
)

const themeKey = "theme"

type PreferencesHandler struct {
	baseHandler
	store repository.PreferenceStore
}

func NewPreferencesHandler(store repository.PreferenceStore, adapter *httpcontext.Adapter, logger *zap.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		baseHandler: newBaseHandler(adapter, logger),
		store:       store,
	}
}

// @Summary Get theme preference
// @Tags preferences
// @Router /api/v1/preferences/theme [get]
func (h *PreferencesHandler) GetTheme(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	theme := domain.ThemeDark
	if clientID := httpcontext.ClientID(stdCtx); clientID != "" {
		stored, err := h.store.GetPreference(stdCtx, clientID, themeKey)
		if err != nil {
			h.logger.Warn("read theme preference failed", zap.String("client_id", clientID), zap.Error(err))
		} else if domain.Theme(stored).Valid() {
			theme = domain.Theme(stored)
		}
	}
	h.respondSuccess(ctx, http.StatusOK, transport.ThemeResponse{Theme: string(theme)})
}

// @Summary Save theme preference
// @Tags preferences
// @Router /api/v1/preferences/theme [put]
func (h *PreferencesHandler) SetTheme(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	clientID := httpcontext.ClientID(stdCtx)
	if clientID == "" {
		h.respondInvalid(ctx, "missing "+httpcontext.HeaderClientID+" header")
		return
	}

	var req transport.ThemeRequest
	if !h.decode(ctx, &req) {
		return
	}
	if !domain.Theme(req.Theme).Valid() {
		h.respondInvalid(ctx, "theme must be dark or light")
		return
	}

	if err := h.store.SetPreference(stdCtx, clientID, themeKey, req.Theme); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.ThemeResponse{Theme: req.Theme})
}
