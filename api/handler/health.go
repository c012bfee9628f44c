package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/api/transport"
	"github.com/fastygo/tikshop/internal/infrastructure/monitor"
	"github.com/fastygo/tikshop/pkg/httpcontext"
)

type StatusReporter interface {
	GetStatus() monitor.Status
}

type eventLogHealth struct {
	Online bool `json:"online"`
	Events int  `json:"events"`
}

type dependencyHealth struct {
	PostgreSQL bool           `json:"postgresql"`
	Redis      bool           `json:"redis"`
	EventLog   eventLogHealth `json:"event_log"`
}

type healthReport struct {
	Timestamp time.Time        `json:"timestamp"`
	Services  dependencyHealth `json:"services"`
	LastCheck time.Time        `json:"last_check"`
}

// HealthHandler reports dependency state. The event log is informational:
// the storefront keeps serving without analytics.
type HealthHandler struct {
	baseHandler
	reporter StatusReporter
}

func NewHealthHandler(reporter StatusReporter, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		reporter:    reporter,
	}
}

func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	st := h.reporter.GetStatus()
	report := healthReport{
		Timestamp: time.Now().UTC(),
		Services: dependencyHealth{
			PostgreSQL: st.PostgreSQL,
			Redis:      st.Redis,
			EventLog:   eventLogHealth{Online: st.EventLog, Events: st.Events},
		},
		LastCheck: st.LastCheck,
	}

	if !st.PostgreSQL || !st.Redis {
		h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", report))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, report)
}
