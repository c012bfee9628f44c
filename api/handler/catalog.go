package handler

import (
	"bufio"
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/api/transport"
	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/pkg/httpcontext"
	"github.com/fastygo/tikshop/usecase/analytics"
	"github.com/fastygo/tikshop/usecase/catalog"
)

const (
	streamHeartbeat = 15 * time.Second
	streamBuffer    = 8
)

type CatalogService interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	Get(ctx context.Context, id string, visit analytics.ViewInput) (*domain.Product, error)
	PurchaseLink(ctx context.Context, id string) (string, error)
	OpenSession(ctx context.Context, filter domain.ProductFilter, visit analytics.ViewInput, opts ...catalog.Option) *catalog.Synchronizer
}

type CatalogHandler struct {
	baseHandler
	svc CatalogService
}

func NewCatalogHandler(svc CatalogService, adapter *httpcontext.Adapter, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		baseHandler: newBaseHandler(adapter, logger),
		svc:         svc,
	}
}

// @Summary List products
// @Tags catalog
// @Router /api/v1/products [get]
func (h *CatalogHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	filter := filterFromQuery(ctx)
	products, err := h.svc.List(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewList(products, len(products), filter))
}

// @Summary Get product
// @Tags catalog
// @Router /api/v1/products/{id} [get]
func (h *CatalogHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	product, err := h.svc.Get(stdCtx, pathID(ctx), visitFrom(stdCtx))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, product)
}

// @Summary WhatsApp purchase link
// @Tags catalog
// @Router /api/v1/products/{id}/purchase-link [get]
func (h *CatalogHandler) PurchaseLink(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	link, err := h.svc.PurchaseLink(stdCtx, pathID(ctx))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.PurchaseLinkResponse{URL: link})
}

type catalogUpdate struct {
	state    catalog.State
	products []domain.Product
	err      error
}

// @Summary Live catalog stream
// @Description Server-sent events: one "catalog" event per view change, "error" when updates stop.
// @Tags catalog
// @Router /api/v1/catalog/stream [get]
func (h *CatalogHandler) Stream(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.streamContext(ctx)
	filter := filterFromQuery(ctx)
	log := h.logger.With(zap.String("client_id", httpcontext.ClientID(stdCtx)))

	updates := make(chan catalogUpdate, streamBuffer)
	var s *catalog.Synchronizer
	s = h.svc.OpenSession(stdCtx, filter, visitFrom(stdCtx), catalog.WithOnUpdate(func(view []domain.Product, err error) {
		pushLatest(updates, catalogUpdate{state: s.State(), products: view, err: err})
	}))

	prepareStream(ctx)
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer s.Close()

		if err := s.Start(stdCtx); err != nil {
			log.Debug("catalog stream start failed", zap.Error(err))
		}

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-stdCtx.Done():
				return
			case <-heartbeat.C:
				if err := writeComment(w, "ping"); err != nil {
					return
				}
			case update := <-updates:
				if update.err != nil {
					_ = writeEvent(w, "error", transport.ErrorEvent{Message: domain.UserMessage(update.err)})
					return
				}
				state := update.state
				if state == "" || state == catalog.StateLoading {
					state = catalog.StateLive
				}
				event := transport.CatalogEvent{
					State:    string(state),
					Products: update.products,
					Count:    len(update.products),
				}
				if err := writeEvent(w, "catalog", event); err != nil {
					log.Debug("catalog stream client gone", zap.Error(err))
					return
				}
			}
		}
	})
}

// pushLatest drops the oldest pending update once a slow client fills the buffer.
func pushLatest(ch chan catalogUpdate, update catalogUpdate) {
	for {
		select {
		case ch <- update:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func filterFromQuery(ctx *fasthttp.RequestCtx) domain.ProductFilter {
	args := ctx.QueryArgs()
	return domain.ParseFilter(
		string(args.Peek("status")),
		string(args.Peek("sort")),
		string(args.Peek("max_price")),
		string(args.Peek("min_followers")),
	)
}

func visitFrom(ctx context.Context) analytics.ViewInput {
	return analytics.ViewInput{
		Path:      httpcontext.Path(ctx),
		UserAgent: httpcontext.UserAgent(ctx),
	}
}
