package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/api/transport"
	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/pkg/httpcontext"
	"github.com/fastygo/tikshop/pkg/imagecodec"
	"github.com/fastygo/tikshop/usecase/product"
)

type ProductService interface {
	Create(ctx context.Context, in product.Input) (*domain.Product, error)
	Update(ctx context.Context, id string, in product.Input) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	ChangeStatus(ctx context.Context, id, action string) error
}

type ImageService interface {
	Process(ctx context.Context, payload string, crop *imagecodec.Crop) (string, error)
}

type DashboardService interface {
	Summary(ctx context.Context) domain.DashboardSummary
	RefreshVisits(ctx context.Context) domain.VisitStats
}

type AnalyticsResetter interface {
	ClearAll(ctx context.Context) bool
}

var errClearAnalytics = domain.NewError(domain.ErrCodeInternal, "could not clear analytics")

type AdminHandler struct {
	baseHandler
	products  ProductService
	images    ImageService
	dashboard DashboardService
	analytics AnalyticsResetter
}

func NewAdminHandler(products ProductService, images ImageService, dashboard DashboardService, analytics AnalyticsResetter, adapter *httpcontext.Adapter, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		baseHandler: newBaseHandler(adapter, logger),
		products:    products,
		images:      images,
		dashboard:   dashboard,
		analytics:   analytics,
	}
}

// @Summary Create product
// @Tags admin
// @Router /api/v1/admin/products [post]
func (h *AdminHandler) CreateProduct(ctx *fasthttp.RequestCtx) {
	var req transport.ProductRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.products.Create(stdCtx, toProductInput(req))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update product
// @Tags admin
// @Router /api/v1/admin/products/{id} [put]
func (h *AdminHandler) UpdateProduct(ctx *fasthttp.RequestCtx) {
	var req transport.ProductRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.products.Update(stdCtx, pathID(ctx), toProductInput(req))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Delete product
// @Tags admin
// @Router /api/v1/admin/products/{id} [delete]
func (h *AdminHandler) DeleteProduct(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.products.Delete(stdCtx, pathID(ctx)); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Change product status
// @Description action is one of mark_sold, mark_available, reserve.
// @Tags admin
// @Router /api/v1/admin/products/{id}/{action} [post]
func (h *AdminHandler) ChangeStatus(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	action, _ := ctx.UserValue("action").(string)
	if err := h.products.ChangeStatus(stdCtx, pathID(ctx), action); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Process image
// @Description Crops, resizes and compresses an uploaded image into a JPEG data URL.
// @Tags admin
// @Router /api/v1/admin/images [post]
func (h *AdminHandler) ProcessImage(ctx *fasthttp.RequestCtx) {
	var req transport.ImageRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	processed, err := h.images.Process(stdCtx, req.Image, toCrop(req.Crop))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.ImageResponse{
		Image: processed,
		Size:  imagecodec.Size(processed),
	})
}

// @Summary Admin dashboard
// @Tags admin
// @Router /api/v1/admin/dashboard [get]
func (h *AdminHandler) Dashboard(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	h.respondSuccess(ctx, http.StatusOK, h.dashboard.Summary(stdCtx))
}

// @Summary Clear analytics
// @Tags admin
// @Router /api/v1/admin/analytics [delete]
func (h *AdminHandler) ClearAnalytics(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if !h.analytics.ClearAll(stdCtx) {
		h.respondError(ctx, stdCtx, errClearAnalytics)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, h.dashboard.RefreshVisits(stdCtx))
}

func toProductInput(req transport.ProductRequest) product.Input {
	return product.Input{
		Title:          req.Title,
		Price:          req.Price,
		Followers:      req.Followers,
		Status:         req.Status,
		Description:    req.Description,
		WhatsAppNumber: req.WhatsAppNumber,
		Likes:          req.Stats.Likes,
		Videos:         req.Stats.Videos,
		Bio:            req.Stats.Bio,
		MainImage:      req.MainImage,
		MainImageCrop:  toCrop(req.MainImageCrop),
		Images:         req.Images,
	}
}

func toCrop(c *transport.CropBody) *imagecodec.Crop {
	if c == nil {
		return nil
	}
	return &imagecodec.Crop{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
}
