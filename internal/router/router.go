package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/tikshop/api/handler"
)

// Server-sent event routes. They are served under the stream write timeout.
const (
	CatalogStreamPath = "/api/v1/catalog/stream"
	CountdownPath     = "/api/v1/admin/session/countdown"
)

// StreamPaths lists the long-lived routes.
func StreamPaths() []string {
	return []string{CatalogStreamPath, CountdownPath}
}

type Handlers struct {
	Catalog     *apiHandler.CatalogHandler
	Preferences *apiHandler.PreferencesHandler
	Session     *apiHandler.SessionHandler
	Admin       *apiHandler.AdminHandler
	Health      *apiHandler.HealthHandler
}

func New(handlers Handlers, adminMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Public catalog
	r.GET("/api/v1/products", handlers.Catalog.List)
	r.GET("/api/v1/products/{id}", handlers.Catalog.Get)
	r.GET("/api/v1/products/{id}/purchase-link", handlers.Catalog.PurchaseLink)
	r.GET(CatalogStreamPath, handlers.Catalog.Stream)

	r.GET("/api/v1/preferences/theme", handlers.Preferences.GetTheme)
	r.PUT("/api/v1/preferences/theme", handlers.Preferences.SetTheme)

	// Admin session
	r.POST("/api/v1/admin/login", handlers.Session.Login)
	r.POST("/api/v1/admin/logout", adminMiddleware(handlers.Session.Logout))
	r.GET("/api/v1/admin/session", adminMiddleware(handlers.Session.Status))
	r.GET(CountdownPath, adminMiddleware(handlers.Session.Countdown))

	// Admin actions
	r.GET("/api/v1/admin/dashboard", adminMiddleware(handlers.Admin.Dashboard))
	r.DELETE("/api/v1/admin/analytics", adminMiddleware(handlers.Admin.ClearAnalytics))
	r.POST("/api/v1/admin/images", adminMiddleware(handlers.Admin.ProcessImage))
	r.POST("/api/v1/admin/products", adminMiddleware(handlers.Admin.CreateProduct))
	r.PUT("/api/v1/admin/products/{id}", adminMiddleware(handlers.Admin.UpdateProduct))
	r.DELETE("/api/v1/admin/products/{id}", adminMiddleware(handlers.Admin.DeleteProduct))
	r.POST("/api/v1/admin/products/{id}/{action}", adminMiddleware(handlers.Admin.ChangeStatus))

	return r
}
