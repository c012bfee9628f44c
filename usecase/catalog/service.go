package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/repository"
	"github.com/fastygo/tikshop/usecase/analytics"
)

const purchaseMessage = "Olá, tenho interesse na conta *%s* (ID: %s), preço %s %s. Meu nome: ___. Como proceder com o pagamento?"

// ViewRecorder is the slice of the visit aggregator the catalog needs.
type ViewRecorder interface {
	RecordView(ctx context.Context, in analytics.ViewInput)
	ViewsForSubject(ctx context.Context, id string) int
}

type ServiceConfig struct {
	WhatsAppNumber string
	Currency       string
}

// Service answers public catalog queries.
type Service struct {
	products repository.ProductRepository
	feed     repository.ChangeFeed
	views    ViewRecorder
	cfg      ServiceConfig
	logger   *zap.Logger
}

func NewService(products repository.ProductRepository, feed repository.ChangeFeed, views ViewRecorder, cfg ServiceConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Currency == "" {
		cfg.Currency = "MT"
	}
	return &Service{
		products: products,
		feed:     feed,
		views:    views,
		cfg:      cfg,
		logger:   logger,
	}
}

// List runs a catalog query. Filter changes go through here, so no view is
// recorded; page views belong to OpenSession.
func (s *Service) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	products, err := s.products.List(ctx, filter.Normalize())
	if err != nil {
		s.logger.Error("list products failed", zap.Error(err))
		return nil, wrapStoreError(err, errLoad)
	}
	return products, nil
}

// Get returns one product with its recorded view count and records a product view.
func (s *Service) Get(ctx context.Context, id string, visit analytics.ViewInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			s.logger.Error("get product failed", zap.String("id", id), zap.Error(err))
		}
		return nil, wrapStoreError(err, errLoad)
	}

	visit.SubjectID = product.ID
	s.record(ctx, visit)
	if s.views != nil {
		if n := int64(s.views.ViewsForSubject(ctx, product.ID)); n > product.Views {
			product.Views = n
		}
	}
	return product, nil
}

// PurchaseLink builds the WhatsApp deep link for an available product.
func (s *Service) PurchaseLink(ctx context.Context, id string) (string, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return "", wrapStoreError(err, errLoad)
	}
	return BuildPurchaseLink(product, s.cfg.WhatsAppNumber, s.cfg.Currency)
}

// OpenSession records one page view and returns the live view for a
// storefront visitor.
func (s *Service) OpenSession(ctx context.Context, filter domain.ProductFilter, visit analytics.ViewInput, opts ...Option) *Synchronizer {
	visit.SubjectID = ""
	s.record(ctx, visit)
	return s.NewSynchronizer(filter, opts...)
}

// NewSynchronizer builds a live view over the catalog for one consumer.
func (s *Service) NewSynchronizer(filter domain.ProductFilter, opts ...Option) *Synchronizer {
	opts = append([]Option{WithLogger(s.logger)}, opts...)
	return NewSynchronizer(s.products, s.feed, filter, opts...)
}

func (s *Service) record(ctx context.Context, visit analytics.ViewInput) {
	if s.views == nil {
		return
	}
	s.views.RecordView(ctx, visit)
}

// BuildPurchaseLink returns https://wa.me/<number>?text=<message>. The product
// number wins over the shop default.
func BuildPurchaseLink(p *domain.Product, defaultNumber, currency string) (string, error) {
	if p == nil || !p.IsAvailable() {
		return "", domain.ErrProductUnavailable
	}
	number := digitsOnly(p.WhatsAppNumber)
	if number == "" {
		number = digitsOnly(defaultNumber)
	}
	if number == "" {
		return "", domain.NewError(domain.ErrCodeInternal, "no contact number configured")
	}

	price := strconv.FormatFloat(p.Price, 'f', -1, 64)
	message := fmt.Sprintf(purchaseMessage, p.Title, p.ID, price, currency)
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + number + "?text=" + text, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
