package product

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/pkg/imagecodec"
	"github.com/fastygo/tikshop/repository"
	"github.com/fastygo/tikshop/usecase"
)

// Status actions accepted by ChangeStatus.
const (
	ActionMarkSold      = "mark_sold"
	ActionMarkAvailable = "mark_available"
	ActionReserve       = "reserve"

	commandPrefix = "product."
)

var actionStatus = map[string]domain.ProductStatus{
	ActionMarkSold:      domain.StatusSold,
	ActionMarkAvailable: domain.StatusAvailable,
	ActionReserve:       domain.StatusReserved,
}

// ImageProcessor is the image pipeline used on every save.
type ImageProcessor interface {
	Process(ctx context.Context, payload string, crop *imagecodec.Crop) (string, error)
	ProcessAll(ctx context.Context, payloads []string) ([]string, error)
}

// Input is the admin form payload. Nil or empty images on update keep the
// stored ones.
type Input struct {
	Title          string           `json:"title" validate:"min=2"`
	Price          float64          `json:"price" validate:"gte=0,lte=1000000"`
	Followers      int64            `json:"followers" validate:"gte=0,lte=100000000"`
	Status         string           `json:"status" validate:"omitempty,oneof=available reserved sold"`
	Description    string           `json:"description" validate:"max=1000"`
	WhatsAppNumber string           `json:"whatsapp_number" validate:"omitempty,max=32"`
	Likes          int64            `json:"likes"`
	Videos         int64            `json:"videos"`
	Bio            string           `json:"bio"`
	MainImage      string           `json:"main_image"`
	MainImageCrop  *imagecodec.Crop `json:"main_image_crop,omitempty"`
	Images         []string         `json:"images"`
}

type Config struct {
	MaxDocumentSize int
}

// UseCase implements the admin product operations.
type UseCase struct {
	products   repository.ProductRepository
	images     ImageProcessor
	dispatcher *usecase.Dispatcher
	validate   *validator.Validate
	cfg        Config
	logger     *zap.Logger
}

func New(products repository.ProductRepository, images ImageProcessor, dispatcher *usecase.Dispatcher, cfg Config, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dispatcher == nil {
		dispatcher = usecase.NewDispatcher(logger)
	}
	if cfg.MaxDocumentSize <= 0 {
		cfg.MaxDocumentSize = imagecodec.DefaultMaxDocumentSize
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	uc := &UseCase{
		products:   products,
		images:     images,
		dispatcher: dispatcher,
		validate:   validate,
		cfg:        cfg,
		logger:     logger,
	}
	for action, status := range actionStatus {
		dispatcher.Register(commandPrefix+action, uc.statusCommand(status))
	}
	return uc
}

// Create validates, sanitizes and stores a new product. Views start at zero.
func (uc *UseCase) Create(ctx context.Context, in Input) (*domain.Product, error) {
	if err := uc.check(in); err != nil {
		return nil, err
	}

	p := in.toProduct()
	p.ID = ""
	p.Views = 0
	if err := uc.prepare(ctx, p, in); err != nil {
		return nil, err
	}

	created, err := uc.products.Create(ctx, p)
	if err != nil {
		uc.logger.Error("create product failed", zap.Error(err))
		return nil, storeError(err, "could not save product")
	}
	uc.logger.Info("product created", zap.String("id", created.ID))
	return created, nil
}

// Update merges the input over the stored product.
func (uc *UseCase) Update(ctx context.Context, id string, in Input) (*domain.Product, error) {
	if err := uc.check(in); err != nil {
		return nil, err
	}

	existing, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "could not load product")
	}

	p := in.toProduct()
	p.ID = existing.ID
	p.Views = existing.Views
	p.CreatedAt = existing.CreatedAt
	if p.Status == "" {
		p.Status = existing.Status
	}
	if in.MainImage == "" {
		p.MainImage = existing.MainImage
	}
	if len(in.Images) == 0 {
		p.Images = existing.Images
	}
	if err := uc.prepare(ctx, p, in); err != nil {
		return nil, err
	}

	if err := uc.products.Update(ctx, p); err != nil {
		uc.logger.Error("update product failed", zap.String("id", id), zap.Error(err))
		return nil, storeError(err, "could not save product")
	}
	uc.logger.Info("product updated", zap.String("id", id))
	return p, nil
}

func (uc *UseCase) Delete(ctx context.Context, id string) error {
	if err := uc.products.Delete(ctx, id); err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.logger.Error("delete product failed", zap.String("id", id), zap.Error(err))
		}
		return storeError(err, "could not delete product")
	}
	uc.logger.Info("product deleted", zap.String("id", id))
	return nil
}

func (uc *UseCase) MarkAsSold(ctx context.Context, id string) error {
	return uc.ChangeStatus(ctx, id, ActionMarkSold)
}

func (uc *UseCase) MarkAsAvailable(ctx context.Context, id string) error {
	return uc.ChangeStatus(ctx, id, ActionMarkAvailable)
}

func (uc *UseCase) Reserve(ctx context.Context, id string) error {
	return uc.ChangeStatus(ctx, id, ActionReserve)
}

// ChangeStatus runs the status transition registered for action.
func (uc *UseCase) ChangeStatus(ctx context.Context, id, action string) error {
	if _, ok := actionStatus[action]; !ok {
		return domain.ErrUnknownStatusAction
	}
	_, err := uc.dispatcher.Execute(ctx, commandPrefix+action, id)
	return err
}

func (uc *UseCase) statusCommand(status domain.ProductStatus) usecase.CommandHandler {
	return func(ctx context.Context, payload interface{}) (interface{}, error) {
		id, ok := payload.(string)
		if !ok || id == "" {
			return nil, domain.ErrInvalidPayload
		}
		if err := uc.products.UpdateStatus(ctx, id, status); err != nil {
			if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
				uc.logger.Error("update product status failed", zap.String("id", id), zap.Error(err))
			}
			return nil, storeError(err, "could not update product status")
		}
		uc.logger.Info("product status changed", zap.String("id", id), zap.String("status", string(status)))
		return nil, nil
	}
}

// check runs the form rules and reports every violation in one error.
func (uc *UseCase) check(in Input) error {
	in.Title = strings.TrimSpace(in.Title)
	err := uc.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidPayload.Message, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return domain.NewError(domain.ErrCodeInvalid, strings.Join(msgs, ", "))
}

// prepare sanitizes p, runs the image pipeline and enforces the document size.
func (uc *UseCase) prepare(ctx context.Context, p *domain.Product, in Input) error {
	p.Sanitize()
	if uc.images != nil {
		if in.MainImage != "" {
			img, err := uc.images.Process(ctx, in.MainImage, in.MainImageCrop)
			if err != nil {
				return err
			}
			p.MainImage = img
		}
		if len(in.Images) > 0 {
			imgs, err := uc.images.ProcessAll(ctx, in.Images)
			if err != nil {
				return err
			}
			p.Images = imgs
		}
	}
	return imagecodec.ValidateDocumentSize(p.MainImage, p.Images, uc.cfg.MaxDocumentSize)
}

func (in Input) toProduct() *domain.Product {
	return &domain.Product{
		Title:          in.Title,
		Price:          in.Price,
		Followers:      in.Followers,
		Status:         domain.ProductStatus(in.Status),
		Description:    in.Description,
		WhatsAppNumber: in.WhatsAppNumber,
		Stats: domain.EngagementStats{
			Likes:  in.Likes,
			Videos: in.Videos,
			Bio:    in.Bio,
		},
		MainImage: in.MainImage,
		Images:    append([]string(nil), in.Images...),
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "title":
		return "title must have at least 2 characters"
	case "price":
		return "price must be between 0 and 1,000,000"
	case "followers":
		return "followers must be between 0 and 100,000,000"
	case "description":
		return "description too long (max 1000 characters)"
	case "status":
		return "invalid status"
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func storeError(err error, message string) error {
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return err
	}
	return domain.WrapError(domain.ErrCodeInternal, message, err)
}
