package imagecodec

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/tikshop/domain"
)

const (
	DefaultMaxWidth        = 600
	DefaultMaxHeight       = 400
	DefaultTargetBytes     = 250 << 10
	DefaultMaxInputBytes   = 5 << 20
	DefaultMaxImages       = 4
	DefaultMaxDocumentSize = 900 << 10

	smallInputBytes = 200 << 10
	smallQuality    = 50
	startQuality    = 80
	qualityStep     = 10
	minQuality      = 30

	outputMIME = "image/jpeg"
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

var (
	ErrInvalidImage     = domain.NewError(domain.ErrCodeInvalid, "invalid image payload")
	ErrUnsupportedImage = domain.NewError(domain.ErrCodeInvalid, "unsupported image type, use JPEG, PNG, WebP or GIF")
	ErrImageTooLarge    = domain.NewError(domain.ErrCodeInvalid, "image too large, maximum is 5MB")
	ErrTooManyImages    = domain.NewError(domain.ErrCodeInvalid, "too many additional images, maximum is 4")
	ErrInvalidCrop      = domain.NewError(domain.ErrCodeInvalid, "crop area is outside the image")
)

// Crop selects a rectangle of the source image in source pixels.
type Crop struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Options struct {
	MaxWidth      int
	MaxHeight     int
	TargetBytes   int
	MaxInputBytes int
	MaxImages     int
}

// Codec validates, crops, downsizes and recompresses product images.
type Codec struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Codec {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = DefaultMaxWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = DefaultMaxHeight
	}
	if opts.TargetBytes <= 0 {
		opts.TargetBytes = DefaultTargetBytes
	}
	if opts.MaxInputBytes <= 0 {
		opts.MaxInputBytes = DefaultMaxInputBytes
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = DefaultMaxImages
	}
	return &Codec{opts: opts, logger: logger}
}

// Process turns a data URL or raw base64 payload into a JPEG data URL that
// fits the configured box. When re-encoding fails the original payload is
// kept.
func (c *Codec) Process(ctx context.Context, payload string, crop *Crop) (string, error) {
	raw, err := Decode(payload)
	if err != nil {
		return "", err
	}
	if len(raw) > c.opts.MaxInputBytes {
		return "", ErrImageTooLarge
	}
	mime, err := detect(raw)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		c.logger.Warn("image decode failed, keeping original", zap.String("mime", mime), zap.Error(err))
		return EncodeDataURL(mime, raw), nil
	}

	if crop != nil {
		if img, err = applyCrop(img, *crop); err != nil {
			return "", err
		}
	}

	out, err := c.compress(fit(img, c.opts.MaxWidth, c.opts.MaxHeight), len(raw) < smallInputBytes && crop == nil)
	if err != nil {
		c.logger.Warn("image encode failed, keeping original", zap.String("mime", mime), zap.Error(err))
		return EncodeDataURL(mime, raw), nil
	}
	return EncodeDataURL(outputMIME, out), nil
}

// ProcessAll runs Process over every payload concurrently, keeping order.
func (c *Codec) ProcessAll(ctx context.Context, payloads []string) ([]string, error) {
	if len(payloads) > c.opts.MaxImages {
		return nil, ErrTooManyImages
	}
	out := make([]string, len(payloads))
	g, gctx := errgroup.WithContext(ctx)
	for i, payload := range payloads {
		g.Go(func() error {
			processed, err := c.Process(gctx, payload, nil)
			if err != nil {
				return fmt.Errorf("image %d: %w", i+1, err)
			}
			out[i] = processed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Codec) compress(img image.Image, small bool) ([]byte, error) {
	var buf bytes.Buffer
	if small {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: smallQuality}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	for q := startQuality; q >= minQuality; q -= qualityStep {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, err
		}
		if buf.Len() <= c.opts.TargetBytes {
			break
		}
	}
	return buf.Bytes(), nil
}

// Decode accepts "data:<mime>;base64,<payload>" or bare base64.
func Decode(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrInvalidImage
	}
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.Contains(payload[:comma], ";base64") {
			return nil, ErrInvalidImage
		}
		payload = payload[comma+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, domain.WrapError(ErrInvalidImage.Code, ErrInvalidImage.Message, err)
		}
	}
	if len(raw) == 0 {
		return nil, ErrInvalidImage
	}
	return raw, nil
}

// EncodeDataURL builds a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Size returns the decoded byte length of a data URL or base64 payload.
func Size(payload string) int {
	if i := strings.IndexByte(payload, ','); strings.HasPrefix(payload, "data:") && i >= 0 {
		payload = payload[i+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return 0
	}
	padding := len(payload) - len(strings.TrimRight(payload, "="))
	return len(payload)*3/4 - padding
}

// ValidateDocumentSize rejects products whose embedded images exceed limit bytes.
func ValidateDocumentSize(mainImage string, images []string, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxDocumentSize
	}
	total := Size(mainImage)
	for _, img := range images {
		total += Size(img)
	}
	if total > limit {
		return domain.WrapError(domain.ErrDocumentTooLarge.Code, domain.ErrDocumentTooLarge.Message,
			fmt.Errorf("%d bytes exceeds %d", total, limit))
	}
	return nil
}

func detect(raw []byte) (string, error) {
	m := mimetype.Detect(raw)
	for _, allowed := range allowedTypes {
		if m.Is(allowed) {
			return allowed, nil
		}
	}
	return "", ErrUnsupportedImage
}

func applyCrop(img image.Image, c Crop) (image.Image, error) {
	b := img.Bounds()
	rect := image.Rect(b.Min.X+c.X, b.Min.Y+c.Y, b.Min.X+c.X+c.Width, b.Min.Y+c.Y+c.Height).Intersect(b)
	if c.Width <= 0 || c.Height <= 0 || rect.Empty() {
		return nil, ErrInvalidCrop
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst, nil
}

// fit scales img down to fit within maxW x maxH, preserving aspect ratio, on
// a white background. Images are never scaled up.
func fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxW || h > maxH {
		ratio := minFloat(float64(maxW)/float64(w), float64(maxH)/float64(h))
		w = maxInt(1, int(float64(w)*ratio+0.5))
		h = maxInt(1, int(float64(h)*ratio+0.5))
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
