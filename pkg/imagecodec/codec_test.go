package imagecodec

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/fastygo/tikshop/domain"
)

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: uint8((x + y) % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return EncodeDataURL("image/png", buf.Bytes())
}

func decodeJPEG(t *testing.T, dataURL string) image.Image {
	t.Helper()
	if !strings.HasPrefix(dataURL, "data:image/jpeg;base64,") {
		t.Fatalf("output is not a JPEG data URL: %.40s", dataURL)
	}
	raw, err := Decode(dataURL)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("jpeg.Decode() error = %v", err)
	}
	return img
}

func TestProcess_FitsBox(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{name: "landscape downscale", w: 1200, h: 800, wantW: 600, wantH: 400},
		{name: "portrait downscale", w: 400, h: 800, wantW: 200, wantH: 400},
		{name: "small kept", w: 120, h: 90, wantW: 120, wantH: 90},
	}

	codec := New(Options{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := codec.Process(context.Background(), pngDataURL(t, tt.w, tt.h), nil)
			if err != nil {
				t.Fatalf("Process() unexpected error = %v", err)
			}
			b := decodeJPEG(t, out).Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("Process() size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
			if Size(out) > DefaultTargetBytes {
				t.Errorf("Size() = %d, want <= %d", Size(out), DefaultTargetBytes)
			}
		})
	}
}

func TestProcess_Crop(t *testing.T) {
	codec := New(Options{}, nil)
	src := pngDataURL(t, 300, 300)

	out, err := codec.Process(context.Background(), src, &Crop{X: 50, Y: 50, Width: 100, Height: 80})
	if err != nil {
		t.Fatalf("Process() unexpected error = %v", err)
	}
	b := decodeJPEG(t, out).Bounds()
	if b.Dx() != 100 || b.Dy() != 80 {
		t.Errorf("cropped size = %dx%d, want 100x80", b.Dx(), b.Dy())
	}

	_, err = codec.Process(context.Background(), src, &Crop{X: 400, Y: 400, Width: 10, Height: 10})
	if !errors.Is(err, ErrInvalidCrop) {
		t.Errorf("Process(outside crop) error = %v, want ErrInvalidCrop", err)
	}
}

func TestProcess_Rejects(t *testing.T) {
	text := base64.StdEncoding.EncodeToString([]byte("definitely not an image"))

	tests := []struct {
		name    string
		codec   *Codec
		payload string
		wantErr error
	}{
		{name: "empty", codec: New(Options{}, nil), payload: "", wantErr: ErrInvalidImage},
		{name: "not base64", codec: New(Options{}, nil), payload: "data:image/png;base64,@@@", wantErr: ErrInvalidImage},
		{name: "missing base64 marker", codec: New(Options{}, nil), payload: "data:image/png," + text, wantErr: ErrInvalidImage},
		{name: "unsupported type", codec: New(Options{}, nil), payload: text, wantErr: ErrUnsupportedImage},
		{name: "too large", codec: New(Options{MaxInputBytes: 64}, nil), payload: pngDataURL(t, 64, 64), wantErr: ErrImageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.codec.Process(context.Background(), tt.payload, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Process() error = %v, want %v", err, tt.wantErr)
			}
			if !domain.IsDomainError(err, domain.ErrCodeInvalid) {
				t.Errorf("Process() error = %v, want INVALID code", err)
			}
		})
	}
}

func TestProcessAll(t *testing.T) {
	codec := New(Options{}, nil)
	payloads := []string{pngDataURL(t, 100, 50), pngDataURL(t, 40, 80), pngDataURL(t, 900, 300)}

	out, err := codec.ProcessAll(context.Background(), payloads)
	if err != nil {
		t.Fatalf("ProcessAll() unexpected error = %v", err)
	}
	want := [][2]int{{100, 50}, {40, 80}, {600, 200}}
	for i, dataURL := range out {
		b := decodeJPEG(t, dataURL).Bounds()
		if b.Dx() != want[i][0] || b.Dy() != want[i][1] {
			t.Errorf("image %d size = %dx%d, want %dx%d", i, b.Dx(), b.Dy(), want[i][0], want[i][1])
		}
	}

	five := []string{payloads[0], payloads[0], payloads[0], payloads[0], payloads[0]}
	if _, err := codec.ProcessAll(context.Background(), five); !errors.Is(err, ErrTooManyImages) {
		t.Errorf("ProcessAll(5) error = %v, want ErrTooManyImages", err)
	}

	bad := []string{payloads[0], "data:image/png;base64,@@@"}
	if _, err := codec.ProcessAll(context.Background(), bad); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("ProcessAll(bad) error = %v, want ErrInvalidImage", err)
	}
}

func TestSizeAndDocumentLimit(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 1000)
	url := EncodeDataURL("image/jpeg", data)
	if got := Size(url); got != 1000 {
		t.Errorf("Size() = %d, want 1000", got)
	}
	if got := Size(""); got != 0 {
		t.Errorf("Size(\"\") = %d, want 0", got)
	}

	if err := ValidateDocumentSize(url, []string{url, url}, 3000); err != nil {
		t.Errorf("ValidateDocumentSize(3000) unexpected error = %v", err)
	}
	err := ValidateDocumentSize(url, []string{url, url}, 2999)
	if !errors.Is(err, domain.ErrDocumentTooLarge) {
		t.Errorf("ValidateDocumentSize(2999) error = %v, want ErrDocumentTooLarge", err)
	}
}
