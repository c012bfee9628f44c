package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// ProductStatus is the lifecycle state of a listed account.
type ProductStatus string

const (
	StatusAvailable ProductStatus = "available"
	StatusReserved  ProductStatus = "reserved"
	StatusSold      ProductStatus = "sold"
)

// Bounds applied when sanitizing admin input.
const (
	MaxPrice          = 1_000_000
	MaxFollowers      = 100_000_000
	MaxTitleLen       = 100
	MaxDescriptionLen = 1000
	MaxBioLen         = 500
)

// Valid reports whether s is one of the known statuses.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusSold:
		return true
	}
	return false
}

// EngagementStats are the account's public numbers shown on the detail view.
type EngagementStats struct {
	Likes  int64  `json:"likes"`
	Videos int64  `json:"videos"`
	Bio    string `json:"bio,omitempty"`
}

// Product mirrors one document of the products collection.
type Product struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Price          float64         `json:"price"`
	Followers      int64           `json:"followers"`
	Status         ProductStatus   `json:"status"`
	Description    string          `json:"description,omitempty"`
	WhatsAppNumber string          `json:"whatsapp_number,omitempty"`
	Stats          EngagementStats `json:"stats"`
	MainImage      string          `json:"main_image,omitempty"`
	Images         []string        `json:"images,omitempty"`
	Views          int64           `json:"views"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (p *Product) IsAvailable() bool {
	return p != nil && p.Status == StatusAvailable
}

// Sanitize clamps numeric fields and trims text to the stored limits.
// An empty status becomes available.
func (p *Product) Sanitize() {
	if p == nil {
		return
	}
	p.Title = truncate(strings.TrimSpace(p.Title), MaxTitleLen)
	p.Description = truncate(strings.TrimSpace(p.Description), MaxDescriptionLen)
	p.WhatsAppNumber = strings.TrimSpace(p.WhatsAppNumber)
	p.Price = clampFloat(p.Price, 0, MaxPrice)
	p.Followers = clampInt(p.Followers, 0, MaxFollowers)
	p.Views = clampInt(p.Views, 0, -1)
	p.Stats.Likes = clampInt(p.Stats.Likes, 0, -1)
	p.Stats.Videos = clampInt(p.Stats.Videos, 0, -1)
	p.Stats.Bio = truncate(strings.TrimSpace(p.Stats.Bio), MaxBioLen)
	if p.Status == "" {
		p.Status = StatusAvailable
	}
	if p.Images == nil {
		p.Images = []string{}
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampInt clamps v into [lo, hi]; a negative hi means unbounded.
func clampInt(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if hi >= 0 && v > hi {
		return hi
	}
	return v
}
