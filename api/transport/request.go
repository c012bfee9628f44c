package transport

import "time"

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token            string    `json:"token"`
	SessionID        string    `json:"session_id"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

type SessionResponse struct {
	Authenticated    bool `json:"authenticated"`
	RemainingSeconds int  `json:"remaining_seconds"`
}

type CountdownEvent struct {
	RemainingSeconds int    `json:"remaining_seconds"`
	Display          string `json:"display"`
}

type LogoutEvent struct {
	Reason   string `json:"reason"`
	Redirect string `json:"redirect"`
}

type ProductRequest struct {
	Title          string    `json:"title"`
	Price          float64   `json:"price"`
	Followers      int64     `json:"followers"`
	Status         string    `json:"status"`
	Description    string    `json:"description"`
	WhatsAppNumber string    `json:"whatsapp_number"`
	Stats          StatsBody `json:"stats"`
	MainImage      string    `json:"main_image"`
	MainImageCrop  *CropBody `json:"main_image_crop,omitempty"`
	Images         []string  `json:"images"`
}

type StatsBody struct {
	Likes  int64  `json:"likes"`
	Videos int64  `json:"videos"`
	Bio    string `json:"bio"`
}

type CropBody struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type ImageRequest struct {
	Image string    `json:"image"`
	Crop  *CropBody `json:"crop,omitempty"`
}

type ImageResponse struct {
	Image string `json:"image"`
	Size  int    `json:"size"`
}

type PurchaseLinkResponse struct {
	URL string `json:"url"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type ThemeResponse struct {
	Theme string `json:"theme"`
}

type CatalogEvent struct {
	State    string      `json:"state"`
	Products interface{} `json:"products"`
	Count    int         `json:"count"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
