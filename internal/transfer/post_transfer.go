package transfer

import "github.com/golang-jwt/jwt/v5"

type PostCreation struct {
	Content       string
	Hashtags      []string
	Platforms     []string
	ScheduledDate string
	Draft         bool
}

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// MediaUpload is one file received with a post creation request.
type MediaUpload struct {
	Filename string
	Caption  string
	Data     []byte
}
