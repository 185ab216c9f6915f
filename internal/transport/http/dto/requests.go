package dto

// -------- Auth --------

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,min=3,max=30,username_format"`
	Password string `json:"password" validate:"required,min=8,max=128,password_strength"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128,password_strength"`
}

// -------- Listings --------

// CreateListingRequest leaves title/tags/price optional on purpose: the
// service fills omitted ones from the description when it can.
type CreateListingRequest struct {
	Title       string   `json:"title" validate:"omitempty,max=140"`
	Description string   `json:"description" validate:"max=4000"`
	PriceCents  *int64   `json:"price_cents" validate:"omitempty,gte=0"`
	Currency    string   `json:"currency" validate:"omitempty,len=3"`
	Location    string   `json:"location" validate:"max=200"`
	Tags        []string `json:"tags" validate:"max=10,dive,min=1,max=40"`
}

type UpdateListingRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=3,max=140"`
	Description *string   `json:"description" validate:"omitempty,max=4000"`
	Location    *string   `json:"location" validate:"omitempty,max=200"`
	PriceCents  *int64    `json:"price_cents" validate:"omitempty,gte=0"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=40"`
}

// -------- Messaging --------

type StartConversationRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
	Body      string `json:"body" validate:"required,min=1,max=2000"`
}

type SendMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=2000"`
}

// -------- Media --------

type CreateUploadRequest struct {
	Purpose   string `json:"purpose" validate:"required,oneof=listing_photo avatar"`
	MIME      string `json:"mime" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"required,gt=0"`
}

type AttachUploadRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
}
