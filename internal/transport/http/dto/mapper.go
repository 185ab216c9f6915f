package dto

import (
	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/domain/citymatch"
)

func ToUserView(u domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// ToListingView maps a listing for viewerID. Tags stay owner-only.
func ToListingView(l *domain.Listing, viewerID string, imageURLs []string) ListingView {
	view := ListingView{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Title:       l.Title,
		Description: l.Description,
		PriceCents:  l.PriceCents,
		Currency:    l.Currency,
		Location:    l.Location,
		City:        citymatch.ExtractCityToken(l.Location),
		Status:      string(l.Status),
		ImageURLs:   imageURLs,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if viewerID != "" && viewerID == l.OwnerID {
		view.Tags = l.Tags
	}
	return view
}

func ToConversationView(c *domain.Conversation) ConversationView {
	return ConversationView{
		ID:            c.ID,
		ListingID:     c.ListingID,
		BuyerID:       c.BuyerID,
		SellerID:      c.SellerID,
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
	}
}

func ToMessageView(m *domain.Message) MessageView {
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
}

// ToUploadView never exposes raw object keys; urls carries the public derived
// URLs once the upload is ready.
func ToUploadView(up *domain.Upload, urls map[string]string) UploadView {
	return UploadView{
		ID:        up.ID,
		Purpose:   string(up.Purpose),
		Status:    string(up.Status),
		ListingID: up.ListingID,
		URLs:      urls,
		Error:     up.ErrorMessage,
		CreatedAt: up.CreatedAt,
	}
}
