// Package model defines domain entities used by services and repositories.
package model

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// Role is a user's authorization level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User mirrors an identity from the external auth provider plus marketplace state.
type User struct {
	ID                 string // auth provider subject
	Email              string
	FirstName          string
	LastName           string
	Username           string
	ImageURL           string
	Role               Role
	Banned             bool
	PayoutAccountID    string // payment provider connected account; empty until onboarding starts
	OnboardingComplete bool
	CreatedAt          time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// DisplayName picks the friendliest non-empty name.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return "Seller"
}

// UserView is the serialized form of a user.
type UserView struct {
	ID                 string `json:"id"`
	Email              string `json:"email,omitempty"`
	Name               string `json:"name"`
	ImageURL           string `json:"imageUrl,omitempty"`
	Role               Role   `json:"role"`
	Banned             bool   `json:"banned"`
	PayoutsConfigured  bool   `json:"payoutsConfigured"`
	OnboardingComplete bool   `json:"onboardingComplete"`
}

// View converts a user into its DTO.
func (u User) View() UserView {
	return UserView{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.DisplayName(),
		ImageURL:           u.ImageURL,
		Role:               u.Role,
		Banned:             u.Banned,
		PayoutsConfigured:  u.PayoutAccountID != "",
		OnboardingComplete: u.OnboardingComplete,
	}
}

// ProductKind discriminates product variants sharing the base record.
type ProductKind string

// KindAutomation is a downloadable automation workflow file.
const KindAutomation ProductKind = "automation"

// Platforms accepted for automation products.
var Platforms = []string{"n8n", "Make", "Zapier", "Autre"}

// Product is a catalog entry owned by a seller.
type Product struct {
	ID              uuid.UUID
	Kind            ProductKind
	Title           string
	Description     string
	Price           decimal.Decimal
	Category        string
	Platform        string
	Tags            []string
	SellerID        string
	SellerName      string // joined from users; empty if the seller row is missing
	FileURL         string // immutable after publish
	PreviewImageURL string
	AverageRating   float64
	ReviewCount     int
	Certified       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProductView is the public serialized form of a product. The file URL is never exposed.
type ProductView struct {
	ID              string          `json:"id"`
	Kind            ProductKind     `json:"kind"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Category        string          `json:"category"`
	Platform        string          `json:"platform"`
	Tags            []string        `json:"tags"`
	SellerID        string          `json:"sellerId"`
	SellerName      string          `json:"sellerName,omitempty"`
	PreviewImageURL string          `json:"previewImageUrl,omitempty"`
	AverageRating   float64         `json:"averageRating"`
	ReviewCount     int             `json:"reviewCount"`
	Certified       bool            `json:"certified"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// View converts a product into its DTO.
func (p Product) View() ProductView {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return ProductView{
		ID:              p.ID.String(),
		Kind:            p.Kind,
		Title:           p.Title,
		Description:     p.Description,
		Price:           p.Price,
		Category:        p.Category,
		Platform:        p.Platform,
		Tags:            tags,
		SellerID:        p.SellerID,
		SellerName:      p.SellerName,
		PreviewImageURL: p.PreviewImageURL,
		AverageRating:   p.AverageRating,
		ReviewCount:     p.ReviewCount,
		Certified:       p.Certified,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// ProductInput is the create payload for an automation product.
type ProductInput struct {
	Title           string          `json:"title" validate:"min=3,max=100"`
	Description     string          `json:"description" validate:"min=20,max=2000"`
	Price           decimal.Decimal `json:"price" validate:"gte=1,lte=1000"`
	Category        string          `json:"category" validate:"required,max=50"`
	Platform        string          `json:"platform" validate:"oneof=n8n Make Zapier Autre"`
	Tags            []string        `json:"tags" validate:"max=10,dive,min=1,max=30"`
	FileURL         string          `json:"fileUrl" validate:"required,url"`
	PreviewImageURL string          `json:"previewImageUrl" validate:"omitempty,url"`
}

// ProductUpdate is the edit payload; the file and platform cannot change after publish.
type ProductUpdate struct {
	Title           string          `json:"title" validate:"min=3,max=100"`
	Description     string          `json:"description" validate:"min=20,max=2000"`
	Price           decimal.Decimal `json:"price" validate:"gte=1,lte=1000"`
	PreviewImageURL string          `json:"previewImageUrl" validate:"omitempty,url"`
}

// Catalog sort orders.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
)

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Query      string
	Platforms  []string
	Categories []string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
	Page       int
	Limit      int
}

// Offset returns the row offset for the page.
func (f ProductFilter) Offset() int { return (f.Page - 1) * f.Limit }

// ProductPage is one page of a catalog listing.
type ProductPage struct {
	Products    []ProductView `json:"products"`
	TotalCount  int           `json:"totalCount"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Limit       int           `json:"limit"`
}

// PurchaseStatus is kept for audit; every stored purchase is completed.
type PurchaseStatus string

const PurchaseCompleted PurchaseStatus = "completed"

// Purchase is proof that a buyer paid for a product.
type Purchase struct {
	ID                uuid.UUID
	BuyerID           string
	ProductID         uuid.UUID
	SellerID          string
	Amount            decimal.Decimal
	ExternalSessionID string
	Status            PurchaseStatus
	CreatedAt         time.Time
}

// PurchaseView is a purchase joined with a summary of its product.
type PurchaseView struct {
	ID              string          `json:"id"`
	BuyerID         string          `json:"buyerId"`
	SellerID        string          `json:"sellerId"`
	ProductID       string          `json:"productId"`
	ProductTitle    string          `json:"productTitle"`
	ProductPrice    decimal.Decimal `json:"productPrice"`
	PreviewImageURL string          `json:"previewImageUrl,omitempty"`
	ProductDeleted  bool            `json:"productDeleted"`
	Amount          decimal.Decimal `json:"amount"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ReviewKind discriminates records stored alongside reviews.
type ReviewKind string

const (
	KindReview   ReviewKind = "review"
	KindComment  ReviewKind = "comment"
	KindQuestion ReviewKind = "question"
	KindReply    ReviewKind = "reply"
)

// Review is a rated review, a comment, a question or a seller reply.
type Review struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	UserID    string
	UserName  string
	Kind      ReviewKind
	Rating    *int       // set only for KindReview
	ParentID  *uuid.UUID // set only for KindReply
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReviewView is the serialized form of a review.
type ReviewView struct {
	ID        string       `json:"id"`
	ProductID string       `json:"productId"`
	UserID    string       `json:"userId"`
	UserName  string       `json:"userName"`
	Kind      ReviewKind   `json:"kind"`
	Rating    *int         `json:"rating,omitempty"`
	ParentID  string       `json:"parentId,omitempty"`
	Comment   string       `json:"comment"`
	CreatedAt time.Time    `json:"createdAt"`
	Replies   []ReviewView `json:"replies,omitempty"`
}

// View converts a review into its DTO.
func (r Review) View() ReviewView {
	v := ReviewView{
		ID:        r.ID.String(),
		ProductID: r.ProductID.String(),
		UserID:    r.UserID,
		UserName:  r.UserName,
		Kind:      r.Kind,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
	if r.ParentID != nil {
		v.ParentID = r.ParentID.String()
	}
	return v
}

// RatingStats is the aggregate over review-kind records of a product.
type RatingStats struct {
	Average float64
	Count   int
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotifyMessage NotificationType = "MESSAGE"
	NotifySale    NotificationType = "SALE"
	NotifyOrder   NotificationType = "ORDER"
	NotifyReview  NotificationType = "REVIEW"
	NotifySystem  NotificationType = "SYSTEM"
)

// Notification is a templated message for a user; clients render TitleKey/MessageKey with Params.
type Notification struct {
	ID         uuid.UUID
	UserID     string
	Type       NotificationType
	Title      string
	Message    string
	TitleKey   string
	MessageKey string
	Params     map[string]any
	Link       string
	Read       bool
	CreatedAt  time.Time
}

// NotificationView is the serialized form of a notification.
type NotificationView struct {
	ID         string           `json:"id"`
	Type       NotificationType `json:"type"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	TitleKey   string           `json:"titleKey,omitempty"`
	MessageKey string           `json:"messageKey,omitempty"`
	Params     map[string]any   `json:"params,omitempty"`
	Link       string           `json:"link"`
	Read       bool             `json:"read"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// View converts a notification into its DTO.
func (n Notification) View() NotificationView {
	return NotificationView{
		ID:         n.ID.String(),
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		TitleKey:   n.TitleKey,
		MessageKey: n.MessageKey,
		Params:     n.Params,
		Link:       n.Link,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
}

// Balance is a seller's payout balance at the payment provider.
type Balance struct {
	Available decimal.Decimal `json:"available"`
	Pending   decimal.Decimal `json:"pending"`
	Currency  string          `json:"currency"`
}

// CheckoutItem is one line of a hosted checkout session.
type CheckoutItem struct {
	ProductID  uuid.UUID
	Title      string
	ImageURL   string
	Price      decimal.Decimal
	Commission decimal.Decimal // platform fee retained from Price
}

// Payment event types consumed from the provider.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventAccountUpdated    = "account.updated"
)

// PaymentEvent is a verified provider event reduced to the fields reconciliation needs.
type PaymentEvent struct {
	ID        string
	Type      string
	SessionID string
	Metadata  map[string]string

	AccountID        string
	ChargesEnabled   bool
	DetailsSubmitted bool
}
