package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
	"github.com/kodamarket/koda/internal/repository"
)

// MaxCommentLen bounds review, comment and reply texts in characters.
const MaxCommentLen = 1000

// ReviewService manages product reviews, discussions and seller replies.
type ReviewService interface {
	// SubmitReview creates or replaces the user's rated review and refreshes the product aggregate.
	SubmitReview(ctx context.Context, user model.User, productID uuid.UUID, rating int, comment string) (*model.Review, error)
	// DeleteReview removes a record owned by the user, or any record for admins.
	DeleteReview(ctx context.Context, user model.User, id uuid.UUID) error
	// Comment posts a comment or question on a product.
	Comment(ctx context.Context, user model.User, productID uuid.UUID, kind model.ReviewKind, text string) (*model.Review, error)
	// Reply answers a top-level record; only the product's seller may reply.
	Reply(ctx context.Context, user model.User, parentID uuid.UUID, text string) (*model.Review, error)
	// EditReply rewrites a reply; only the product's seller may edit.
	EditReply(ctx context.Context, user model.User, id uuid.UUID, text string) error
	// List returns top-level records newest first, each with its replies oldest first.
	List(ctx context.Context, productID uuid.UUID) ([]model.ReviewView, error)
}

type ReviewServiceImpl struct {
	reviews   repository.ReviewRepository
	products  repository.ProductRepository
	purchases repository.PurchaseRepository
	notify    notifier
	log       *zap.Logger
}

// NewReviewService constructs ReviewService.
func NewReviewService(reviews repository.ReviewRepository, products repository.ProductRepository,
	purchases repository.PurchaseRepository, notes repository.NotificationRepository, log *zap.Logger) *ReviewServiceImpl {
	log = orNop(log)
	return &ReviewServiceImpl{reviews: reviews, products: products, purchases: purchases,
		notify: notifier{repo: notes, log: log}, log: log}
}

func authorName(u model.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "User"
}

func checkText(text string, required bool) (string, error) {
	text = strings.TrimSpace(text)
	if required && text == "" {
		return "", errs.Validation("comment is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLen {
		return "", errs.Validation(fmt.Sprintf("comment must be at most %d characters", MaxCommentLen))
	}
	return text, nil
}

// SubmitReview requires a prior purchase unless the user sells the product.
func (s *ReviewServiceImpl) SubmitReview(ctx context.Context, user model.User, productID uuid.UUID, rating int, comment string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errs.Validation("rating must be between 1 and 5")
	}
	text, err := checkText(comment, false)
	if err != nil {
		return nil, err
	}
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	isSeller := p.SellerID == user.ID
	if !isSeller {
		bought, err := s.purchases.Exists(ctx, user.ID, productID)
		if err != nil {
			return nil, err
		}
		if !bought {
			return nil, fmt.Errorf("%w: purchase the product to review it", errs.ErrForbidden)
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	rv := &model.Review{
		ID: id, ProductID: productID, UserID: user.ID, UserName: authorName(user),
		Kind: model.KindReview, Rating: &rating, Comment: text,
	}
	if err := s.reviews.UpsertReview(ctx, rv); err != nil {
		return nil, err
	}
	if err := s.recompute(ctx, productID); err != nil {
		return nil, err
	}

	if !isSeller {
		s.notify.send(ctx, model.Notification{
			UserID: p.SellerID, Type: model.NotifyReview,
			Title: "New review", Message: fmt.Sprintf("%s rated \"%s\" %d/5.", rv.UserName, p.Title, rating),
			TitleKey: keyReviewTitle, MessageKey: keyReviewMessage,
			Params: map[string]any{"userName": rv.UserName, "productTitle": p.Title, "rating": rating},
			Link:   "/product/" + productID.String(),
		})
	}
	return rv, nil
}

// recompute stores a full re-aggregation of the product's review-kind records.
func (s *ReviewServiceImpl) recompute(ctx context.Context, productID uuid.UUID) error {
	stats, err := s.reviews.Stats(ctx, productID)
	if err != nil {
		return err
	}
	if stats.Count == 0 {
		stats = model.RatingStats{}
	}
	return s.products.SetRating(ctx, productID, stats)
}

// DeleteReview removes the record and its replies, then refreshes the aggregate for reviews.
func (s *ReviewServiceImpl) DeleteReview(ctx context.Context, user model.User, id uuid.UUID) error {
	rv, err := s.reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	if rv.UserID != user.ID && !user.IsAdmin() {
		return errs.ErrForbidden
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}
	if rv.Kind != model.KindReview {
		return nil
	}
	return s.recompute(ctx, rv.ProductID)
}

// Comment posts a comment or a question. Any signed-in user may take part.
func (s *ReviewServiceImpl) Comment(ctx context.Context, user model.User, productID uuid.UUID, kind model.ReviewKind, text string) (*model.Review, error) {
	if kind != model.KindComment && kind != model.KindQuestion {
		return nil, errs.Validation("kind must be comment or question")
	}
	text, err := checkText(text, true)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	rv := &model.Review{ID: id, ProductID: productID, UserID: user.ID, UserName: authorName(user), Kind: kind, Comment: text}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

// Reply attaches a seller answer to a top-level record of the seller's product.
func (s *ReviewServiceImpl) Reply(ctx context.Context, user model.User, parentID uuid.UUID, text string) (*model.Review, error) {
	text, err := checkText(text, true)
	if err != nil {
		return nil, err
	}
	parent, err := s.reviews.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Kind == model.KindReply {
		return nil, errs.Validation("cannot reply to a reply")
	}
	p, err := s.products.Get(ctx, parent.ProductID)
	if err != nil {
		return nil, err
	}
	if p.SellerID != user.ID {
		return nil, fmt.Errorf("%w: only the seller can reply", errs.ErrForbidden)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	pid := parent.ID
	rv := &model.Review{
		ID: id, ProductID: parent.ProductID, UserID: user.ID, UserName: authorName(user),
		Kind: model.KindReply, ParentID: &pid, Comment: text,
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}

	if parent.UserID != user.ID {
		s.notify.send(ctx, model.Notification{
			UserID: parent.UserID, Type: model.NotifyMessage,
			Title: "The seller replied", Message: fmt.Sprintf("The seller of \"%s\" answered you.", p.Title),
			TitleKey: keyReplyTitle, MessageKey: keyReplyMessage,
			Params: map[string]any{"productTitle": p.Title},
			Link:   "/product/" + p.ID.String(),
		})
	}
	return rv, nil
}

// EditReply rewrites a reply's text.
func (s *ReviewServiceImpl) EditReply(ctx context.Context, user model.User, id uuid.UUID, text string) error {
	text, err := checkText(text, true)
	if err != nil {
		return err
	}
	rv, err := s.reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	if rv.Kind != model.KindReply {
		return errs.Validation("only replies can be edited")
	}
	p, err := s.products.Get(ctx, rv.ProductID)
	if err != nil {
		return err
	}
	if p.SellerID != user.ID {
		return fmt.Errorf("%w: only the seller can edit replies", errs.ErrForbidden)
	}
	return s.reviews.UpdateComment(ctx, id, text)
}

// List threads replies under their parents.
func (s *ReviewServiceImpl) List(ctx context.Context, productID uuid.UUID) ([]model.ReviewView, error) {
	all, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	replies := map[uuid.UUID][]model.ReviewView{}
	var top []model.Review
	for _, rv := range all {
		if rv.Kind == model.KindReply && rv.ParentID != nil {
			replies[*rv.ParentID] = append(replies[*rv.ParentID], rv.View())
			continue
		}
		top = append(top, rv)
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].CreatedAt.After(top[j].CreatedAt) })

	out := make([]model.ReviewView, 0, len(top))
	for _, rv := range top {
		v := rv.View()
		v.Replies = replies[rv.ID]
		out = append(out, v)
	}
	return out, nil
}
