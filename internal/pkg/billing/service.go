package billing

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
	"github.com/ManuelReschke/CourseFox/internal/pkg/notify"
)

// Payments is the part of the payment provider API the service needs.
type Payments interface {
	CreatePaymentLink(ctx context.Context, in PaymentLinkRequest) (string, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
}

// Service fulfills payments and serves purchase data.
type Service struct {
	db        *gorm.DB
	repo      Repository
	payments  Payments
	publisher notify.Publisher
	serverURL string
	log       *logger.Logger
}

// NewService creates a billing service from injected dependencies.
func NewService(db *gorm.DB, repo Repository, payments Payments, publisher notify.Publisher, serverURL string, log *logger.Logger) *Service {
	if publisher == nil {
		publisher = notify.Noop{}
	}
	return &Service{
		db:        db,
		repo:      repo,
		payments:  payments,
		publisher: publisher,
		serverURL: serverURL,
		log:       log,
	}
}

// Fulfillment describes the outcome of applying a payment.
type Fulfillment struct {
	Purchase       *models.Purchase
	Created        bool
	GrantedCourses int64
}

// FulfillPayment grants access to every course of the product and records the purchase,
// all in one transaction. Replays of the same payment id leave the data unchanged and
// report Created=false.
func (s *Service) FulfillPayment(ctx context.Context, ev PaymentSucceeded) (*Fulfillment, error) {
	tx, err := database.Begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	repo := s.repo.WithTx(tx.DB)

	product, err := repo.GetProduct(ev.ProductID)
	if err != nil {
		return nil, apperror.TransactionAborted("load product", database.Classify(err, "product", ev.ProductID))
	}
	courseIDs, err := repo.GetProductCourseIDs(product.ID)
	if err != nil {
		return nil, apperror.TransactionAborted("load product courses", err)
	}
	user, err := repo.GetUser(ev.UserID)
	if err != nil {
		return nil, apperror.TransactionAborted("load user", database.Classify(err, "user", ev.UserID))
	}

	granted, err := repo.GrantCourseAccess(user.ID, courseIDs)
	if err != nil {
		return nil, apperror.TransactionAborted("grant course access", err)
	}

	purchase := &models.Purchase{
		PaymentSessionID: ev.PaymentID,
		PricePaidInCents: ev.TotalAmount,
		UserID:           user.ID,
		ProductID:        product.ID,
		ProductDetails:   datatypes.NewJSONType(models.SnapshotOf(product)),
	}
	created, stored, err := repo.CreatePurchaseIfNotExists(purchase)
	if err != nil {
		return nil, apperror.TransactionAborted("insert purchase", database.Classify(err, "purchase", ev.PaymentID))
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if created {
		s.publishFulfilled(ctx, stored, courseIDs)
	}
	return &Fulfillment{Purchase: stored, Created: created, GrantedCourses: granted}, nil
}

func (s *Service) publishFulfilled(ctx context.Context, p *models.Purchase, courseIDs []string) {
	err := s.publisher.PublishPurchaseFulfilled(ctx, notify.PurchaseFulfilled{
		PurchaseID:       p.ID,
		PaymentSessionID: p.PaymentSessionID,
		UserID:           p.UserID,
		ProductID:        p.ProductID,
		CourseIDs:        courseIDs,
		PricePaidInCents: p.PricePaidInCents,
		FulfilledAt:      time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("purchase.fulfilled not published", "purchase_id", p.ID, "error", err)
	}
}

// CheckoutLink returns a hosted payment page for a public product the user does not
// own yet.
func (s *Service) CheckoutLink(ctx context.Context, userID, productID string) (string, error) {
	repo := s.repo.WithTx(s.db.WithContext(ctx))

	product, err := repo.GetProduct(productID)
	if err != nil {
		return "", database.Classify(err, "product", productID)
	}
	if !product.IsPublic() {
		return "", apperror.NotFound("product", productID)
	}
	user, err := repo.GetUser(userID)
	if err != nil {
		return "", database.Classify(err, "user", userID)
	}

	owned, err := repo.UserOwnsProduct(user.ID, product.ID)
	if err != nil {
		return "", err
	}
	if owned {
		return "", &apperror.AppError{Err: apperror.ErrConflict, Message: "product already owned"}
	}

	return s.payments.CreatePaymentLink(ctx, PaymentLinkRequest{
		PaymentProductID: product.PaymentProductID,
		CustomerName:     user.Name,
		CustomerEmail:    user.Email,
		ReturnURL:        s.serverURL + "/products/" + product.ID + "/purchase/success",
		Metadata: map[string]string{
			"productId": product.ID,
			"userId":    user.ID,
		},
	})
}

func (s *Service) UserOwnsProduct(ctx context.Context, userID, productID string) (bool, error) {
	return s.repo.WithTx(s.db.WithContext(ctx)).UserOwnsProduct(userID, productID)
}

// ListPurchases returns the user's purchases, newest first.
func (s *Service) ListPurchases(ctx context.Context, userID string) ([]models.Purchase, error) {
	return s.repo.WithTx(s.db.WithContext(ctx)).ListPurchasesByUser(userID)
}

type PurchaseDetails struct {
	Purchase *models.Purchase `json:"purchase"`
	Payment  PaymentDetails   `json:"payment"`
}

// PurchaseDetails loads one purchase of the user plus its receipt lines from the
// provider. Provider failures degrade to a single Total line.
func (s *Service) PurchaseDetails(ctx context.Context, userID, purchaseID string) (*PurchaseDetails, error) {
	purchase, err := s.repo.WithTx(s.db.WithContext(ctx)).GetPurchaseForUser(userID, purchaseID)
	if err != nil {
		return nil, database.Classify(err, "purchase", purchaseID)
	}

	out := &PurchaseDetails{Purchase: purchase}
	payment, err := s.payments.GetPayment(ctx, purchase.PaymentSessionID)
	if err != nil {
		s.log.Warn("payment details unavailable", "purchase_id", purchase.ID, "error", err)
		out.Payment = FallbackDetails(purchase.PricePaidInCents)
		return out, nil
	}
	out.Payment = DetailsFromPayment(payment, purchase.RefundedAt)
	return out, nil
}
