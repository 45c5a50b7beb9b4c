package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services/events"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"gorm.io/gorm"
)

// PaymentService runs the manual-transfer payment workflow: a student
// submits a payment with proof, an admin verifies or rejects it, and
// verification grants the enrollment
type PaymentService struct {
	db        *gorm.DB
	notifier  *NotificationService
	publisher events.Publisher
}

// NewPaymentService creates a new payment service. notifier and publisher
// may be nil.
func NewPaymentService(db *gorm.DB, notifier *NotificationService, publisher events.Publisher) *PaymentService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &PaymentService{
		db:        db,
		notifier:  notifier,
		publisher: publisher,
	}
}

// CreatePaymentInput holds the fields of a new payment
type CreatePaymentInput struct {
	UserID        uuid.UUID
	CourseID      uuid.UUID
	Amount        float64
	PaymentMethod string
	InvoiceNumber string
	ProofURL      string
}

// PaymentFilter narrows the admin payment listing
type PaymentFilter struct {
	Status model.PaymentStatus
	UserID *uuid.UUID
	Limit  int
	Offset int
}

// CheckoutResult describes the payments created from a cart
type CheckoutResult struct {
	InvoiceNumber string          `json:"invoice_number"`
	Payments      []model.Payment `json:"payments"`
	Total         float64         `json:"total"`
	// Courses dropped from the cart because the user already owns them or
	// they are no longer on sale
	Skipped []uuid.UUID `json:"skipped,omitempty"`
}

// VerifyResult is the outcome of a successful verification
type VerifyResult struct {
	Payment           *model.Payment    `json:"payment"`
	Enrollment        *model.Enrollment `json:"enrollment"`
	EnrollmentCreated bool              `json:"enrollment_created"`
}

// NewInvoiceNumber returns INV-<yyyymmdd>-<6 hex digits>
func NewInvoiceNumber(now time.Time) string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms; fall back to the clock
		return fmt.Sprintf("INV-%s-%06X", now.Format("20060102"), now.UnixNano()&0xFFFFFF)
	}
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(buf)))
}

// checkPurchasable rejects courses that are unpublished or have no price
func checkPurchasable(course *model.Course) error {
	if course.Status != model.CourseStatusPublished {
		return apperror.InvalidArgument("course is not available for purchase")
	}
	if course.Price <= 0 {
		return apperror.InvalidArgument("course has no price")
	}
	return nil
}

// Create records a pending payment for one course
func (s *PaymentService) Create(ctx context.Context, in CreatePaymentInput) (*model.Payment, error) {
	if in.Amount <= 0 {
		return nil, apperror.InvalidArgument("amount must be greater than zero")
	}

	db := s.db.WithContext(ctx)

	var course model.Course
	if err := db.Select("id", "status", "price").Where("id = ?", in.CourseID).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("course not found")
		}
		return nil, apperror.Internal("failed to load course", err)
	}
	if err := checkPurchasable(&course); err != nil {
		return nil, err
	}

	enrolled, err := isEnrolled(db, in.UserID, in.CourseID)
	if err != nil {
		return nil, apperror.Internal("failed to check enrollment", err)
	}
	if enrolled {
		return nil, apperror.DuplicateEntry("already enrolled in this course")
	}

	invoice := strings.TrimSpace(in.InvoiceNumber)
	if invoice == "" {
		invoice = NewInvoiceNumber(time.Now())
	}

	payment := &model.Payment{
		UserID:        in.UserID,
		CourseID:      in.CourseID,
		Amount:        in.Amount,
		Status:        model.PaymentStatusPending,
		PaymentMethod: in.PaymentMethod,
		InvoiceNumber: invoice,
		ProofURL:      in.ProofURL,
	}
	if err := db.Create(payment).Error; err != nil {
		return nil, apperror.Internal("failed to create payment", err)
	}

	log.Infow("payment created", "payment_id", payment.ID, "user_id", in.UserID,
		"course_id", in.CourseID, "invoice", invoice)
	return payment, nil
}

// Checkout turns the user's cart into pending payments at current prices,
// sharing one invoice number, and empties the cart
func (s *PaymentService) Checkout(ctx context.Context, userID uuid.UUID, method, proofURL string) (*CheckoutResult, error) {
	result := &CheckoutResult{InvoiceNumber: NewInvoiceNumber(time.Now())}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []model.CartItem
		if err := tx.Where("user_id = ?", userID).Order("added_at ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return apperror.InvalidArgument("cart is empty")
		}

		courseIDs := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			courseIDs = append(courseIDs, item.CourseID)
		}

		var courses []model.Course
		if err := tx.Where("id IN ?", courseIDs).Find(&courses).Error; err != nil {
			return err
		}
		byID := make(map[uuid.UUID]model.Course, len(courses))
		for _, c := range courses {
			byID[c.ID] = c
		}

		var owned []uuid.UUID
		if err := tx.Model(&model.Enrollment{}).
			Where("user_id = ? AND course_id IN ?", userID, courseIDs).
			Pluck("course_id", &owned).Error; err != nil {
			return err
		}
		ownedSet := make(map[uuid.UUID]bool, len(owned))
		for _, id := range owned {
			ownedSet[id] = true
		}

		for _, item := range items {
			course, ok := byID[item.CourseID]
			if !ok || ownedSet[item.CourseID] || checkPurchasable(&course) != nil {
				result.Skipped = append(result.Skipped, item.CourseID)
				continue
			}
			result.Payments = append(result.Payments, model.Payment{
				UserID:        userID,
				CourseID:      course.ID,
				Amount:        course.Price,
				Status:        model.PaymentStatusPending,
				PaymentMethod: method,
				InvoiceNumber: result.InvoiceNumber,
				ProofURL:      proofURL,
			})
			result.Total += course.Price
		}
		if len(result.Payments) == 0 {
			return apperror.InvalidArgument("cart has no purchasable courses")
		}

		if err := tx.Create(&result.Payments).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&model.CartItem{}).Error
	})
	if err != nil {
		return nil, classify(err, "checkout failed")
	}

	log.Infow("checkout completed", "user_id", userID, "invoice", result.InvoiceNumber,
		"payments", len(result.Payments), "total", result.Total)
	return result, nil
}

// Get loads a payment with its course
func (s *PaymentService) Get(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	err := s.db.WithContext(ctx).Preload("Course").Where("id = ?", paymentID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("payment not found")
		}
		return nil, apperror.Internal("failed to load payment", err)
	}
	return &payment, nil
}

// GetForUser loads a payment owned by userID
func (s *PaymentService) GetForUser(ctx context.Context, userID, paymentID uuid.UUID) (*model.Payment, error) {
	payment, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, apperror.NotFound("payment not found")
	}
	return payment, nil
}

// ListForUser returns the user's payments, newest first
func (s *PaymentService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	if err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, apperror.Internal("failed to list payments", err)
	}
	return payments, nil
}

// ListAll returns payments for the admin queue
func (s *PaymentService) ListAll(ctx context.Context, filter PaymentFilter) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64

	query := s.db.WithContext(ctx).Model(&model.Payment{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal("failed to count payments", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if err := query.Preload("Course").Order("created_at DESC").
		Limit(limit).Offset(filter.Offset).Find(&payments).Error; err != nil {
		return nil, 0, apperror.Internal("failed to list payments", err)
	}
	return payments, total, nil
}

// AttachProof sets the transfer proof on one of the user's pending payments
func (s *PaymentService) AttachProof(ctx context.Context, userID, paymentID uuid.UUID, proofURL string) (*model.Payment, error) {
	if strings.TrimSpace(proofURL) == "" {
		return nil, apperror.InvalidArgument("proof url is required")
	}
	payment, err := s.GetForUser(ctx, userID, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.IsPending() {
		return nil, apperror.InvalidArgument("payment is already %s", payment.Status)
	}
	if err := s.db.WithContext(ctx).Model(&model.Payment{}).Where("id = ?", payment.ID).
		Update("proof_url", proofURL).Error; err != nil {
		return nil, apperror.Internal("failed to save proof", err)
	}
	payment.ProofURL = proofURL
	return payment, nil
}

// Verify approves a pending payment and grants the enrollment. The
// enrollment, the student counter and the payment update commit together.
func (s *PaymentService) Verify(ctx context.Context, paymentID uuid.UUID) (*VerifyResult, error) {
	var payment model.Payment
	if err := s.db.WithContext(ctx).Where("id = ?", paymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("payment not found")
		}
		return nil, apperror.Internal("failed to load payment", err)
	}
	if !payment.IsPending() {
		return nil, apperror.InvalidArgument("payment is already %s", payment.Status)
	}

	result := &VerifyResult{}
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var enrollment model.Enrollment
		err := tx.Where("user_id = ? AND course_id = ?", payment.UserID, payment.CourseID).
			Order("enrolled_at ASC").
			First(&enrollment).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			enrollment = model.Enrollment{
				UserID:     payment.UserID,
				CourseID:   payment.CourseID,
				Status:     model.EnrollmentStatusActive,
				Progress:   0,
				EnrolledAt: now,
			}
			if err := tx.Create(&enrollment).Error; err != nil {
				return err
			}
			if err := tx.Model(&model.Course{}).Where("id = ?", payment.CourseID).
				UpdateColumn("total_students", gorm.Expr("total_students + ?", 1)).Error; err != nil {
				return err
			}
			result.EnrollmentCreated = true
		case err != nil:
			return err
		case enrollment.Status == model.EnrollmentStatusPending:
			if err := tx.Model(&enrollment).Update("status", model.EnrollmentStatusActive).Error; err != nil {
				return err
			}
		}

		update := tx.Model(&model.Payment{}).
			Where("id = ? AND status = ?", payment.ID, model.PaymentStatusPending).
			Updates(map[string]interface{}{
				"status":        model.PaymentStatusVerified,
				"verified_at":   now,
				"enrollment_id": enrollment.ID,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return apperror.InvalidArgument("payment is no longer pending")
		}

		result.Enrollment = &enrollment
		return nil
	})
	if err != nil {
		return nil, classify(err, "failed to verify payment")
	}

	payment.Status = model.PaymentStatusVerified
	payment.VerifiedAt = &now
	payment.EnrollmentID = &result.Enrollment.ID
	result.Payment = &payment

	log.Infow("payment verified", "payment_id", payment.ID, "user_id", payment.UserID,
		"course_id", payment.CourseID, "enrollment_id", result.Enrollment.ID,
		"enrollment_created", result.EnrollmentCreated)

	title := s.courseTitle(ctx, payment.CourseID)
	s.notifier.TryNotify(ctx, payment.UserID, NotificationInput{
		Title:     "Payment verified",
		Message:   fmt.Sprintf("Your payment for %s has been verified. You can start learning now.", title),
		Type:      model.NotificationTypePayment,
		Icon:      "check-circle",
		Color:     "green",
		RelatedID: payment.CourseID.String(),
		Metadata: map[string]interface{}{
			"payment_id":     payment.ID.String(),
			"invoice_number": payment.InvoiceNumber,
		},
	})
	publish(ctx, s.publisher, events.TypePaymentVerified, events.PaymentVerified{
		PaymentID:     payment.ID,
		UserID:        payment.UserID,
		CourseID:      payment.CourseID,
		EnrollmentID:  result.Enrollment.ID,
		InvoiceNumber: payment.InvoiceNumber,
		Amount:        payment.Amount,
	})

	return result, nil
}

// Reject declines a pending payment. No enrollment is touched.
func (s *PaymentService) Reject(ctx context.Context, paymentID uuid.UUID, reason string) (*model.Payment, error) {
	var payment model.Payment
	if err := s.db.WithContext(ctx).Where("id = ?", paymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("payment not found")
		}
		return nil, apperror.Internal("failed to load payment", err)
	}
	if !payment.IsPending() {
		return nil, apperror.InvalidArgument("payment is already %s", payment.Status)
	}

	now := time.Now()
	update := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", payment.ID, model.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":           model.PaymentStatusRejected,
			"rejected_at":      now,
			"rejection_reason": reason,
		})
	if update.Error != nil {
		return nil, apperror.Internal("failed to reject payment", update.Error)
	}
	if update.RowsAffected == 0 {
		return nil, apperror.InvalidArgument("payment is no longer pending")
	}

	payment.Status = model.PaymentStatusRejected
	payment.RejectedAt = &now
	payment.RejectionReason = reason

	log.Infow("payment rejected", "payment_id", payment.ID, "user_id", payment.UserID, "reason", reason)

	message := fmt.Sprintf("Your payment for %s was rejected.", s.courseTitle(ctx, payment.CourseID))
	if reason != "" {
		message += " Reason: " + reason
	}
	s.notifier.TryNotify(ctx, payment.UserID, NotificationInput{
		Title:     "Payment rejected",
		Message:   message,
		Type:      model.NotificationTypePayment,
		Icon:      "x-circle",
		Color:     "red",
		RelatedID: payment.CourseID.String(),
		Metadata: map[string]interface{}{
			"payment_id":     payment.ID.String(),
			"invoice_number": payment.InvoiceNumber,
		},
	})
	publish(ctx, s.publisher, events.TypePaymentRejected, events.PaymentRejected{
		PaymentID:     payment.ID,
		UserID:        payment.UserID,
		CourseID:      payment.CourseID,
		InvoiceNumber: payment.InvoiceNumber,
		Reason:        reason,
	})

	return &payment, nil
}

// courseTitle returns the course title for messages, including for removed
// courses
func (s *PaymentService) courseTitle(ctx context.Context, courseID uuid.UUID) string {
	var course model.Course
	if err := s.db.WithContext(ctx).Unscoped().Select("id", "title").
		Where("id = ?", courseID).First(&course).Error; err != nil {
		return "your course"
	}
	return course.Title
}

func isEnrolled(db *gorm.DB, userID, courseID uuid.UUID) (bool, error) {
	var count int64
	err := db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}
