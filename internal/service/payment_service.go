package service

import (
	"context"
	"fmt"
	"strings"

	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/repository"
	"tutor_market_backend/internal/util"
	"tutor_market_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentService 模拟支付意图流程（create -> confirm / cancel），不调用真实网关
type PaymentService struct {
	DB          *gorm.DB
	Repo        *repository.PaymentRepository
	Courses     *repository.CourseRepository
	Enrollments *repository.EnrollmentRepository
	Notifier    Notifier
}

func NewPaymentService(db *gorm.DB, repo *repository.PaymentRepository, courses *repository.CourseRepository,
	enrollments *repository.EnrollmentRepository, notifier Notifier) *PaymentService {
	return &PaymentService{DB: db, Repo: repo, Courses: courses, Enrollments: enrollments, Notifier: notifier}
}

func newClientSecret(paymentID string) string {
	return "pi_" + strings.ReplaceAll(paymentID, "-", "") + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *PaymentService) CreateIntent(userID uint, courseID string) (*model.Payment, error) {
	course, err := s.Courses.FindByID(courseID)
	if err != nil {
		return nil, notFound(err, "course", courseID)
	}
	if course.Status != model.CoursePublished {
		return nil, util.ErrCourseNotPublished
	}
	if course.IsFree() {
		return nil, util.Invalid("courseId", "course is free, enroll directly")
	}
	enrolled, err := s.Enrollments.IsEnrolled(userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, util.ErrAlreadyEnrolled
	}

	p := &model.Payment{
		UserID:   userID,
		CourseID: courseID,
		Amount:   course.EffectivePrice(),
		Currency: "usd",
		Status:   model.PaymentRequiresConfirmation,
	}
	p.ID = model.GenerateUUID()
	p.ClientSecret = newClientSecret(p.ID)
	if err := s.Repo.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PaymentService) findOwned(repo *repository.PaymentRepository, userID uint, paymentID string) (*model.Payment, error) {
	p, err := repo.FindByID(paymentID)
	if err != nil {
		return nil, notFound(err, "payment", paymentID)
	}
	if p.UserID != userID {
		return nil, util.NewNotFoundError("payment", paymentID)
	}
	return p, nil
}

// ConfirmIntent 确认支付并开通课程。已成功的支付重复确认直接返回。
func (s *PaymentService) ConfirmIntent(ctx context.Context, userID uint, paymentID, clientSecret string) (*model.Payment, error) {
	var (
		payment   *model.Payment
		confirmed bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		p, err := s.findOwned(repo, userID, paymentID)
		if err != nil {
			return err
		}
		payment = p
		if p.ClientSecret != clientSecret {
			return util.Invalid("clientSecret", "does not match payment")
		}

		switch p.Status {
		case model.PaymentSucceeded:
			return nil
		case model.PaymentCanceled:
			return &util.ConflictError{Reason: "payment was canceled"}
		}

		ok, err := repo.UpdateStatus(p.ID, model.PaymentRequiresConfirmation, model.PaymentSucceeded)
		if err != nil {
			return err
		}
		if !ok {
			return &util.ConflictError{Reason: "payment status changed concurrently"}
		}
		p.Status = model.PaymentSucceeded

		enrollment := &model.Enrollment{UserID: p.UserID, CourseID: p.CourseID, PaymentID: &p.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(enrollment).Error; err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}
		confirmed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if confirmed {
		logger.Log.Info("Payment confirmed",
			zap.String("paymentId", payment.ID),
			zap.Uint("userId", userID),
			zap.String("courseId", payment.CourseID),
			zap.String("amount", payment.Amount.StringFixed(2)))
		s.Notifier.Notify(userID, "支付成功",
			fmt.Sprintf("已支付 %s %s，课程已开通", payment.Amount.StringFixed(2), strings.ToUpper(payment.Currency)),
			model.NotificationPayment, "/courses/"+payment.CourseID)
	}
	return payment, nil
}

func (s *PaymentService) CancelIntent(userID uint, paymentID string) (*model.Payment, error) {
	p, err := s.findOwned(s.Repo, userID, paymentID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case model.PaymentCanceled:
		return p, nil
	case model.PaymentSucceeded:
		return nil, &util.ConflictError{Reason: "payment already succeeded"}
	}

	ok, err := s.Repo.UpdateStatus(p.ID, model.PaymentRequiresConfirmation, model.PaymentCanceled)
	if err != nil {
		return nil, err
	}
	if !ok {
		if p, err = s.Repo.FindByID(paymentID); err != nil {
			return nil, err
		}
		if p.Status != model.PaymentCanceled {
			return nil, &util.ConflictError{Reason: "payment status changed concurrently"}
		}
		return p, nil
	}
	p.Status = model.PaymentCanceled
	return p, nil
}
