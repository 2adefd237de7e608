package service

import (
	"context"
	"strings"
	"testing"

	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/repository"
	"tutor_market_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentService(f *fixture) *PaymentService {
	return NewPaymentService(f.db, repository.NewPaymentRepository(f.db), f.courses,
		repository.NewEnrollmentRepository(f.db), f.notifier)
}

func TestPaymentConfirmFlow(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f)
	ctx := context.Background()
	course := f.seedCourse(t, 5, model.CoursePublished, "49.90")

	p, err := svc.CreateIntent(9, course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRequiresConfirmation, p.Status)
	assert.Equal(t, "49.9", p.Amount.String())
	assert.True(t, strings.HasPrefix(p.ClientSecret, "pi_"))

	_, err = svc.ConfirmIntent(ctx, 9, p.ID, "wrong")
	assert.True(t, util.IsValidation(err))

	_, err = svc.ConfirmIntent(ctx, 10, p.ID, p.ClientSecret)
	assert.True(t, util.IsNotFound(err), "other users cannot see the payment")

	confirmed, err := svc.ConfirmIntent(ctx, 9, p.ID, p.ClientSecret)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSucceeded, confirmed.Status)

	again, err := svc.ConfirmIntent(ctx, 9, p.ID, p.ClientSecret)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSucceeded, again.Status)

	assert.EqualValues(t, 1, f.count(t, &model.Enrollment{}, "user_id = ? AND course_id = ?", 9, course.ID))
	sent := f.notifier.all()
	require.Len(t, sent, 1, "notified once")
	assert.Equal(t, model.NotificationPayment, sent[0].Type)

	_, err = svc.CreateIntent(9, course.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	_, err = svc.CancelIntent(9, p.ID)
	assert.True(t, util.IsConflict(err))
}

func TestPaymentCancel(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f)
	course := f.seedCourse(t, 5, model.CoursePublished, "10")

	p, err := svc.CreateIntent(9, course.ID)
	require.NoError(t, err)

	canceled, err := svc.CancelIntent(9, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCanceled, canceled.Status)

	_, err = svc.CancelIntent(9, p.ID)
	require.NoError(t, err)

	_, err = svc.ConfirmIntent(context.Background(), 9, p.ID, p.ClientSecret)
	assert.True(t, util.IsConflict(err))
	assert.Zero(t, f.count(t, &model.Enrollment{}))
}

func TestCreateIntentRules(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f)

	free := f.seedCourse(t, 5, model.CoursePublished, "0")
	draft := f.seedCourse(t, 5, model.CourseDraft, "10")

	_, err := svc.CreateIntent(9, free.ID)
	assert.True(t, util.IsValidation(err))
	_, err = svc.CreateIntent(9, draft.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotPublished)
	_, err = svc.CreateIntent(9, "missing")
	assert.True(t, util.IsNotFound(err))
}
