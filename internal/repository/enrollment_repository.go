package repository

import (
	"context"
	"credlyse_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

func (r *EnrollmentRepository) Find(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	return &e, err
}

// GetOrCreate returns the (user, course) enrollment, creating it if absent.
func (r *EnrollmentRepository) GetOrCreate(ctx context.Context, userID, courseID uint, now time.Time) (*model.Enrollment, bool, error) {
	db := r.DB.WithContext(ctx)
	query := func() *gorm.DB {
		return r.DB.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID)
	}
	return firstOrCreate(query, db, &model.Enrollment{
		UserID:       userID,
		CourseID:     courseID,
		LastActiveAt: now,
	})
}

func (r *EnrollmentRepository) Touch(ctx context.Context, id uint, now time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ?", id).
		Update("last_active_at", now).Error
}

// MarkCompleted sets is_completed; it never clears it.
func (r *EnrollmentRepository) MarkCompleted(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ?", id).
		Update("is_completed", true).Error
}

func (r *EnrollmentRepository) MarkCertified(ctx context.Context, id uint, certificateURL string) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_completed":    true,
			"certificate_url": certificateURL,
		}).Error
}

// ListByUser returns the user's enrollments, newest first, with their course.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	var out []model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Enrollment, error) {
	var out []model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
