package repository

import (
	"context"
	"credlyse_backend/internal/model"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) WithTx(tx *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: tx}
}

func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.WithContext(ctx).Preload("User").Preload("Course").Where("id = ?", id).First(&cert).Error
	return &cert, err
}

func (r *CertificateRepository) FindByUserCourse(ctx context.Context, userID, courseID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&cert).Error
	return &cert, err
}

// Create inserts cert unless one already exists for its (user, course). It
// returns the stored certificate and whether cert was the one inserted.
func (r *CertificateRepository) Create(ctx context.Context, cert *model.Certificate) (*model.Certificate, bool, error) {
	db := r.DB.WithContext(ctx)
	query := func() *gorm.DB {
		return r.DB.WithContext(ctx).Where("user_id = ? AND course_id = ?", cert.UserID, cert.CourseID)
	}
	return firstOrCreate(query, db, cert)
}

func (r *CertificateRepository) SetArtifactURL(ctx context.Context, id, url string) error {
	return r.DB.WithContext(ctx).Model(&model.Certificate{}).
		Where("id = ?", id).
		Update("artifact_url", url).Error
}

// CertifiedUsers returns the set of users holding a certificate for the course.
func (r *CertificateRepository) CertifiedUsers(ctx context.Context, courseID uint) (map[uint]bool, error) {
	var ids []uint
	if err := r.DB.WithContext(ctx).Model(&model.Certificate{}).
		Where("course_id = ?", courseID).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
