package repository

import (
	"context"
	"credlyse_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) Find(ctx context.Context, enrollmentID, videoID uint) (*model.VideoProgress, error) {
	var p model.VideoProgress
	err := r.DB.WithContext(ctx).
		Where("enrollment_id = ? AND video_id = ?", enrollmentID, videoID).
		First(&p).Error
	return &p, err
}

// GetOrCreate returns the (enrollment, video) progress row, creating it with
// the given status if absent.
func (r *ProgressRepository) GetOrCreate(ctx context.Context, enrollmentID, videoID uint, initial model.WatchStatus) (*model.VideoProgress, bool, error) {
	db := r.DB.WithContext(ctx)
	query := func() *gorm.DB {
		return r.DB.WithContext(ctx).Where("enrollment_id = ? AND video_id = ?", enrollmentID, videoID)
	}
	return firstOrCreate(query, db, &model.VideoProgress{
		EnrollmentID: enrollmentID,
		VideoID:      videoID,
		WatchStatus:  initial,
	})
}

func (r *ProgressRepository) Save(ctx context.Context, p *model.VideoProgress) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

// ListByEnrollment maps video id to progress for one enrollment.
func (r *ProgressRepository) ListByEnrollment(ctx context.Context, enrollmentID uint) (map[uint]model.VideoProgress, error) {
	return r.byVideo(r.DB.WithContext(ctx).Where("enrollment_id = ?", enrollmentID))
}

func (r *ProgressRepository) ListForVideos(ctx context.Context, enrollmentID uint, videoIDs []uint) (map[uint]model.VideoProgress, error) {
	if len(videoIDs) == 0 {
		return map[uint]model.VideoProgress{}, nil
	}
	return r.byVideo(r.DB.WithContext(ctx).Where("enrollment_id = ? AND video_id IN ?", enrollmentID, videoIDs))
}

// ListByEnrollments groups progress rows by enrollment id.
func (r *ProgressRepository) ListByEnrollments(ctx context.Context, enrollmentIDs []uint) (map[uint][]model.VideoProgress, error) {
	out := make(map[uint][]model.VideoProgress, len(enrollmentIDs))
	if len(enrollmentIDs) == 0 {
		return out, nil
	}
	var rows []model.VideoProgress
	if err := r.DB.WithContext(ctx).Where("enrollment_id IN ?", enrollmentIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.EnrollmentID] = append(out[p.EnrollmentID], p)
	}
	return out, nil
}

func (r *ProgressRepository) byVideo(q *gorm.DB) (map[uint]model.VideoProgress, error) {
	var rows []model.VideoProgress
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]model.VideoProgress, len(rows))
	for _, p := range rows {
		out[p.VideoID] = p
	}
	return out, nil
}
