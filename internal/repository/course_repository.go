package repository

import (
	"context"
	"credlyse_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) FindByPlaylistID(ctx context.Context, playlistID string) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).Where("youtube_playlist_id = ?", playlistID).First(&course).Error
	return &course, err
}

func (r *CourseRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Course, error) {
	out := make(map[uint]model.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var courses []model.Course
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, err
	}
	for _, c := range courses {
		out[c.ID] = c
	}
	return out, nil
}

// ListWithPendingVideos returns ids of courses that still have videos awaiting analysis.
func (r *CourseRepository) ListWithPendingVideos(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Video{}).
		Where("analysis_status = ?", model.AnalysisPending).
		Distinct().
		Pluck("course_id", &ids).Error
	return ids, err
}
