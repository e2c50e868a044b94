package repository

import (
	"context"
	"credlyse_backend/internal/model"

	"gorm.io/gorm"
)

type VideoRepository struct {
	DB *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{DB: db}
}

func (r *VideoRepository) WithTx(tx *gorm.DB) *VideoRepository {
	return &VideoRepository{DB: tx}
}

func (r *VideoRepository) Create(ctx context.Context, video *model.Video) error {
	return r.DB.WithContext(ctx).Create(video).Error
}

func (r *VideoRepository) FindByID(ctx context.Context, id uint) (*model.Video, error) {
	var video model.Video
	err := r.DB.WithContext(ctx).First(&video, id).Error
	return &video, err
}

// ListByCourse returns the course's videos in playlist order.
func (r *VideoRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Video, error) {
	var videos []model.Video
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC, id ASC").
		Find(&videos).Error
	return videos, err
}

func (r *VideoRepository) ListPendingByCourse(ctx context.Context, courseID uint) ([]model.Video, error) {
	var videos []model.Video
	err := r.DB.WithContext(ctx).
		Where("course_id = ? AND analysis_status <> ?", courseID, model.AnalysisCompleted).
		Order("position ASC, id ASC").
		Find(&videos).Error
	return videos, err
}

func (r *VideoRepository) CountByCourse(ctx context.Context, courseID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Video{}).Where("course_id = ?", courseID).Count(&n).Error
	return n, err
}

// FirstByCourses maps each course id to its first video in playlist order.
func (r *VideoRepository) FirstByCourses(ctx context.Context, courseIDs []uint) (map[uint]model.Video, error) {
	out := make(map[uint]model.Video, len(courseIDs))
	if len(courseIDs) == 0 {
		return out, nil
	}
	var videos []model.Video
	err := r.DB.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Order("course_id ASC, position ASC, id ASC").
		Find(&videos).Error
	if err != nil {
		return nil, err
	}
	for _, v := range videos {
		if _, ok := out[v.CourseID]; !ok {
			out[v.CourseID] = v
		}
	}
	return out, nil
}

// SaveAnalysis stores the outcome of analyzing one video.
func (r *VideoRepository) SaveAnalysis(ctx context.Context, video *model.Video) error {
	return r.DB.WithContext(ctx).Model(video).Select("transcript", "has_quiz", "quiz_data", "analysis_status").
		Updates(map[string]interface{}{
			"transcript":      video.Transcript,
			"has_quiz":        video.HasQuiz,
			"quiz_data":       video.QuizData,
			"analysis_status": video.AnalysisStatus,
		}).Error
}

func (r *VideoRepository) SetAnalysisStatus(ctx context.Context, videoID uint, status model.AnalysisStatus) error {
	return r.DB.WithContext(ctx).Model(&model.Video{}).
		Where("id = ?", videoID).
		Update("analysis_status", status).Error
}

type AnalysisCounts struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	WithQuiz  int64 `json:"with_quiz"`
}

func (r *VideoRepository) AnalysisCounts(ctx context.Context, courseID uint) (*AnalysisCounts, error) {
	var rows []struct {
		AnalysisStatus model.AnalysisStatus
		HasQuiz        bool
		N              int64
	}
	err := r.DB.WithContext(ctx).Model(&model.Video{}).
		Select("analysis_status, has_quiz, COUNT(*) AS n").
		Where("course_id = ?", courseID).
		Group("analysis_status, has_quiz").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := &AnalysisCounts{}
	for _, row := range rows {
		counts.Total += row.N
		switch row.AnalysisStatus {
		case model.AnalysisCompleted:
			counts.Completed += row.N
		case model.AnalysisFailed:
			counts.Failed += row.N
		default:
			counts.Pending += row.N
		}
		if row.HasQuiz {
			counts.WithQuiz += row.N
		}
	}
	return counts, nil
}
