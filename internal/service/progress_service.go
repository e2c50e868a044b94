package service

import (
	"context"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/repository"
	"credlyse_backend/internal/util"
	"credlyse_backend/pkg/logger"
	"credlyse_backend/pkg/monitoring"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService owns the enrollment and per-video progress lifecycle.
// Every operation reads and writes its rows inside one transaction.
type ProgressService struct {
	DB             *gorm.DB
	EnrollmentRepo *repository.EnrollmentRepository
	ProgressRepo   *repository.ProgressRepository
	VideoRepo      *repository.VideoRepository
	Now            func() time.Time
}

func NewProgressService(
	db *gorm.DB,
	enrollmentRepo *repository.EnrollmentRepository,
	progressRepo *repository.ProgressRepository,
	videoRepo *repository.VideoRepository,
) *ProgressService {
	return &ProgressService{
		DB:             db,
		EnrollmentRepo: enrollmentRepo,
		ProgressRepo:   progressRepo,
		VideoRepo:      videoRepo,
		Now:            time.Now,
	}
}

type ProgressView struct {
	VideoID        uint              `json:"video_id"`
	WatchStatus    model.WatchStatus `json:"watch_status"`
	SecondsWatched int               `json:"seconds_watched"`
	IsQuizPassed   bool              `json:"is_quiz_passed"`
	QuizScore      *int              `json:"quiz_score"`
}

func newProgressView(p *model.VideoProgress) *ProgressView {
	return &ProgressView{
		VideoID:        p.VideoID,
		WatchStatus:    p.WatchStatus,
		SecondsWatched: p.SecondsWatched,
		IsQuizPassed:   p.IsQuizPassed,
		QuizScore:      p.QuizScore,
	}
}

type QuizResult struct {
	VideoID         uint   `json:"video_id"`
	Score           int    `json:"score"`
	Passed          bool   `json:"passed"`
	CorrectCount    int    `json:"correct_count"`
	TotalQuestions  int    `json:"total_questions"`
	Message         string `json:"message"`
	CourseCompleted bool   `json:"course_completed"`
}

func (s *ProgressService) findVideo(ctx context.Context, videoID uint) (*model.Video, error) {
	video, err := s.VideoRepo.FindByID(ctx, videoID)
	if repository.IsNotFound(err) {
		return nil, util.ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load video %d: %w", videoID, err)
	}
	return video, nil
}

// existing loads the enrollment and progress rows that must already exist.
func (s *ProgressService) existing(ctx context.Context, tx *gorm.DB, userID uint, video *model.Video) (*model.Enrollment, *model.VideoProgress, error) {
	enrollment, err := s.EnrollmentRepo.WithTx(tx).Find(ctx, userID, video.CourseID)
	if repository.IsNotFound(err) {
		return nil, nil, util.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	progress, err := s.ProgressRepo.WithTx(tx).Find(ctx, enrollment.ID, video.ID)
	if repository.IsNotFound(err) {
		return nil, nil, util.ErrProgressNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return enrollment, progress, nil
}

// Start enrolls the user in the video's course if needed and moves the video
// to IN_PROGRESS. Repeated calls never regress the status.
func (s *ProgressService) Start(ctx context.Context, userID, videoID uint) (*ProgressView, error) {
	video, err := s.findVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	var progress *model.VideoProgress
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.Now()
		enrollment, created, err := s.EnrollmentRepo.WithTx(tx).GetOrCreate(ctx, userID, video.CourseID, now)
		if err != nil {
			return err
		}
		if created {
			logger.Log.Info("Enrollment created",
				zap.Uint("user_id", userID),
				zap.Uint("course_id", video.CourseID))
		}

		progress, _, err = s.ProgressRepo.WithTx(tx).GetOrCreate(ctx, enrollment.ID, video.ID, model.NotStarted)
		if err != nil {
			return err
		}
		if progress.Advance(model.InProgress) {
			if err := s.ProgressRepo.WithTx(tx).Save(ctx, progress); err != nil {
				return err
			}
		}
		return s.EnrollmentRepo.WithTx(tx).Touch(ctx, enrollment.ID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("start video %d: %w", videoID, err)
	}
	return newProgressView(progress), nil
}

// Heartbeat records the client's playback position. The value is stored as
// sent; a smaller value than before replaces the larger one.
func (s *ProgressService) Heartbeat(ctx context.Context, userID, videoID uint, secondsWatched int) (*ProgressView, error) {
	if secondsWatched < 0 {
		return nil, fmt.Errorf("%w: seconds_watched must be non-negative", util.ErrBadRequest)
	}
	video, err := s.findVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	var progress *model.VideoProgress
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var enrollment *model.Enrollment
		var err error
		enrollment, progress, err = s.existing(ctx, tx, userID, video)
		if err != nil {
			return err
		}

		progress.SecondsWatched = secondsWatched
		progress.Advance(model.InProgress)
		if err := s.ProgressRepo.WithTx(tx).Save(ctx, progress); err != nil {
			return err
		}
		return s.EnrollmentRepo.WithTx(tx).Touch(ctx, enrollment.ID, s.Now())
	})
	if err != nil {
		return nil, fmt.Errorf("heartbeat video %d: %w", videoID, err)
	}
	return newProgressView(progress), nil
}

// Complete marks the video WATCHED. A video without a quiz counts as passed
// with a full score. Course completion is not recomputed here.
func (s *ProgressService) Complete(ctx context.Context, userID, videoID uint) (*ProgressView, error) {
	video, err := s.findVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	var progress *model.VideoProgress
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var enrollment *model.Enrollment
		var err error
		enrollment, progress, err = s.existing(ctx, tx, userID, video)
		if err != nil {
			return err
		}

		progress.Advance(model.Watched)
		if !video.HasQuiz {
			full := 100
			progress.IsQuizPassed = true
			progress.QuizScore = &full
		}
		if err := s.ProgressRepo.WithTx(tx).Save(ctx, progress); err != nil {
			return err
		}
		return s.EnrollmentRepo.WithTx(tx).Touch(ctx, enrollment.ID, s.Now())
	})
	if err != nil {
		return nil, fmt.Errorf("complete video %d: %w", videoID, err)
	}
	return newProgressView(progress), nil
}

// SubmitQuiz grades answers, keyed by stringified question index, and stores
// the latest score. A pass re-derives course completion.
func (s *ProgressService) SubmitQuiz(ctx context.Context, userID, videoID uint, answers map[string]string) (*QuizResult, error) {
	video, err := s.findVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.HasQuiz {
		return nil, util.ErrNoQuiz
	}
	grade, err := GradeQuiz(video.Questions(), answers)
	if err != nil {
		return nil, err
	}

	result := &QuizResult{
		VideoID:        video.ID,
		Score:          grade.Score,
		Passed:         grade.Passed,
		CorrectCount:   grade.Correct,
		TotalQuestions: grade.Total,
		Message:        util.QuizNotPassedMessage,
	}
	if grade.Passed {
		result.Message = util.QuizPassedMessage
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollment, err := s.EnrollmentRepo.WithTx(tx).Find(ctx, userID, video.CourseID)
		if repository.IsNotFound(err) {
			return util.ErrEnrollmentNotFound
		}
		if err != nil {
			return err
		}

		progress, _, err := s.ProgressRepo.WithTx(tx).GetOrCreate(ctx, enrollment.ID, video.ID, model.InProgress)
		if err != nil {
			return err
		}
		score := grade.Score
		progress.QuizScore = &score
		progress.IsQuizPassed = grade.Passed
		if err := s.ProgressRepo.WithTx(tx).Save(ctx, progress); err != nil {
			return err
		}
		if err := s.EnrollmentRepo.WithTx(tx).Touch(ctx, enrollment.ID, s.Now()); err != nil {
			return err
		}

		if grade.Passed {
			result.CourseCompleted, err = s.deriveCompletion(ctx, tx, enrollment)
			return err
		}
		result.CourseCompleted = enrollment.IsCompleted
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit quiz for video %d: %w", videoID, err)
	}

	monitoring.RecordQuiz(grade.Passed)
	logger.Log.Info("Quiz graded",
		zap.Uint("user_id", userID),
		zap.Uint("video_id", videoID),
		zap.Int("score", grade.Score),
		zap.Bool("passed", grade.Passed))
	return result, nil
}

// deriveCompletion applies QuizCompletion to the enrollment. Once set,
// is_completed is never cleared.
func (s *ProgressService) deriveCompletion(ctx context.Context, tx *gorm.DB, enrollment *model.Enrollment) (bool, error) {
	if enrollment.IsCompleted {
		return true, nil
	}

	videos, err := s.VideoRepo.WithTx(tx).ListByCourse(ctx, enrollment.CourseID)
	if err != nil {
		return false, err
	}
	quizVideoIDs := make([]uint, 0, len(videos))
	for _, v := range videos {
		if v.HasQuiz {
			quizVideoIDs = append(quizVideoIDs, v.ID)
		}
	}
	progress, err := s.ProgressRepo.WithTx(tx).ListForVideos(ctx, enrollment.ID, quizVideoIDs)
	if err != nil {
		return false, err
	}

	if !QuizCompletion(videos, progress) {
		return false, nil
	}
	if err := s.EnrollmentRepo.WithTx(tx).MarkCompleted(ctx, enrollment.ID); err != nil {
		return false, err
	}
	enrollment.IsCompleted = true
	logger.Log.Info("Course completed",
		zap.Uint("user_id", enrollment.UserID),
		zap.Uint("course_id", enrollment.CourseID))
	return true, nil
}
