package service

import (
	"context"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/repository"
	"credlyse_backend/internal/util"
	"credlyse_backend/pkg/batch"
	"credlyse_backend/pkg/logger"
	"credlyse_backend/pkg/monitoring"
	"credlyse_backend/pkg/tracing"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// AnalysisService runs transcript and quiz generation for a course's videos.
type AnalysisService struct {
	CourseRepo  *repository.CourseRepository
	VideoRepo   *repository.VideoRepository
	Provider    AnalysisProvider
	Concurrency int
	// Events, when set, tells the course creator that a run finished.
	Events EventPublisher
}

func NewAnalysisService(courseRepo *repository.CourseRepository, videoRepo *repository.VideoRepository, provider AnalysisProvider, concurrency int) *AnalysisService {
	if concurrency <= 0 {
		concurrency = batch.DefaultConcurrency
	}
	return &AnalysisService{
		CourseRepo:  courseRepo,
		VideoRepo:   videoRepo,
		Provider:    provider,
		Concurrency: concurrency,
	}
}

// analyzeOne runs the provider for one video and persists the outcome. A
// provider failure marks the video FAILED; either way the item counts as failed.
func (s *AnalysisService) analyzeOne(ctx context.Context, video model.Video) error {
	result, err := s.Provider.Analyze(ctx, video.YoutubeVideoID, video.Title)
	if err != nil {
		if serr := s.VideoRepo.SetAnalysisStatus(context.WithoutCancel(ctx), video.ID, model.AnalysisFailed); serr != nil {
			logger.Log.Error("Failed to mark video analysis failed", zap.Uint("video_id", video.ID), zap.Error(serr))
		}
		return fmt.Errorf("analyze video %d: %w", video.ID, err)
	}

	video.Transcript = result.Transcript
	video.HasQuiz = result.Quiz.HasQuiz && len(result.Quiz.Questions) > 0
	video.QuizData = datatypes.NewJSONType(result.Quiz)
	video.AnalysisStatus = model.AnalysisCompleted
	if err := s.VideoRepo.SaveAnalysis(ctx, &video); err != nil {
		return fmt.Errorf("save analysis for video %d: %w", video.ID, err)
	}

	logger.Log.Debug("Video analyzed",
		zap.Uint("video_id", video.ID),
		zap.String("method", result.Method),
		zap.Bool("has_quiz", video.HasQuiz))
	return nil
}

// ProcessVideos analyzes videos with bounded concurrency. Videos that are
// already analyzed are skipped. Per-video failures are counted, never returned.
func (s *AnalysisService) ProcessVideos(ctx context.Context, videos []model.Video) (batch.Result, error) {
	p := batch.New(s.Concurrency, s.analyzeOne,
		batch.WithSkip(func(v model.Video) bool { return v.Analyzed() }),
		batch.WithErrorHook(func(v model.Video, err error) {
			logger.Log.Warn("Video analysis failed", zap.Uint("video_id", v.ID), zap.Error(err))
		}),
	)
	res, err := p.Process(ctx, videos)
	monitoring.RecordBatch(res.Processed, res.Failed, res.Skipped)
	return res, err
}

// ProcessCourse analyzes every not-yet-analyzed video of the course.
func (s *AnalysisService) ProcessCourse(ctx context.Context, courseID uint) (res batch.Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "analysis.process_course", attribute.Int64("course_id", int64(courseID)))
	defer func() { tracing.EndSpan(span, err) }()

	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return batch.Result{}, util.ErrCourseNotFound
		}
		return batch.Result{}, err
	}

	videos, err := s.VideoRepo.ListPendingByCourse(ctx, courseID)
	if err != nil {
		return batch.Result{}, err
	}

	res, err = s.ProcessVideos(ctx, videos)
	span.SetAttributes(
		attribute.Int("processed", res.Processed),
		attribute.Int("failed", res.Failed),
		attribute.Int("skipped", res.Skipped))
	logger.Log.Info("Course analysis finished",
		zap.Uint("course_id", courseID),
		zap.Int("processed", res.Processed),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped))
	if s.Events != nil && len(videos) > 0 {
		s.Events.Publish(course.CreatorID, Event{
			Type: EventAnalysisFinished,
			Data: map[string]interface{}{"course_id": courseID, "result": res},
		})
	}
	return res, err
}

// Status counts the course's videos by analysis state.
func (s *AnalysisService) Status(ctx context.Context, courseID uint) (*repository.AnalysisCounts, error) {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return s.VideoRepo.AnalysisCounts(ctx, courseID)
}

// SweepPending re-runs analysis for every course that still has pending videos.
func (s *AnalysisService) SweepPending(ctx context.Context) error {
	ids, err := s.CourseRepo.ListWithPendingVideos(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.ProcessCourse(ctx, id); err != nil {
			logger.Log.Warn("Pending analysis sweep failed", zap.Uint("course_id", id), zap.Error(err))
		}
	}
	return nil
}
