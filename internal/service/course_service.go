package service

import (
	"context"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/repository"
	"credlyse_backend/internal/util"
	"fmt"
	"time"
)

// CourseService serves course lookups and explicit enrollment.
type CourseService struct {
	CourseRepo     *repository.CourseRepository
	VideoRepo      *repository.VideoRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Now            func() time.Time
}

func NewCourseService(
	courseRepo *repository.CourseRepository,
	videoRepo *repository.VideoRepository,
	enrollmentRepo *repository.EnrollmentRepository,
) *CourseService {
	return &CourseService{
		CourseRepo:     courseRepo,
		VideoRepo:      videoRepo,
		EnrollmentRepo: enrollmentRepo,
		Now:            time.Now,
	}
}

type EnrollResult struct {
	EnrollmentID    uint   `json:"enrollment_id"`
	AlreadyEnrolled bool   `json:"already_enrolled"`
	Message         string `json:"message"`
}

type EnrollmentSummary struct {
	ID             uint      `json:"id"`
	CourseID       uint      `json:"course_id"`
	CourseTitle    string    `json:"course_title"`
	ThumbnailURL   string    `json:"thumbnail_url,omitempty"`
	TotalVideos    int       `json:"total_videos"`
	IsCompleted    bool      `json:"is_completed"`
	CertificateURL string    `json:"certificate_url,omitempty"`
	EnrolledAt     time.Time `json:"enrolled_at"`
	LastActiveAt   time.Time `json:"last_active_at"`
}

type VideoSummary struct {
	ID             uint   `json:"id"`
	YoutubeVideoID string `json:"youtube_video_id"`
	Title          string `json:"title"`
	HasQuiz        bool   `json:"has_quiz"`
	Order          int    `json:"order"`
}

type CourseStatus struct {
	Exists       bool           `json:"playlist_exists"`
	CourseID     *uint          `json:"playlist_id"`
	Title        *string        `json:"playlist_title"`
	IsEnrolled   bool           `json:"is_enrolled"`
	EnrollmentID *uint          `json:"enrollment_id"`
	Videos       []VideoSummary `json:"videos"`
}

// PublicQuestion is a quiz question without its answer.
type PublicQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type VideoQuiz struct {
	HasQuiz    bool             `json:"has_quiz"`
	VideoID    uint             `json:"video_id,omitempty"`
	VideoTitle string           `json:"video_title,omitempty"`
	Questions  []PublicQuestion `json:"questions"`
}

func (s *CourseService) findCourse(ctx context.Context, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if repository.IsNotFound(err) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}
	return course, nil
}

// Enroll registers the user explicitly. Enrolling twice is not an error.
func (s *CourseService) Enroll(ctx context.Context, userID, courseID uint) (*EnrollResult, error) {
	if _, err := s.findCourse(ctx, courseID); err != nil {
		return nil, err
	}
	n, err := s.VideoRepo.CountByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, util.ErrCourseHasNoVideos
	}

	enrollment, created, err := s.EnrollmentRepo.GetOrCreate(ctx, userID, courseID, s.Now())
	if err != nil {
		return nil, fmt.Errorf("enroll user %d in course %d: %w", userID, courseID, err)
	}
	if !created {
		return &EnrollResult{EnrollmentID: enrollment.ID, AlreadyEnrolled: true, Message: "Already enrolled"}, nil
	}
	return &EnrollResult{EnrollmentID: enrollment.ID, Message: "Enrolled successfully"}, nil
}

// ListEnrollments returns the user's courses, newest enrollment first.
func (s *CourseService) ListEnrollments(ctx context.Context, userID uint) ([]EnrollmentSummary, error) {
	enrollments, err := s.EnrollmentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	courseIDs := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	firstVideos, err := s.VideoRepo.FirstByCourses(ctx, courseIDs)
	if err != nil {
		return nil, err
	}

	out := make([]EnrollmentSummary, 0, len(enrollments))
	for _, e := range enrollments {
		summary := EnrollmentSummary{
			ID:             e.ID,
			CourseID:       e.CourseID,
			IsCompleted:    e.IsCompleted,
			CertificateURL: e.CertificateURL,
			EnrolledAt:     e.CreatedAt,
			LastActiveAt:   e.LastActiveAt,
		}
		if e.Course != nil {
			summary.CourseTitle = e.Course.Title
			summary.TotalVideos = e.Course.TotalVideos
		}
		if v, ok := firstVideos[e.CourseID]; ok {
			summary.ThumbnailURL = util.YoutubeThumbnailURL(v.YoutubeVideoID)
		}
		out = append(out, summary)
	}
	return out, nil
}

// Status reports whether a playlist is known and, for a signed-in user,
// whether they are enrolled. userID 0 means anonymous.
func (s *CourseService) Status(ctx context.Context, playlistID string, userID uint) (*CourseStatus, error) {
	course, err := s.CourseRepo.FindByPlaylistID(ctx, playlistID)
	if repository.IsNotFound(err) {
		return &CourseStatus{Videos: []VideoSummary{}}, nil
	}
	if err != nil {
		return nil, err
	}

	status := &CourseStatus{
		Exists:   true,
		CourseID: &course.ID,
		Title:    &course.Title,
	}

	if userID != 0 {
		enrollment, err := s.EnrollmentRepo.Find(ctx, userID, course.ID)
		switch {
		case err == nil:
			status.IsEnrolled = true
			status.EnrollmentID = &enrollment.ID
		case !repository.IsNotFound(err):
			return nil, err
		}
	}

	videos, err := s.VideoRepo.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	status.Videos = make([]VideoSummary, 0, len(videos))
	for i, v := range videos {
		status.Videos = append(status.Videos, VideoSummary{
			ID:             v.ID,
			YoutubeVideoID: v.YoutubeVideoID,
			Title:          v.Title,
			HasQuiz:        v.HasQuiz,
			Order:          i + 1,
		})
	}
	return status, nil
}

// Quiz returns a video's questions with the answers stripped.
func (s *CourseService) Quiz(ctx context.Context, videoID uint) (*VideoQuiz, error) {
	video, err := s.VideoRepo.FindByID(ctx, videoID)
	if repository.IsNotFound(err) {
		return nil, util.ErrVideoNotFound
	}
	if err != nil {
		return nil, err
	}

	questions := video.Questions()
	if len(questions) == 0 {
		return &VideoQuiz{Questions: []PublicQuestion{}}, nil
	}
	out := &VideoQuiz{
		HasQuiz:    true,
		VideoID:    video.ID,
		VideoTitle: video.Title,
		Questions:  make([]PublicQuestion, 0, len(questions)),
	}
	for _, q := range questions {
		out.Questions = append(out.Questions, PublicQuestion{Question: q.Question, Options: q.Options})
	}
	return out, nil
}
