package service

import (
	"context"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/repository"
	"credlyse_backend/internal/util"
	"time"
)

type AnalyticsService struct {
	CourseRepo      *repository.CourseRepository
	VideoRepo       *repository.VideoRepository
	EnrollmentRepo  *repository.EnrollmentRepository
	ProgressRepo    *repository.ProgressRepository
	CertificateRepo *repository.CertificateRepository
	UserRepo        *repository.UserRepository
}

func NewAnalyticsService(
	courseRepo *repository.CourseRepository,
	videoRepo *repository.VideoRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progressRepo *repository.ProgressRepository,
	certificateRepo *repository.CertificateRepository,
	userRepo *repository.UserRepository,
) *AnalyticsService {
	return &AnalyticsService{
		CourseRepo:      courseRepo,
		VideoRepo:       videoRepo,
		EnrollmentRepo:  enrollmentRepo,
		ProgressRepo:    progressRepo,
		CertificateRepo: certificateRepo,
		UserRepo:        userRepo,
	}
}

type StudentAnalytics struct {
	UserID               uint      `json:"user_id"`
	StudentName          string    `json:"student_name"`
	Email                string    `json:"user_email"`
	EnrolledAt           time.Time `json:"enrolled_at"`
	CompletionPercentage float64   `json:"completion_percentage"`
	AverageQuizScore     *float64  `json:"average_quiz_score"`
	CertificateIssued    bool      `json:"certificate_issued"`
}

type CourseAnalytics struct {
	CourseID         uint               `json:"course_id"`
	CourseTitle      string             `json:"course_title"`
	TotalVideos      int                `json:"total_videos"`
	TotalEnrollments int                `json:"total_enrollments"`
	CompletionRate   float64            `json:"completion_rate"`
	AverageQuizScore float64            `json:"average_quiz_score"`
	Enrollments      []StudentAnalytics `json:"enrollments"`
}

// CourseAnalytics reports per-student progress for a course. Only the course's
// creator may read it.
func (s *AnalyticsService) CourseAnalytics(ctx context.Context, requesterID, courseID uint) (*CourseAnalytics, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if course.CreatorID != requesterID {
		return nil, util.ErrNotCourseOwner
	}

	totalVideos, err := s.VideoRepo.CountByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.EnrollmentRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	enrollmentIDs := make([]uint, 0, len(enrollments))
	userIDs := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		enrollmentIDs = append(enrollmentIDs, e.ID)
		userIDs = append(userIDs, e.UserID)
	}
	progress, err := s.ProgressRepo.ListByEnrollments(ctx, enrollmentIDs)
	if err != nil {
		return nil, err
	}
	users, err := s.UserRepo.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	certified, err := s.CertificateRepo.CertifiedUsers(ctx, courseID)
	if err != nil {
		return nil, err
	}

	out := &CourseAnalytics{
		CourseID:         course.ID,
		CourseTitle:      course.Title,
		TotalVideos:      int(totalVideos),
		TotalEnrollments: len(enrollments),
		Enrollments:      make([]StudentAnalytics, 0, len(enrollments)),
	}

	var completionSum, scoreSum float64
	var scored int
	for _, e := range enrollments {
		row := studentRow(e, progress[e.ID], int(totalVideos))
		if u, ok := users[e.UserID]; ok {
			row.StudentName = u.DisplayName()
			row.Email = u.Email
		}
		row.CertificateIssued = certified[e.UserID]

		completionSum += row.CompletionPercentage
		if row.AverageQuizScore != nil {
			scoreSum += *row.AverageQuizScore
			scored++
		}
		out.Enrollments = append(out.Enrollments, row)
	}
	if n := len(out.Enrollments); n > 0 {
		out.CompletionRate = util.Round1(completionSum / float64(n))
	}
	if scored > 0 {
		out.AverageQuizScore = util.Round1(scoreSum / float64(scored))
	}
	return out, nil
}

func studentRow(e model.Enrollment, progress []model.VideoProgress, totalVideos int) StudentAnalytics {
	row := StudentAnalytics{UserID: e.UserID, EnrolledAt: e.CreatedAt}

	watched, scoreSum, scored := 0, 0, 0
	for _, p := range progress {
		if p.WatchStatus == model.Watched {
			watched++
		}
		if p.QuizScore != nil {
			scoreSum += *p.QuizScore
			scored++
		}
	}

	if totalVideos > 0 {
		pct := float64(watched) * 100 / float64(totalVideos)
		if pct > 100 {
			pct = 100
		}
		row.CompletionPercentage = util.Round1(pct)
	}
	if scored > 0 {
		avg := util.Round1(float64(scoreSum) / float64(scored))
		row.AverageQuizScore = &avg
	}
	return row
}
