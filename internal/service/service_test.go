package service

import (
	"context"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/repository"
	"credlyse_backend/pkg/database"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeRenderer struct {
	mu        sync.Mutex
	rendered  []string
	discarded []string
	err       error
}

func (r *fakeRenderer) Render(_ context.Context, art CertificateArtwork) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.rendered = append(r.rendered, art.CertificateID)
	return "https://cdn.test/certificates/" + art.CertificateID + ".png", nil
}

func (r *fakeRenderer) Discard(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discarded = append(r.discarded, url)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (n *fakeNotifier) CertificateIssued(context.Context, *model.User, *model.Course, *model.Certificate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	return n.err
}

type fixture struct {
	db           *gorm.DB
	users        *repository.UserRepository
	courses      *repository.CourseRepository
	videos       *repository.VideoRepository
	enrollments  *repository.EnrollmentRepository
	progress     *repository.ProgressRepository
	certificates *repository.CertificateRepository

	renderer *fakeRenderer
	notifier *fakeNotifier

	progressSvc    *ProgressService
	certificateSvc *CertificateService
	courseSvc      *CourseService
	analyticsSvc   *AnalyticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{
		db:           db,
		users:        repository.NewUserRepository(db),
		courses:      repository.NewCourseRepository(db),
		videos:       repository.NewVideoRepository(db),
		enrollments:  repository.NewEnrollmentRepository(db),
		progress:     repository.NewProgressRepository(db),
		certificates: repository.NewCertificateRepository(db),
		renderer:     &fakeRenderer{},
		notifier:     &fakeNotifier{},
	}
	f.progressSvc = NewProgressService(db, f.enrollments, f.progress, f.videos)
	f.certificateSvc = NewCertificateService(db, f.certificates, f.enrollments, f.progress,
		f.courses, f.videos, f.users, f.renderer, f.notifier)
	f.courseSvc = NewCourseService(f.courses, f.videos, f.enrollments)
	f.analyticsSvc = NewAnalyticsService(f.courses, f.videos, f.enrollments, f.progress, f.certificates, f.users)
	return f
}

func (f *fixture) user(t *testing.T, name string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Role: model.Student}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// course seeds a course owned by creatorID with one video per entry in
// quizzes; nil means no quiz, otherwise the listed answers.
func (f *fixture) course(t *testing.T, creatorID uint, quizzes ...[]string) (*model.Course, []model.Video) {
	t.Helper()
	ctx := context.Background()
	course := &model.Course{
		CreatorID:         creatorID,
		YoutubePlaylistID: fmt.Sprintf("PL-%d-%d", creatorID, time.Now().UnixNano()),
		Title:             "Go Fundamentals",
		TotalVideos:       len(quizzes),
	}
	if err := f.courses.Create(ctx, course); err != nil {
		t.Fatalf("create course: %v", err)
	}

	videos := make([]model.Video, 0, len(quizzes))
	for i, answers := range quizzes {
		v := model.Video{
			CourseID:       course.ID,
			YoutubeVideoID: fmt.Sprintf("yt-%d-%d", course.ID, i),
			Title:          fmt.Sprintf("Lesson %d", i+1),
			Position:       i,
			AnalysisStatus: model.AnalysisCompleted,
		}
		if answers != nil {
			qs := make([]model.QuizQuestion, 0, len(answers))
			for j, a := range answers {
				qs = append(qs, model.QuizQuestion{
					Question: fmt.Sprintf("Question %d", j+1),
					Options:  []string{a, "wrong", "other"},
					Answer:   a,
				})
			}
			v.HasQuiz = true
			v.QuizData = datatypes.NewJSONType(model.QuizData{HasQuiz: true, Questions: qs})
		}
		if err := f.videos.Create(ctx, &v); err != nil {
			t.Fatalf("create video: %v", err)
		}
		videos = append(videos, v)
	}
	return course, videos
}

func (f *fixture) enrollment(t *testing.T, userID, courseID uint) *model.Enrollment {
	t.Helper()
	e, err := f.enrollments.Find(context.Background(), userID, courseID)
	if err != nil {
		t.Fatalf("find enrollment: %v", err)
	}
	return e
}

// watchAndPass drives one video through start, complete and, when it has a
// quiz, a fully correct submission.
func (f *fixture) watchAndPass(t *testing.T, userID uint, v model.Video) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.progressSvc.Start(ctx, userID, v.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.progressSvc.Complete(ctx, userID, v.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !v.HasQuiz {
		return
	}
	answers := map[string]string{}
	for i, q := range v.Questions() {
		answers[fmt.Sprint(i)] = q.Answer
	}
	res, err := f.progressSvc.SubmitQuiz(ctx, userID, v.ID, answers)
	if err != nil {
		t.Fatalf("submit quiz: %v", err)
	}
	if !res.Passed {
		t.Fatalf("expected pass, got %+v", res)
	}
}

func mustErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("want error %v, got %v", target, err)
	}
}
