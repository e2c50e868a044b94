package service

import (
	"context"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/util"
	"errors"
	"sync"
	"testing"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (p *fakeProvider) Analyze(_ context.Context, id, title string) (*AnalysisResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = map[string]int{}
	}
	p.calls[id]++
	if p.fail[id] {
		return nil, errors.New("model unavailable")
	}
	return &AnalysisResult{
		Transcript: "transcript of " + title,
		Quiz: model.QuizData{HasQuiz: true, Questions: []model.QuizQuestion{
			{Question: "q", Options: []string{"a", "b"}, Answer: "a"},
		}},
		Method: MethodTranscript,
	}, nil
}

func pendingCourse(t *testing.T, f *fixture, n int) (*model.Course, []model.Video) {
	t.Helper()
	quizzes := make([][]string, n)
	course, videos := f.course(t, 1, quizzes...)
	for i := range videos {
		if err := f.videos.SetAnalysisStatus(context.Background(), videos[i].ID, model.AnalysisPending); err != nil {
			t.Fatal(err)
		}
		videos[i].AnalysisStatus = model.AnalysisPending
	}
	return course, videos
}

func TestProcessCourseIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course, videos := pendingCourse(t, f, 4)
	provider := &fakeProvider{fail: map[string]bool{videos[2].YoutubeVideoID: true}}
	svc := NewAnalysisService(f.courses, f.videos, provider, 2)

	res, err := svc.ProcessCourse(ctx, course.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 3 || res.Failed != 1 || res.Skipped != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	counts, err := svc.Status(ctx, course.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Total != 4 || counts.Completed != 3 || counts.Failed != 1 || counts.Pending != 0 || counts.WithQuiz != 3 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	stored, err := f.videos.FindByID(ctx, videos[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.HasQuiz || len(stored.Questions()) != 1 || stored.Transcript == "" {
		t.Fatalf("analysis not persisted: %+v", stored)
	}
}

func TestProcessCourseRetriesOnlyUnfinishedVideos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course, videos := pendingCourse(t, f, 3)
	provider := &fakeProvider{fail: map[string]bool{videos[1].YoutubeVideoID: true}}
	svc := NewAnalysisService(f.courses, f.videos, provider, 5)

	if _, err := svc.ProcessCourse(ctx, course.ID); err != nil {
		t.Fatal(err)
	}
	provider.fail = nil
	res, err := svc.ProcessCourse(ctx, course.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 1 || res.Failed != 0 {
		t.Fatalf("second run: %+v", res)
	}
	if provider.calls[videos[0].YoutubeVideoID] != 1 || provider.calls[videos[1].YoutubeVideoID] != 2 {
		t.Fatalf("calls=%v", provider.calls)
	}

	res, err = svc.ProcessCourse(ctx, course.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total() != 0 || res.Message == "" {
		t.Fatalf("third run: %+v", res)
	}
}

func TestProcessVideosSkipsAnalyzed(t *testing.T) {
	f := newFixture(t)
	_, videos := f.course(t, 1, nil, nil)
	provider := &fakeProvider{}
	svc := NewAnalysisService(f.courses, f.videos, provider, 0)

	res, err := svc.ProcessVideos(context.Background(), videos)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 2 || len(provider.calls) != 0 {
		t.Fatalf("result=%+v calls=%v", res, provider.calls)
	}
}

func TestSweepPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pendingCourse(t, f, 2)
	pendingCourse(t, f, 1)
	provider := &fakeProvider{}
	svc := NewAnalysisService(f.courses, f.videos, provider, 3)

	if err := svc.SweepPending(ctx); err != nil {
		t.Fatal(err)
	}
	if len(provider.calls) != 3 {
		t.Fatalf("calls=%v", provider.calls)
	}
	ids, err := f.courses.ListWithPendingVideos(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Fatalf("courses still pending: %v", ids)
	}
}

func TestAnalysisUnknownCourse(t *testing.T) {
	f := newFixture(t)
	svc := NewAnalysisService(f.courses, f.videos, &fakeProvider{}, 1)

	_, err := svc.ProcessCourse(context.Background(), 404)
	mustErr(t, err, util.ErrCourseNotFound)
	_, err = svc.Status(context.Background(), 404)
	mustErr(t, err, util.ErrCourseNotFound)
}

type recordedEvents struct {
	mu     sync.Mutex
	byUser map[uint][]Event
}

func (r *recordedEvents) Publish(userID uint, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUser == nil {
		r.byUser = map[uint][]Event{}
	}
	r.byUser[userID] = append(r.byUser[userID], ev)
}

func TestProcessCourseTellsCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "creator")
	course, videos := f.course(t, creator.ID, nil, nil)
	for _, v := range videos {
		if err := f.videos.SetAnalysisStatus(ctx, v.ID, model.AnalysisPending); err != nil {
			t.Fatal(err)
		}
	}

	events := &recordedEvents{}
	svc := NewAnalysisService(f.courses, f.videos, &fakeProvider{}, 2)
	svc.Events = events

	if _, err := svc.ProcessCourse(ctx, course.ID); err != nil {
		t.Fatal(err)
	}
	got := events.byUser[creator.ID]
	if len(got) != 1 || got[0].Type != EventAnalysisFinished {
		t.Fatalf("creator events: %+v", events.byUser)
	}

	// nothing left to do, nothing to announce
	if _, err := svc.ProcessCourse(ctx, course.ID); err != nil {
		t.Fatal(err)
	}
	if len(events.byUser[creator.ID]) != 1 {
		t.Fatalf("empty run should not publish: %+v", events.byUser[creator.ID])
	}
}
