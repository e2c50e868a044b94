package service

import (
	"context"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/util"
	"testing"
)

func TestStartNeverRegresses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	_, videos := f.course(t, 99, nil)

	for i := 0; i < 2; i++ {
		view, err := f.progressSvc.Start(ctx, u.ID, videos[0].ID)
		if err != nil {
			t.Fatalf("start #%d: %v", i+1, err)
		}
		if view.WatchStatus != model.InProgress {
			t.Fatalf("start #%d: status=%s", i+1, view.WatchStatus)
		}
	}

	if _, err := f.progressSvc.Complete(ctx, u.ID, videos[0].ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	view, err := f.progressSvc.Start(ctx, u.ID, videos[0].ID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if view.WatchStatus != model.Watched {
		t.Fatalf("start after complete moved status back to %s", view.WatchStatus)
	}
}

func TestStartCreatesSingleEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	course, videos := f.course(t, 99, nil, nil)

	for _, v := range videos {
		if _, err := f.progressSvc.Start(ctx, u.ID, v.ID); err != nil {
			t.Fatalf("start: %v", err)
		}
	}
	list, err := f.enrollments.ListByCourse(ctx, course.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("want 1 enrollment, got %d", len(list))
	}
}

func TestHeartbeatRequiresStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	_, videos := f.course(t, 99, nil, nil)

	_, err := f.progressSvc.Heartbeat(ctx, u.ID, videos[0].ID, 30)
	mustErr(t, err, util.ErrNotFound)
	mustErr(t, err, util.ErrEnrollmentNotFound)

	// enrolled through another video, but this one was never started
	if _, err := f.progressSvc.Start(ctx, u.ID, videos[1].ID); err != nil {
		t.Fatal(err)
	}
	_, err = f.progressSvc.Heartbeat(ctx, u.ID, videos[0].ID, 30)
	mustErr(t, err, util.ErrProgressNotFound)

	_, err = f.progressSvc.Complete(ctx, u.ID, videos[0].ID)
	mustErr(t, err, util.ErrNotFound)
}

func TestHeartbeatStoresLatestPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	_, videos := f.course(t, 99, nil)
	if _, err := f.progressSvc.Start(ctx, u.ID, videos[0].ID); err != nil {
		t.Fatal(err)
	}

	for _, secs := range []int{60, 120, 45} {
		view, err := f.progressSvc.Heartbeat(ctx, u.ID, videos[0].ID, secs)
		if err != nil {
			t.Fatalf("heartbeat %d: %v", secs, err)
		}
		if view.SecondsWatched != secs {
			t.Fatalf("want %d seconds, got %d", secs, view.SecondsWatched)
		}
	}

	_, err := f.progressSvc.Heartbeat(ctx, u.ID, videos[0].ID, -1)
	mustErr(t, err, util.ErrBadRequest)
}

func TestCompleteVideoWithoutQuizCountsAsPassed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	_, videos := f.course(t, 99, nil)
	if _, err := f.progressSvc.Start(ctx, u.ID, videos[0].ID); err != nil {
		t.Fatal(err)
	}

	view, err := f.progressSvc.Complete(ctx, u.ID, videos[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.WatchStatus != model.Watched || !view.IsQuizPassed || view.QuizScore == nil || *view.QuizScore != 100 {
		t.Fatalf("unexpected progress %+v", view)
	}
}

func TestSubmitQuizNormalizesAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	_, videos := f.course(t, 99, []string{"a", "B "})
	if _, err := f.progressSvc.Start(ctx, u.ID, videos[0].ID); err != nil {
		t.Fatal(err)
	}

	res, err := f.progressSvc.SubmitQuiz(ctx, u.ID, videos[0].ID, map[string]string{"0": "A", "1": "B"})
	if err != nil {
		t.Fatal(err)
	}
	if res.CorrectCount != 2 || res.Score != 100 || !res.Passed {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Message != util.QuizPassedMessage {
		t.Fatalf("message=%q", res.Message)
	}
}

func TestSubmitQuizErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	_, videos := f.course(t, 99, nil, []string{"x"})

	_, err := f.progressSvc.SubmitQuiz(ctx, u.ID, videos[1].ID, map[string]string{"0": "x"})
	mustErr(t, err, util.ErrEnrollmentNotFound)

	_, err = f.progressSvc.SubmitQuiz(ctx, u.ID, videos[0].ID, map[string]string{"0": "x"})
	mustErr(t, err, util.ErrNoQuiz)
	mustErr(t, err, util.ErrBadRequest)

	_, err = f.progressSvc.SubmitQuiz(ctx, u.ID, 4242, nil)
	mustErr(t, err, util.ErrVideoNotFound)
}

func TestSubmitQuizWithoutStartCreatesProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	_, videos := f.course(t, 99, nil, []string{"x"})
	if _, err := f.progressSvc.Start(ctx, u.ID, videos[0].ID); err != nil {
		t.Fatal(err)
	}

	res, err := f.progressSvc.SubmitQuiz(ctx, u.ID, videos[1].ID, map[string]string{"0": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Passed {
		t.Fatalf("want pass, got %+v", res)
	}
	e := f.enrollment(t, u.ID, videos[1].CourseID)
	p, err := f.progress.Find(ctx, e.ID, videos[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.WatchStatus != model.InProgress || !p.IsQuizPassed {
		t.Fatalf("unexpected progress %+v", p)
	}
}

func TestCompletionNeedsEveryQuizPassed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	_, videos := f.course(t, 99, []string{"a"}, []string{"b"})

	f.watchAndPass(t, u.ID, videos[0])
	if e := f.enrollment(t, u.ID, videos[0].CourseID); e.IsCompleted {
		t.Fatal("completed with one of two quizzes passed")
	}

	f.watchAndPass(t, u.ID, videos[1])
	if e := f.enrollment(t, u.ID, videos[0].CourseID); !e.IsCompleted {
		t.Fatal("not completed after both quizzes passed")
	}

	// a later failing attempt does not clear completion
	res, err := f.progressSvc.SubmitQuiz(ctx, u.ID, videos[1].ID, map[string]string{"0": "nope"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Passed || !res.CourseCompleted {
		t.Fatalf("unexpected result %+v", res)
	}
	if e := f.enrollment(t, u.ID, videos[0].CourseID); !e.IsCompleted {
		t.Fatal("completion was cleared")
	}
}

func TestLearnerJourney(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	_, videos := f.course(t, 99, nil, []string{"correct", "right"})
	v1, v2 := videos[0], videos[1]

	if _, err := f.progressSvc.Start(ctx, u.ID, v1.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.progressSvc.Heartbeat(ctx, u.ID, v1.ID, 60); err != nil {
		t.Fatal(err)
	}
	view, err := f.progressSvc.Complete(ctx, u.ID, v1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !view.IsQuizPassed || view.SecondsWatched != 60 {
		t.Fatalf("video 1: %+v", view)
	}

	if _, err := f.progressSvc.Start(ctx, u.ID, v2.ID); err != nil {
		t.Fatal(err)
	}
	res, err := f.progressSvc.SubmitQuiz(ctx, u.ID, v2.ID, map[string]string{"0": "correct", "1": "wrong"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 50 || res.Passed || res.CourseCompleted {
		t.Fatalf("first attempt: %+v", res)
	}
	if e := f.enrollment(t, u.ID, v1.CourseID); e.IsCompleted {
		t.Fatal("enrollment completed after a failed quiz")
	}

	res, err = f.progressSvc.SubmitQuiz(ctx, u.ID, v2.ID, map[string]string{"0": "correct", "1": "right"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 100 || !res.Passed || !res.CourseCompleted {
		t.Fatalf("second attempt: %+v", res)
	}
	if e := f.enrollment(t, u.ID, v1.CourseID); !e.IsCompleted {
		t.Fatal("enrollment not completed after passing the only quiz")
	}
}
