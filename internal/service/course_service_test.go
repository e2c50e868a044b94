package service

import (
	"context"
	"credlyse_backend/internal/util"
	"testing"
)

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	course, _ := f.course(t, 99, nil)

	first, err := f.courseSvc.Enroll(ctx, u.ID, course.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.AlreadyEnrolled || first.Message != "Enrolled successfully" {
		t.Fatalf("first: %+v", first)
	}
	second, err := f.courseSvc.Enroll(ctx, u.ID, course.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !second.AlreadyEnrolled || second.EnrollmentID != first.EnrollmentID {
		t.Fatalf("second: %+v", second)
	}

	empty, _ := f.course(t, 99)
	_, err = f.courseSvc.Enroll(ctx, u.ID, empty.ID)
	mustErr(t, err, util.ErrCourseHasNoVideos)

	_, err = f.courseSvc.Enroll(ctx, u.ID, 4242)
	mustErr(t, err, util.ErrCourseNotFound)
}

func TestListEnrollments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	c1, v1 := f.course(t, 99, nil)
	c2, _ := f.course(t, 99, nil, nil)

	for _, id := range []uint{c1.ID, c2.ID} {
		if _, err := f.courseSvc.Enroll(ctx, u.ID, id); err != nil {
			t.Fatal(err)
		}
	}

	list, err := f.courseSvc.ListEnrollments(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("len=%d", len(list))
	}
	var got *EnrollmentSummary
	for i := range list {
		if list[i].CourseID == c1.ID {
			got = &list[i]
		}
	}
	if got == nil {
		t.Fatal("course 1 missing from list")
	}
	if got.CourseTitle != c1.Title || got.ThumbnailURL != util.YoutubeThumbnailURL(v1[0].YoutubeVideoID) {
		t.Fatalf("summary: %+v", got)
	}
}

func TestCourseStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada")
	course, videos := f.course(t, 99, nil, []string{"a"})

	unknown, err := f.courseSvc.Status(ctx, "PL-unknown", u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if unknown.Exists || unknown.CourseID != nil || len(unknown.Videos) != 0 {
		t.Fatalf("unknown: %+v", unknown)
	}

	anon, err := f.courseSvc.Status(ctx, course.YoutubePlaylistID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !anon.Exists || anon.IsEnrolled || len(anon.Videos) != 2 {
		t.Fatalf("anonymous: %+v", anon)
	}
	if anon.Videos[0].Order != 1 || anon.Videos[1].Order != 2 || !anon.Videos[1].HasQuiz {
		t.Fatalf("videos: %+v", anon.Videos)
	}

	if _, err := f.progressSvc.Start(ctx, u.ID, videos[0].ID); err != nil {
		t.Fatal(err)
	}
	st, err := f.courseSvc.Status(ctx, course.YoutubePlaylistID, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsEnrolled || st.EnrollmentID == nil {
		t.Fatalf("enrolled: %+v", st)
	}
}

func TestQuizHidesAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, videos := f.course(t, 99, nil, []string{"secret"})

	none, err := f.courseSvc.Quiz(ctx, videos[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if none.HasQuiz || len(none.Questions) != 0 {
		t.Fatalf("no-quiz video: %+v", none)
	}

	quiz, err := f.courseSvc.Quiz(ctx, videos[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !quiz.HasQuiz || len(quiz.Questions) != 1 || len(quiz.Questions[0].Options) != 3 {
		t.Fatalf("quiz: %+v", quiz)
	}

	_, err = f.courseSvc.Quiz(ctx, 4242)
	mustErr(t, err, util.ErrVideoNotFound)
}
