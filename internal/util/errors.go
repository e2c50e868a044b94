package util

import (
	"errors"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrBadRequest         = errors.New("bad request")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrUpstream           = errors.New("upstream failure")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
)

var (
	ErrUserNotFound        = notFound("user not found")
	ErrCourseNotFound      = notFound("course not found")
	ErrVideoNotFound       = notFound("video not found")
	ErrEnrollmentNotFound  = notFound("not enrolled in this course")
	ErrProgressNotFound    = notFound("no progress found, call start first")
	ErrCertificateNotFound = notFound("certificate not found")

	ErrNoQuiz             = badRequest("this video has no quiz")
	ErrQuizHasNoQuestions = badRequest("no questions in quiz")
	ErrCourseHasNoVideos  = badRequest("course has no videos")
	ErrUnknownCache       = badRequest("unknown cache")

	ErrNotCourseOwner     = &kindError{msg: "you can only view analytics for your own courses", kind: ErrPermissionDenied}
	ErrEmailRegistered    = &kindError{msg: "email already registered", kind: ErrConflict}
	ErrInvalidCredentials = &kindError{msg: "invalid credentials", kind: ErrUnauthorized}
)

// kindError is a named error that also matches its category via errors.Is.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func notFound(msg string) error   { return &kindError{msg: msg, kind: ErrNotFound} }
func badRequest(msg string) error { return &kindError{msg: msg, kind: ErrBadRequest} }

// EligibilityError lists every requirement still unmet for a certificate.
type EligibilityError struct {
	Missing []string
}

func (e *EligibilityError) Error() string {
	return "not eligible for certificate: " + strings.Join(e.Missing, "; ")
}

func (e *EligibilityError) Unwrap() error { return ErrPreconditionFailed }

// PublicMessage is the client-facing text for err: the named error's own
// message when there is one, without the wrapping context.
func PublicMessage(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	return err.Error()
}
