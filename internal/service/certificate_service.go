package service

import (
	"context"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/repository"
	"credlyse_backend/internal/util"
	"credlyse_backend/pkg/logger"
	"credlyse_backend/pkg/monitoring"
	"credlyse_backend/pkg/tracing"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CertificateService struct {
	DB              *gorm.DB
	CertificateRepo *repository.CertificateRepository
	EnrollmentRepo  *repository.EnrollmentRepository
	ProgressRepo    *repository.ProgressRepository
	CourseRepo      *repository.CourseRepository
	VideoRepo       *repository.VideoRepository
	UserRepo        *repository.UserRepository
	Renderer        CertificateRenderer
	Notifier        Notifier
	Now             func() time.Time
}

func NewCertificateService(
	db *gorm.DB,
	certificateRepo *repository.CertificateRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progressRepo *repository.ProgressRepository,
	courseRepo *repository.CourseRepository,
	videoRepo *repository.VideoRepository,
	userRepo *repository.UserRepository,
	renderer CertificateRenderer,
	notifier Notifier,
) *CertificateService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &CertificateService{
		DB:              db,
		CertificateRepo: certificateRepo,
		EnrollmentRepo:  enrollmentRepo,
		ProgressRepo:    progressRepo,
		CourseRepo:      courseRepo,
		VideoRepo:       videoRepo,
		UserRepo:        userRepo,
		Renderer:        renderer,
		Notifier:        notifier,
		Now:             time.Now,
	}
}

// Eligibility returns the unmet requirements for (user, course); nil means
// the user can be certified.
func (s *CertificateService) Eligibility(ctx context.Context, userID, courseID uint) ([]string, error) {
	enrollment, err := s.EnrollmentRepo.Find(ctx, userID, courseID)
	if repository.IsNotFound(err) {
		return []string{"User is not enrolled in this course"}, nil
	}
	if err != nil {
		return nil, err
	}

	videos, err := s.VideoRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	progress, err := s.ProgressRepo.ListByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, err
	}
	return CertificateEligibility(videos, progress), nil
}

// Issue returns the user's certificate for the course, creating it when the
// user is eligible. An existing certificate is returned as is, without
// re-checking eligibility.
func (s *CertificateService) Issue(ctx context.Context, userID, courseID uint) (cert *model.Certificate, err error) {
	ctx, span := tracing.StartSpan(ctx, "certificate.issue",
		attribute.Int64("user_id", int64(userID)),
		attribute.Int64("course_id", int64(courseID)))
	defer func() { tracing.EndSpan(span, err) }()

	existing, err := s.CertificateRepo.FindByUserCourse(ctx, userID, courseID)
	if err == nil {
		return existing, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if repository.IsNotFound(err) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	user, err := s.UserRepo.FindByID(ctx, userID)
	if repository.IsNotFound(err) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	missing, err := s.Eligibility(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &util.EligibilityError{Missing: missing}
	}

	var (
		created     bool
		artifactURL string
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := &model.Certificate{
			UUIDBase: model.UUIDBase{ID: model.GenerateUUID()},
			UserID:   userID,
			CourseID: courseID,
			IssuedAt: s.Now().UTC(),
		}
		stored, inserted, err := s.CertificateRepo.WithTx(tx).Create(ctx, candidate)
		if err != nil {
			return err
		}
		cert = stored
		if !inserted {
			// a concurrent request issued it first
			return nil
		}
		created = true

		artifactURL, err = s.Renderer.Render(ctx, CertificateArtwork{
			CertificateID: cert.ID,
			UserName:      user.DisplayName(),
			CourseTitle:   course.Title,
			IssuedAt:      cert.IssuedAt,
		})
		if err != nil {
			return fmt.Errorf("render certificate: %w", err)
		}
		cert.ArtifactURL = artifactURL

		if err := s.CertificateRepo.WithTx(tx).SetArtifactURL(ctx, cert.ID, artifactURL); err != nil {
			return err
		}
		enrollment, err := s.EnrollmentRepo.WithTx(tx).Find(ctx, userID, courseID)
		if err != nil {
			return err
		}
		return s.EnrollmentRepo.WithTx(tx).MarkCertified(ctx, enrollment.ID, artifactURL)
	})
	if err != nil {
		if artifactURL != "" {
			if derr := s.Renderer.Discard(context.WithoutCancel(ctx), artifactURL); derr != nil {
				logger.Log.Warn("Failed to discard certificate artifact",
					zap.String("url", artifactURL), zap.Error(derr))
			}
		}
		return nil, fmt.Errorf("issue certificate for user %d course %d: %w", userID, courseID, err)
	}

	if created {
		monitoring.CertificatesIssued.Inc()
		logger.Log.Info("Certificate issued",
			zap.String("certificate_id", cert.ID),
			zap.Uint("user_id", userID),
			zap.Uint("course_id", courseID))
		if err := s.Notifier.CertificateIssued(ctx, user, course, cert); err != nil {
			logger.Log.Warn("Certificate email not sent",
				zap.String("certificate_id", cert.ID), zap.Error(err))
		}
	}
	return cert, nil
}

// Verify is the public lookup by certificate id.
func (s *CertificateService) Verify(ctx context.Context, id string) (*model.Certificate, error) {
	cert, err := s.CertificateRepo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, util.ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return cert, nil
}
