package controller

import (
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/service"
	"credlyse_backend/internal/util"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	CertificateService *service.CertificateService
	VerifyBaseURL      string
}

func NewCertificateController(certificateService *service.CertificateService, verifyBaseURL string) *CertificateController {
	return &CertificateController{
		CertificateService: certificateService,
		VerifyBaseURL:      strings.TrimRight(verifyBaseURL, "/"),
	}
}

type CertificateResponse struct {
	ID          string    `json:"id"`
	UserID      uint      `json:"user_id"`
	CourseID    uint      `json:"course_id"`
	IssuedAt    time.Time `json:"issued_at"`
	ArtifactURL string    `json:"artifact_url"`
	VerifyURL   string    `json:"verify_url,omitempty"`
}

// VerifiedCertificate is the public view; it carries no contact details.
type VerifiedCertificate struct {
	ID          string    `json:"id"`
	Valid       bool      `json:"valid"`
	StudentName string    `json:"student_name"`
	CourseTitle string    `json:"course_title"`
	IssuedAt    time.Time `json:"issued_at"`
	ArtifactURL string    `json:"artifact_url"`
}

func (c *CertificateController) response(cert *model.Certificate) CertificateResponse {
	out := CertificateResponse{
		ID:          cert.ID,
		UserID:      cert.UserID,
		CourseID:    cert.CourseID,
		IssuedAt:    cert.IssuedAt,
		ArtifactURL: cert.ArtifactURL,
	}
	if c.VerifyBaseURL != "" {
		out.VerifyURL = c.VerifyBaseURL + "/" + cert.ID
	}
	return out
}

// @Summary Issue the course certificate
// @Description Returns the existing certificate when one was already issued
// @Tags certificates
// @Produce json
// @Security BearerAuth
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "missing_requirements lists what is left"
// @Router /api/certificates/courses/{id} [post]
func (c *CertificateController) Issue(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	cert, err := c.CertificateService.Issue(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, c.response(cert))
}

// @Summary Certificate eligibility
// @Tags certificates
// @Produce json
// @Security BearerAuth
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/certificates/courses/{id}/eligibility [get]
func (c *CertificateController) Eligibility(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	missing, err := c.CertificateService.Eligibility(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if missing == nil {
		missing = []string{}
	}
	util.Success(ctx, gin.H{
		"eligible":             len(missing) == 0,
		"missing_requirements": missing,
	})
}

// @Summary Verify a certificate
// @Tags certificates
// @Produce json
// @Param id path string true "certificate id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/certificates/verify/{id} [get]
func (c *CertificateController) Verify(ctx *gin.Context) {
	cert, err := c.CertificateService.Verify(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	out := VerifiedCertificate{
		ID:          cert.ID,
		Valid:       true,
		IssuedAt:    cert.IssuedAt,
		ArtifactURL: cert.ArtifactURL,
	}
	if cert.User != nil {
		out.StudentName = cert.User.DisplayName()
	}
	if cert.Course != nil {
		out.CourseTitle = cert.Course.Title
	}
	util.Success(ctx, out)
}
