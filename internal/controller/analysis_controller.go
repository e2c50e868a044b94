package controller

import (
	"credlyse_backend/internal/service"
	"credlyse_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalysisController struct {
	AnalysisService *service.AnalysisService
}

func NewAnalysisController(analysisService *service.AnalysisService) *AnalysisController {
	return &AnalysisController{AnalysisService: analysisService}
}

// @Summary Analyze a course's pending videos
// @Description Generates transcripts and quizzes with bounded concurrency
// @Tags analysis
// @Produce json
// @Security BearerAuth
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/analysis/courses/{id}/process [post]
func (c *AnalysisController) Process(ctx *gin.Context) {
	courseID, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	result, err := c.AnalysisService.ProcessCourse(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Analysis progress for a course
// @Tags analysis
// @Produce json
// @Security BearerAuth
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/analysis/courses/{id}/status [get]
func (c *AnalysisController) Status(ctx *gin.Context) {
	courseID, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	counts, err := c.AnalysisService.Status(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, counts)
}
