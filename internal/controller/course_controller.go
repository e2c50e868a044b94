package controller

import (
	"credlyse_backend/internal/service"
	"credlyse_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// @Summary Enroll in a course
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/enroll [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
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

	result, err := c.CourseService.Enroll(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary List my enrollments
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/courses/enrolled [get]
func (c *CourseController) ListEnrollments(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	list, err := c.CourseService.ListEnrollments(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// PlaylistStatus serves the browser extension. Anonymous callers get the
// course outline without enrollment details.
// @Summary Course status for a YouTube playlist
// @Tags extension
// @Produce json
// @Param playlist_id path string true "YouTube playlist id"
// @Success 200 {object} util.Response
// @Router /api/extension/playlists/{playlist_id}/status [get]
func (c *CourseController) PlaylistStatus(ctx *gin.Context) {
	var userID uint
	if user := util.GetUserFromContext(ctx); user != nil {
		userID = user.UserID
	}

	status, err := c.CourseService.Status(ctx.Request.Context(), ctx.Param("playlist_id"), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// @Summary Quiz questions for a video, without answers
// @Tags extension
// @Produce json
// @Param id path int true "video id"
// @Success 200 {object} util.Response
// @Router /api/extension/videos/{id}/quiz [get]
func (c *CourseController) VideoQuiz(ctx *gin.Context) {
	videoID, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "invalid video id")
		return
	}

	quiz, err := c.CourseService.Quiz(ctx.Request.Context(), videoID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}
