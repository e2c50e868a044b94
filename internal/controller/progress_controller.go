package controller

import (
	"credlyse_backend/internal/service"
	"credlyse_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

type HeartbeatRequest struct {
	SecondsWatched *int `json:"seconds_watched" binding:"required"`
}

// QuizSubmission maps the zero-based question index, as a string, to the
// selected option text.
type QuizSubmission struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// videoRequest resolves the caller and the :id path parameter. It writes the
// error response itself when either is missing.
func videoRequest(ctx *gin.Context) (userID, videoID uint, ok bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, 0, false
	}
	videoID, ok = util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "invalid video id")
		return 0, 0, false
	}
	return claims.UserID, videoID, true
}

// @Summary Start watching a video
// @Description Enrolls the user in the video's course on first use
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param id path int true "video id"
// @Success 200 {object} util.Response
// @Router /api/progress/videos/{id}/start [post]
func (c *ProgressController) Start(ctx *gin.Context) {
	userID, videoID, ok := videoRequest(ctx)
	if !ok {
		return
	}

	view, err := c.ProgressService.Start(ctx.Request.Context(), userID, videoID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Report playback position
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "video id"
// @Param body body HeartbeatRequest true "position"
// @Success 200 {object} util.Response
// @Router /api/progress/videos/{id}/heartbeat [post]
func (c *ProgressController) Heartbeat(ctx *gin.Context) {
	userID, videoID, ok := videoRequest(ctx)
	if !ok {
		return
	}
	var req HeartbeatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.ProgressService.Heartbeat(ctx.Request.Context(), userID, videoID, *req.SecondsWatched)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Mark a video as watched
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param id path int true "video id"
// @Success 200 {object} util.Response
// @Router /api/progress/videos/{id}/complete [post]
func (c *ProgressController) Complete(ctx *gin.Context) {
	userID, videoID, ok := videoRequest(ctx)
	if !ok {
		return
	}

	view, err := c.ProgressService.Complete(ctx.Request.Context(), userID, videoID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Submit quiz answers
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "video id"
// @Param body body QuizSubmission true "answers"
// @Success 200 {object} util.Response
// @Router /api/progress/videos/{id}/quiz [post]
func (c *ProgressController) SubmitQuiz(ctx *gin.Context) {
	userID, videoID, ok := videoRequest(ctx)
	if !ok {
		return
	}
	var req QuizSubmission
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ProgressService.SubmitQuiz(ctx.Request.Context(), userID, videoID, req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
