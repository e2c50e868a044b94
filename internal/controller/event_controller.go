package controller

import (
	"credlyse_backend/internal/service"
	"credlyse_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EventController struct {
	Hub *service.EventHub
}

func NewEventController(hub *service.EventHub) *EventController {
	return &EventController{Hub: hub}
}

// @Summary Live event stream
// @Description Websocket carrying ANALYSIS_FINISHED and CERTIFICATE_ISSUED events for the signed-in user. Browsers pass the token as ?token=.
// @Tags events
// @Security BearerAuth
// @Router /api/events/ws [get]
func (c *EventController) Connect(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	c.Hub.ServeWs(ctx.Writer, ctx.Request, claims.UserID)
}
