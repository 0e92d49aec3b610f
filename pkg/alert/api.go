package alert

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sentry-vision/management-server/pkg/apiresponses"
	"github.com/sentry-vision/management-server/pkg/gate"
)

// APIController provides the REST endpoints for alert ingestion and
// management.
type APIController struct {
	log        *zap.SugaredLogger
	service    *Service
	middleware []gin.HandlerFunc
}

func NewAPIController(log *zap.SugaredLogger, service *Service, middleware ...gin.HandlerFunc) *APIController {
	return &APIController{log: log, service: service, middleware: middleware}
}

// BasePath returns the base path for alert routes
func (c *APIController) BasePath() string {
	return "v1/alerts"
}

// Handlers returns middleware to apply to all routes
func (c *APIController) Handlers() []gin.HandlerFunc {
	return c.middleware
}

// Register registers the alert routes
func (c *APIController) Register(rg *gin.RouterGroup) error {
	rg.POST("", c.handleCreate)
	rg.GET("", c.handleList)
	rg.GET("stats", c.handleStats)
	rg.GET("unacknowledged", c.handleListUnacknowledged)
	rg.GET("camera/:cameraId", c.handleListByCamera)
	rg.GET(":id", c.handleGet)
	rg.POST(":id/acknowledge", c.handleAcknowledge)
	rg.DELETE(":id", c.handleDelete)
	return nil
}

func (c *APIController) handleCreate(ctx *gin.Context) {
	var payload Payload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		apiresponses.RespondBadRequest(ctx, "invalid alert payload: "+err.Error())
		return
	}

	c.log.Infow("received alert",
		"camera_id", payload.CameraID,
		"alert_type", payload.AlertType)

	a, err := c.service.Create(payload)
	if err != nil {
		apiresponses.RespondInternalError(ctx, "create alert", err, c.log)
		return
	}
	ctx.JSON(http.StatusCreated, a)
}

func (c *APIController) handleList(ctx *gin.Context) {
	page, size := pagination(ctx)
	result, err := c.service.List(page, size)
	if err != nil {
		apiresponses.RespondInternalError(ctx, "list alerts", err, c.log)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (c *APIController) handleListUnacknowledged(ctx *gin.Context) {
	page, size := pagination(ctx)
	result, err := c.service.ListUnacknowledged(page, size)
	if err != nil {
		apiresponses.RespondInternalError(ctx, "list unacknowledged alerts", err, c.log)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (c *APIController) handleGet(ctx *gin.Context) {
	id, ok := alertID(ctx)
	if !ok {
		return
	}
	a, err := c.service.Get(id)
	if err != nil {
		c.respondServiceError(ctx, "load alert", id, err)
		return
	}
	ctx.JSON(http.StatusOK, a)
}

func (c *APIController) handleListByCamera(ctx *gin.Context) {
	cameraID := ctx.Param("cameraId")
	items, err := c.service.ByCamera(cameraID)
	if err != nil {
		apiresponses.RespondInternalError(ctx, "list alerts by camera", err, c.log)
		return
	}
	ctx.JSON(http.StatusOK, items)
}

func (c *APIController) handleAcknowledge(ctx *gin.Context) {
	id, ok := alertID(ctx)
	if !ok {
		return
	}

	username := ctx.GetString(gate.ContextPrincipal)
	if username == "" {
		apiresponses.RespondUnauthorized(ctx)
		return
	}

	a, err := c.service.Acknowledge(id, username)
	if err != nil {
		c.respondServiceError(ctx, "acknowledge alert", id, err)
		return
	}
	ctx.JSON(http.StatusOK, a)
}

func (c *APIController) handleDelete(ctx *gin.Context) {
	id, ok := alertID(ctx)
	if !ok {
		return
	}
	if err := c.service.Delete(id); err != nil {
		c.respondServiceError(ctx, "delete alert", id, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *APIController) handleStats(ctx *gin.Context) {
	stats, err := c.service.GetStats()
	if err != nil {
		apiresponses.RespondInternalError(ctx, "compute alert stats", err, c.log)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

func (c *APIController) respondServiceError(ctx *gin.Context, operation string, id uint, err error) {
	if errors.Is(err, ErrNotFound) {
		apiresponses.RespondNotFound(ctx, "alert", id)
		return
	}
	apiresponses.RespondInternalError(ctx, operation, err, c.log)
}

func alertID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		apiresponses.RespondBadRequest(ctx, "invalid alert ID")
		return 0, false
	}
	return uint(id), true
}

func pagination(ctx *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "0"))
	size, _ = strconv.Atoi(ctx.DefaultQuery("size", "20"))
	return page, size
}
