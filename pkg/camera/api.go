package camera

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sentry-vision/management-server/pkg/apiresponses"
)

// APIController provides the REST endpoints for camera management.
type APIController struct {
	log        *zap.SugaredLogger
	service    *Service
	middleware []gin.HandlerFunc
}

func NewAPIController(log *zap.SugaredLogger, service *Service, middleware ...gin.HandlerFunc) *APIController {
	return &APIController{log: log, service: service, middleware: middleware}
}

// BasePath returns the base path for camera routes
func (c *APIController) BasePath() string {
	return "v1/cameras"
}

// Handlers returns middleware to apply to all routes
func (c *APIController) Handlers() []gin.HandlerFunc {
	return c.middleware
}

// Register registers the camera routes
func (c *APIController) Register(rg *gin.RouterGroup) error {
	rg.POST("", c.handleCreate)
	rg.GET("", c.handleList)
	rg.GET("status/:status", c.handleListByStatus)
	rg.GET(":id", c.handleGet)
	rg.PUT(":id", c.handleUpdate)
	rg.PATCH(":id/status", c.handleUpdateStatus)
	rg.DELETE(":id", c.handleDelete)
	return nil
}

func (c *APIController) handleCreate(ctx *gin.Context) {
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apiresponses.RespondBadRequest(ctx, "invalid camera request: "+err.Error())
		return
	}

	cam, err := c.service.Create(req)
	if err != nil {
		if errors.Is(err, ErrNameTaken) {
			apiresponses.RespondConflict(ctx, "camera name already in use")
			return
		}
		apiresponses.RespondInternalError(ctx, "create camera", err, c.log)
		return
	}
	ctx.JSON(http.StatusCreated, cam)
}

func (c *APIController) handleList(ctx *gin.Context) {
	items, err := c.service.List()
	if err != nil {
		apiresponses.RespondInternalError(ctx, "list cameras", err, c.log)
		return
	}
	ctx.JSON(http.StatusOK, items)
}

func (c *APIController) handleListByStatus(ctx *gin.Context) {
	status, err := ParseStatus(ctx.Param("status"))
	if err != nil {
		apiresponses.RespondBadRequest(ctx, err.Error())
		return
	}

	items, err := c.service.ListByStatus(status)
	if err != nil {
		apiresponses.RespondInternalError(ctx, "list cameras by status", err, c.log)
		return
	}
	ctx.JSON(http.StatusOK, items)
}

func (c *APIController) handleGet(ctx *gin.Context) {
	id, ok := cameraID(ctx)
	if !ok {
		return
	}
	cam, err := c.service.Get(id)
	if err != nil {
		c.respondServiceError(ctx, "load camera", id, err)
		return
	}
	ctx.JSON(http.StatusOK, cam)
}

func (c *APIController) handleUpdate(ctx *gin.Context) {
	id, ok := cameraID(ctx)
	if !ok {
		return
	}

	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apiresponses.RespondBadRequest(ctx, "invalid camera request: "+err.Error())
		return
	}

	cam, err := c.service.Update(id, req)
	if err != nil {
		c.respondServiceError(ctx, "update camera", id, err)
		return
	}
	ctx.JSON(http.StatusOK, cam)
}

func (c *APIController) handleUpdateStatus(ctx *gin.Context) {
	id, ok := cameraID(ctx)
	if !ok {
		return
	}

	status, err := ParseStatus(ctx.Query("status"))
	if err != nil {
		apiresponses.RespondBadRequest(ctx, err.Error())
		return
	}

	cam, err := c.service.UpdateStatus(id, status)
	if err != nil {
		c.respondServiceError(ctx, "update camera status", id, err)
		return
	}
	ctx.JSON(http.StatusOK, cam)
}

func (c *APIController) handleDelete(ctx *gin.Context) {
	id, ok := cameraID(ctx)
	if !ok {
		return
	}
	if err := c.service.Delete(id); err != nil {
		c.respondServiceError(ctx, "delete camera", id, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *APIController) respondServiceError(ctx *gin.Context, operation string, id uint, err error) {
	if errors.Is(err, ErrNotFound) {
		apiresponses.RespondNotFound(ctx, "camera", id)
		return
	}
	apiresponses.RespondInternalError(ctx, operation, err, c.log)
}

func cameraID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		apiresponses.RespondBadRequest(ctx, "invalid camera ID")
		return 0, false
	}
	return uint(id), true
}
