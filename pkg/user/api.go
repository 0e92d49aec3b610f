package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sentry-vision/management-server/pkg/apiresponses"
)

// APIController provides the register and login endpoints.
type APIController struct {
	log     *zap.SugaredLogger
	service *Service
}

func NewAPIController(log *zap.SugaredLogger, service *Service) *APIController {
	return &APIController{log: log, service: service}
}

// BasePath returns the base path for auth routes
func (c *APIController) BasePath() string {
	return "v1/auth"
}

// Handlers returns middleware to apply to all routes
func (c *APIController) Handlers() []gin.HandlerFunc {
	return nil
}

// Register registers the auth routes
func (c *APIController) Register(rg *gin.RouterGroup) error {
	rg.POST("register", c.handleRegister)
	rg.POST("login", c.handleLogin)
	return nil
}

func (c *APIController) handleRegister(ctx *gin.Context) {
	var req AuthRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apiresponses.RespondBadRequest(ctx, "invalid registration request: "+err.Error())
		return
	}

	resp, err := c.service.Register(req)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			apiresponses.RespondConflict(ctx, "username already exists")
			return
		}
		apiresponses.RespondInternalError(ctx, "register user", err, c.log)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func (c *APIController) handleLogin(ctx *gin.Context) {
	var req AuthRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apiresponses.RespondBadRequest(ctx, "invalid login request: "+err.Error())
		return
	}

	resp, err := c.service.Authenticate(req)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) || errors.Is(err, ErrDisabled) {
			apiresponses.RespondUnauthorizedWithMessage(ctx, "invalid username or password")
			return
		}
		apiresponses.RespondInternalError(ctx, "authenticate user", err, c.log)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
