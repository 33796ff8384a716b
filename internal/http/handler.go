package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gate-access-service/internal/capture"
	"gate-access-service/internal/config"
	"gate-access-service/internal/domain/access"
	"gate-access-service/internal/service"
)

type AccessOperations interface {
	FindVehicle(ctx context.Context, plateQuery string) (*access.Vehicle, error)
	RegisterVehicle(ctx context.Context, plate string, owner, sanction *string) (*access.Vehicle, error)
	ListControls(ctx context.Context, plateQuery, date *string, limit, offset int) ([]access.Control, error)
}

type DetectionSubmitter interface {
	Submit(ctx context.Context, raw, source string) (*access.Decision, error)
}

type StatusSource interface {
	Current(now time.Time) (capture.Status, bool)
}

type Handler struct {
	ops       AccessOperations
	submitter DetectionSubmitter
	status    StatusSource
	config    *config.Config
	log       zerolog.Logger
}

func NewHandler(
	ops AccessOperations,
	submitter DetectionSubmitter,
	status StatusSource,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		ops:       ops,
		submitter: submitter,
		status:    status,
		config:    cfg,
		log:       log.With().Str("component", "http").Logger(),
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.GET("/health", h.health)
		public.GET("/status", h.currentStatus)
		public.GET("/vehicles", h.findVehicle)
		public.GET("/controls", h.listControls)
	}

	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/detections", h.createDetection)
		protected.POST("/vehicles", h.registerVehicle)
	}
}

func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.config != nil {
		resp["camera_model"] = h.config.Camera.Model
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) currentStatus(c *gin.Context) {
	status, ok := h.status.Current(time.Now())
	if !ok {
		c.JSON(http.StatusOK, successResponse(nil))
		return
	}
	c.JSON(http.StatusOK, successResponse(status))
}

func (h *Handler) findVehicle(c *gin.Context) {
	plateQuery := strings.TrimSpace(c.Query("plate"))
	if plateQuery == "" {
		c.JSON(http.StatusBadRequest, errorResponse("plate parameter is required"))
		return
	}

	vehicle, err := h.ops.FindVehicle(c.Request.Context(), plateQuery)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(vehicle))
}

func (h *Handler) listControls(c *gin.Context) {
	var plateQuery *string
	if plate := strings.TrimSpace(c.Query("plate")); plate != "" {
		plateQuery = &plate
	}

	var date *string
	if d := strings.TrimSpace(c.Query("date")); d != "" {
		date = &d
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := parseInt(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := parseInt(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	controls, err := h.ops.ListControls(c.Request.Context(), plateQuery, date, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(controls))
}

type vehicleRequest struct {
	Plate    string  `json:"plate" binding:"required"`
	Owner    *string `json:"owner"`
	Sanction *string `json:"sanction"`
}

func (h *Handler) registerVehicle(c *gin.Context) {
	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	vehicle, err := h.ops.RegisterVehicle(c.Request.Context(), req.Plate, req.Owner, req.Sanction)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(vehicle))
}

type detectionRequest struct {
	Plate  string `json:"plate" binding:"required"`
	Source string `json:"source"`
}

func (h *Handler) createDetection(c *gin.Context) {
	var req detectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	decision, err := h.submitter.Submit(c.Request.Context(), req.Plate, req.Source)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(decision))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, capture.ErrNoCandidate):
		c.JSON(http.StatusUnprocessableEntity, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, capture.ErrStopped), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, errorResponse("capture loop unavailable"))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
