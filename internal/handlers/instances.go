package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"dashboard_sync/internal/models"
	"dashboard_sync/internal/remote"
	"dashboard_sync/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errInvalidID       = "invalid instance id"
	errInvalidBodyPref = "invalid body: "
	errListInstances   = "failed to list instances"
	errRegisterInst    = "failed to register instance"
	errLoadInstance    = "failed to load instance"
	errRegisterSpawner = "failed to register spawner"
	errCollect         = "failed to collect spawner"
)

// logAndJSONError logs err under logKey and answers with userMsg.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInstanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrLocationUnknown), errors.Is(err, service.ErrResourceParse):
		return http.StatusUnprocessableEntity
	case remote.IsTransient(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// failWith answers a service error. Client-side errors carry their message,
// everything else is logged and answered with fallback.
func (h *Handler) failWith(c *gin.Context, err error, fallback, logKey string, kv ...interface{}) {
	code := statusFor(err)
	if code < http.StatusInternalServerError {
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	h.logAndJSONError(c, code, fallback, logKey, err, kv...)
}

// instanceID parses the :id path parameter, answering 400 when invalid.
func (h *Handler) instanceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidID})
		return 0, false
	}
	return id, true
}

// RegisterInstanceRequest is the payload of POST /api/v1/instances.
type RegisterInstanceRequest struct {
	Name               string          `json:"name" binding:"required" example:"chernarus-1"`
	ServiceID          string          `json:"service_id" binding:"required" example:"1234567"`
	APIToken           string          `json:"api_token" binding:"required"`
	MapName            string          `json:"map_name" example:"chernarusplus"`
	RestartHours       []int           `json:"restart_hours" example:"3,9,15,21"`
	Platform           string          `json:"platform" example:"pc"`
	LogDir             string          `json:"log_dir" binding:"required" example:"/games/ni123_1/noftp/dayzps/config"`
	SpawnerPath        string          `json:"spawner_path" binding:"required" example:"/games/ni123_1/noftp/dayzps/mpmissions/dayzOffline.chernarusplus/custom/shop.json"`
	GameplayConfigPath string          `json:"gameplay_config_path" example:"/games/ni123_1/noftp/dayzps/mpmissions/dayzOffline.chernarusplus/cfggameplay.json"`
	Channels           models.Channels `json:"channels"`
}

func (r RegisterInstanceRequest) instance() models.ManagedInstance {
	return models.ManagedInstance{
		Name:               r.Name,
		ServiceID:          r.ServiceID,
		APIToken:           r.APIToken,
		MapName:            r.MapName,
		RestartHours:       r.RestartHours,
		Platform:           r.Platform,
		LogDir:             r.LogDir,
		SpawnerPath:        r.SpawnerPath,
		GameplayConfigPath: r.GameplayConfigPath,
		Channels:           r.Channels,
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      List managed instances
// @Tags         instances
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, instances"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/instances [get]
// @Security     BearerAuth
func (h *Handler) listInstances(c *gin.Context) {
	insts, err := h.services.Instances.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListInstances, "instances_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(insts), "instances": insts})
}

// @Summary      Register a managed instance
// @Tags         instances
// @Accept       json
// @Produce      json
// @Param        body  body      RegisterInstanceRequest  true  "Instance"
// @Success      201   {object}  models.ManagedInstance
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/instances [post]
// @Security     BearerAuth
func (h *Handler) registerInstance(c *gin.Context) {
	var req RegisterInstanceRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	inst, err := h.services.Instances.Register(c.Request.Context(), req.instance())
	if err != nil {
		h.failWith(c, err, errRegisterInst, "instance_register_failed", "name", req.Name, "operator", operatorID(c))
		return
	}
	c.JSON(http.StatusCreated, inst)
}

// @Summary      Get a managed instance
// @Tags         instances
// @Produce      json
// @Param        id   path      int  true  "Instance id"
// @Success      200  {object}  models.ManagedInstance
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/instances/{id} [get]
// @Security     BearerAuth
func (h *Handler) getInstance(c *gin.Context) {
	id, ok := h.instanceID(c)
	if !ok {
		return
	}
	inst, err := h.services.Instances.Get(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err, errLoadInstance, "instance_get_failed", "instance", id)
		return
	}
	c.JSON(http.StatusOK, inst)
}

// @Summary      Register the spawner file in the gameplay config
// @Description  Idempotent: the path is appended to WorldsData.objectSpawnersArr only when absent.
// @Tags         maintenance
// @Produce      json
// @Param        id   path      int  true  "Instance id"
// @Success      200  {object}  service.RegistrationResult
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/instances/{id}/spawner/register [post]
// @Security     BearerAuth
func (h *Handler) registerSpawner(c *gin.Context) {
	id, ok := h.instanceID(c)
	if !ok {
		return
	}
	res, err := h.services.RegisterSpawner(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err, errRegisterSpawner, "spawner_register_failed", "instance", id)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Prune the spawner now
// @Description  Removes items created at or before the most recent scheduled restart, outside the usual GC window.
// @Tags         maintenance
// @Produce      json
// @Param        id   path      int  true  "Instance id"
// @Success      200  {object}  service.GCResult
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/instances/{id}/gc [post]
// @Security     BearerAuth
func (h *Handler) collectNow(c *gin.Context) {
	id, ok := h.instanceID(c)
	if !ok {
		return
	}
	res, err := h.services.CollectNow(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err, errCollect, "gc_manual_failed", "instance", id)
		return
	}
	c.JSON(http.StatusOK, res)
}
