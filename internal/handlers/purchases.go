package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"dashboard_sync/internal/models"
	"dashboard_sync/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errSinceInvalid  = "invalid 'since' time; use RFC3339 or YYYY-MM-DD"
	errStatusInvalid = "invalid 'status'; use PENDING, FULFILLED or FAILED"
	errSubmit        = "failed to place purchase"
	errListPurchases = "failed to list purchases"
	errListLocations = "failed to list locations"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// SubmitPurchaseRequest is the payload of POST /api/v1/instances/{id}/purchases.
type SubmitPurchaseRequest struct {
	// In-game name of the buyer; their last logged position anchors the placement.
	ActorName string `json:"actor_name" binding:"required" example:"Alice"`
	// Class name of the object to spawn.
	ItemClass string `json:"item_class" binding:"required" example:"AKM"`
	// Deferred purchases are placed at the next restart-window flush.
	Deferred bool `json:"deferred" example:"false"`
}

// @Summary      Submit a purchase
// @Description  Immediate purchases are placed synchronously; 422 means the buyer has no known position.
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        id    path      int                    true  "Instance id"
// @Param        body  body      SubmitPurchaseRequest  true  "Purchase"
// @Success      200   {object}  models.PurchaseRecord  "placed"
// @Success      202   {object}  models.PurchaseRecord  "deferred"
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]interface{}
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/v1/instances/{id}/purchases [post]
// @Security     BearerAuth
func (h *Handler) submitPurchase(c *gin.Context) {
	id, ok := h.instanceID(c)
	if !ok {
		return
	}
	var req SubmitPurchaseRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	rec, err := h.services.Submit(c.Request.Context(), id, service.PurchaseRequest{
		ActorName: req.ActorName,
		ItemClass: req.ItemClass,
		Deferred:  req.Deferred,
	})
	if err != nil {
		if rec.ID == "" {
			h.failWith(c, err, errSubmit, "purchase_submit_failed", "instance", id)
			return
		}
		// the purchase exists; report its state with the failure
		code := statusFor(err)
		if code >= http.StatusInternalServerError && h.log != nil {
			h.log.Errorw("purchase_place_failed", "err", err, "instance", id, "purchase", rec.ID)
		}
		c.JSON(code, gin.H{"error": err.Error(), "purchase": rec})
		return
	}
	if rec.Status == models.PurchasePending {
		c.JSON(http.StatusAccepted, rec)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// @Summary      List purchases
// @Tags         purchases
// @Produce      json
// @Param        id      path   int     true   "Instance id"
// @Param        status  query  string  false  "Status filter"  Enums(PENDING,FULFILLED,FAILED)
// @Param        since   query  string  false  "Only purchases created at or after (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2024-03-01)
// @Success      200     {object}  map[string]interface{}  "count, purchases"
// @Failure      400     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Router       /api/v1/instances/{id}/purchases [get]
// @Security     BearerAuth
func (h *Handler) listPurchases(c *gin.Context) {
	id, ok := h.instanceID(c)
	if !ok {
		return
	}
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	switch status {
	case "", models.PurchasePending, models.PurchaseFulfilled, models.PurchaseFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": errStatusInvalid})
		return
	}
	var since time.Time
	if qs := c.Query("since"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errSinceInvalid})
			return
		}
		since = t
	}

	all, err := h.services.ListPurchases(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err, errListPurchases, "purchases_list_failed", "instance", id)
		return
	}
	out := make([]models.PurchaseRecord, 0, len(all))
	for _, p := range all {
		if status != "" && p.Status != status {
			continue
		}
		if !since.IsZero() && p.CreatedAt.Before(since) {
			continue
		}
		out = append(out, p)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "purchases": out})
}

// @Summary      List last known player positions
// @Tags         purchases
// @Produce      json
// @Param        id   path      int  true  "Instance id"
// @Success      200  {object}  map[string]interface{}  "count, locations"
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/instances/{id}/locations [get]
// @Security     BearerAuth
func (h *Handler) listLocations(c *gin.Context) {
	id, ok := h.instanceID(c)
	if !ok {
		return
	}
	locs, err := h.services.ListLocations(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err, errListLocations, "locations_list_failed", "instance", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(locs), "locations": locs})
}

// parseQueryTime accepts RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD', in UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format %q", s)
}
