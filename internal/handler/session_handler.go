package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/itinerary-backend-go/internal/reoptimization"
	"github.com/jengzang/itinerary-backend-go/internal/service"
	"github.com/jengzang/itinerary-backend-go/pkg/response"
)

// SessionHandler handles HTTP requests for re-optimization sessions
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Start handles POST /api/v1/sessions
func (h *SessionHandler) Start(c *gin.Context) {
	var in service.StartSessionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid session request", err)
		return
	}

	summary, err := h.service.Start(c.Request.Context(), in)
	if err != nil {
		response.FromError(c, "Failed to start session", err)
		return
	}

	response.Created(c, summary)
}

// Summary handles GET /api/v1/sessions/:id
func (h *SessionHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Param("id"))
	if err != nil {
		response.FromError(c, "Failed to get session", err)
		return
	}

	response.Success(c, summary)
}

// Advance handles POST /api/v1/sessions/:id/advance
func (h *SessionHandler) Advance(c *gin.Context) {
	var req reoptimization.AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid advance request", err)
		return
	}

	res, err := h.service.Advance(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.FromError(c, "Failed to advance session", err)
		return
	}

	response.Success(c, res)
}

// Conditions handles POST /api/v1/sessions/:id/conditions
func (h *SessionHandler) Conditions(c *gin.Context) {
	var readings reoptimization.Readings
	if err := c.ShouldBindJSON(&readings); err != nil {
		response.BadRequest(c, "Invalid readings", err)
		return
	}

	res, err := h.service.CheckConditions(c.Request.Context(), c.Param("id"), readings)
	if err != nil {
		response.FromError(c, "Failed to check conditions", err)
		return
	}

	response.Success(c, res)
}

// Event handles POST /api/v1/sessions/:id/events
func (h *SessionHandler) Event(c *gin.Context) {
	var in service.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid event", err)
		return
	}

	res, err := h.service.Event(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.FromError(c, "Failed to apply event", err)
		return
	}

	response.Success(c, res)
}

// Resolve handles POST /api/v1/sessions/:id/resolve. A replacement that the
// traveler approved but that fails feasibility is reported as 422 with the
// rejection details.
func (h *SessionHandler) Resolve(c *gin.Context) {
	var in service.ResolveInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid decision", err)
		return
	}

	res, err := h.service.Resolve(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.FromError(c, "Failed to resolve decision", err)
		return
	}

	if r := res.Advisories.Replace; r != nil && !r.Accepted {
		response.ErrorWithData(c, http.StatusUnprocessableEntity, "rejected: "+r.RejectionReason, res)
		return
	}

	response.Success(c, res)
}

// Memory handles GET /api/v1/sessions/:id/memory
func (h *SessionHandler) Memory(c *gin.Context) {
	data, err := h.service.Memory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "Failed to export memory", err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// End handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) End(c *gin.Context) {
	closed, err := h.service.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "Failed to end session", err)
		return
	}

	response.Success(c, closed)
}
