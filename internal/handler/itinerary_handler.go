package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/itinerary-backend-go/internal/service"
	"github.com/jengzang/itinerary-backend-go/pkg/response"
)

// ItineraryHandler handles HTTP requests for itineraries
type ItineraryHandler struct {
	service *service.ItineraryService
}

// NewItineraryHandler creates a new itinerary handler
func NewItineraryHandler(service *service.ItineraryService) *ItineraryHandler {
	return &ItineraryHandler{service: service}
}

// Generate handles POST /api/v1/itineraries
func (h *ItineraryHandler) Generate(c *gin.Context) {
	var in service.GenerateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid itinerary request", err)
		return
	}

	it, err := h.service.Generate(c.Request.Context(), in)
	if err != nil {
		response.FromError(c, "Failed to generate itinerary", err)
		return
	}

	response.Created(c, it)
}

// GetByID handles GET /api/v1/itineraries/:id
func (h *ItineraryHandler) GetByID(c *gin.Context) {
	stored, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "Failed to get itinerary", err)
		return
	}

	response.Success(c, stored)
}

// List handles GET /api/v1/itineraries?city=&limit=
func (h *ItineraryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	list, err := h.service.List(c.Request.Context(), c.Query("city"), limit)
	if err != nil {
		response.FromError(c, "Failed to list itineraries", err)
		return
	}

	response.Success(c, gin.H{
		"data":  list,
		"total": len(list),
	})
}
