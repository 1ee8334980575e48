package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/planning"
	"github.com/jengzang/itinerary-backend-go/internal/service"
	"github.com/jengzang/itinerary-backend-go/pkg/response"
)

// POIHandler handles HTTP requests for the attraction catalogue
type POIHandler struct {
	service *service.POIService
}

// NewPOIHandler creates a new attraction handler
func NewPOIHandler(service *service.POIService) *POIHandler {
	return &POIHandler{service: service}
}

// nearbyQuery is the query string of GET /attractions/nearby
type nearbyQuery struct {
	Lat      *float64 `form:"lat" binding:"required,gte=-90,lte=90"`
	Lon      *float64 `form:"lon" binding:"required,gte=-180,lte=180"`
	RadiusKm float64  `form:"radius_km" binding:"omitempty,gt=0,lte=50"`
	Limit    int      `form:"limit" binding:"omitempty,gte=0"`
}

// List handles GET /api/v1/attractions?city=&category=&min_rating=&indoor_only=&limit=
func (h *POIHandler) List(c *gin.Context) {
	var filter planning.POIFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	list, err := h.service.List(c.Request.Context(), c.Query("city"), filter)
	if err != nil {
		response.FromError(c, "Failed to list attractions", err)
		return
	}

	response.Success(c, gin.H{
		"data":  list,
		"total": len(list),
	})
}

// Create handles POST /api/v1/attractions
func (h *POIHandler) Create(c *gin.Context) {
	var a models.Attraction
	if err := c.ShouldBindJSON(&a); err != nil {
		response.BadRequest(c, "Invalid attraction", err)
		return
	}

	saved, err := h.service.Save(c.Request.Context(), a)
	if err != nil {
		response.FromError(c, "Failed to save attraction", err)
		return
	}

	response.Created(c, saved)
}

// Nearby handles GET /api/v1/attractions/nearby?lat=&lon=&radius_km=&limit=
func (h *POIHandler) Nearby(c *gin.Context) {
	var q nearbyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}
	if q.RadiusKm == 0 {
		q.RadiusKm = 2
	}

	list, err := h.service.Nearby(c.Request.Context(), *q.Lat, *q.Lon, q.RadiusKm, q.Limit)
	if err != nil {
		response.FromError(c, "Failed to find nearby attractions", err)
		return
	}

	response.Success(c, gin.H{
		"data":      list,
		"total":     len(list),
		"radius_km": strconv.FormatFloat(q.RadiusKm, 'f', -1, 64),
	})
}
