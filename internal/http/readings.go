package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kitaplik/internal/library"
)

type addReadingRequest struct {
	BookID uint `json:"book_id" binding:"required"`
	Status Key  `json:"status" binding:"required"`
}

type updateReadingRequest struct {
	Status  *Key    `json:"status"`
	Comment *string `json:"comment" binding:"omitempty,max=2000"`
}

// ReadingsController serves the caller's own readings under /api/readings.
type ReadingsController struct {
	service ReadingService
}

func NewReadingsController(service ReadingService) *ReadingsController {
	return &ReadingsController{service: service}
}

// GET /api/readings
func (rc *ReadingsController) List(c *gin.Context) {
	list, err := rc.service.ListMyReadings(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Create starts tracking a book
// POST /api/readings
func (rc *ReadingsController) Create(c *gin.Context) {
	var req addReadingRequest
	if !bindJSON(c, &req) {
		return
	}
	reading, err := rc.service.AddReading(c.Request.Context(), actor(c), req.BookID, string(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, reading)
}

// Update changes status or comment of the caller's reading
// PATCH /api/readings/:id
func (rc *ReadingsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateReadingRequest
	if !bindJSON(c, &req) {
		return
	}

	in := library.UpdateReadingInput{Comment: req.Comment}
	if req.Status != nil {
		s := string(*req.Status)
		in.Status = &s
	}

	reading, err := rc.service.UpdateReading(c.Request.Context(), actor(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reading)
}

// DELETE /api/readings/:id
func (rc *ReadingsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := rc.service.RemoveReading(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
