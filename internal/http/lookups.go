package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kitaplik/internal/apperror"
	"github.com/mrlokans/kitaplik/internal/database/logs"
	"github.com/mrlokans/kitaplik/internal/entities"
)

// StatusesController serves the fixed book and reading statuses.
type StatusesController struct {
	store StatusLister
}

func NewStatusesController(store StatusLister) *StatusesController {
	return &StatusesController{store: store}
}

// GET /api/statuses
func (sc *StatusesController) List(c *gin.Context) {
	statuses, err := sc.store.Statuses()
	if err != nil {
		respondError(c, apperror.Internal("failed to load statuses", err))
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// LogsController exposes the audit trail to admins.
type LogsController struct {
	reader LogReader
}

func NewLogsController(reader LogReader) *LogsController {
	return &LogsController{reader: reader}
}

// List returns audit rows, most recent first
// GET /api/logs?user_id=&event_type=&book_id=&limit=&offset=
func (lc *LogsController) List(c *gin.Context) {
	var (
		filter logs.Filter
		ok     bool
	)
	if filter.UserID, ok = optionalQueryID(c, "user_id"); !ok {
		return
	}
	if filter.BookID, ok = optionalQueryID(c, "book_id"); !ok {
		return
	}
	event, ok := optionalQueryID(c, "event_type")
	if !ok {
		return
	}
	if event != 0 {
		filter.EventTypeID = entities.EventTypeID(event)
		if !filter.EventTypeID.Valid() {
			respondBadRequest(c, "invalid event_type")
			return
		}
	}
	filter.Limit, filter.Offset = parsePage(c)

	entries, total, err := lc.reader.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, entries, total, filter.Limit, filter.Offset)
}
