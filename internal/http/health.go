package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kitaplik/internal/database"
)

type HealthResponse struct {
	Status   string            `json:"status"`
	Time     string            `json:"time"`
	Uptime   string            `json:"uptime"`
	Version  string            `json:"version,omitempty"`
	ReadOnly bool              `json:"read_only,omitempty"`
	Checks   map[string]string `json:"checks"`
}

// healthCheck is one dependency probed by the health endpoint.
type healthCheck struct {
	name  string
	probe func() error
}

type HealthController struct {
	checks   []healthCheck
	version  string
	readOnly bool
	started  time.Time
}

func NewHealthController(db *database.Database, version string, readOnly bool) *HealthController {
	hc := &HealthController{version: version, readOnly: readOnly, started: time.Now()}
	if db != nil {
		hc.checks = append(hc.checks, healthCheck{name: "database", probe: db.Ping})
	}
	return hc
}

// Status probes every dependency and answers 503 if any of them fails
// GET /health
func (h *HealthController) Status(c *gin.Context) {
	resp := HealthResponse{
		Status:   "healthy",
		Time:     time.Now().Format(time.RFC3339),
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Version:  h.version,
		ReadOnly: h.readOnly,
		Checks:   make(map[string]string, len(h.checks)),
	}

	for _, check := range h.checks {
		if err := check.probe(); err != nil {
			resp.Checks[check.name] = "error: " + err.Error()
			resp.Status = "unhealthy"
			continue
		}
		resp.Checks[check.name] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, resp)
}
