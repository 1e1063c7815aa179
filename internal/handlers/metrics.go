package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"hostmon/internal/telemetry"

	"github.com/gin-gonic/gin"
)

// MetricsHandlers serves one JSON document per metric family.
type MetricsHandlers struct {
	store  *telemetry.Store
	logger *log.Logger
}

func NewMetricsHandlers(store *telemetry.Store) *MetricsHandlers {
	return &MetricsHandlers{store: store, logger: log.Default()}
}

// SetLogger replaces the logger used for serialization failures.
func (h *MetricsHandlers) SetLogger(l *log.Logger) {
	if l != nil {
		h.logger = l
	}
}

// Register installs the metric routes and the Not Found fallback on r.
// Matching is exact on the path as sent: percent-encoded paths are not
// decoded before lookup, and gin's redirects and 405 handling are turned off
// so every miss lands on NotFound.
func (h *MetricsHandlers) Register(r *gin.Engine) {
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.HandleMethodNotAllowed = false
	r.RemoveExtraSlash = false
	r.UseRawPath = true
	r.UnescapePathValues = false

	for i, rt := range routes {
		r.Handle(rt.method, rt.path, h.serve(telemetry.Family(i), rt))
	}
	r.NoRoute(NotFound)
}

func (h *MetricsHandlers) serve(family telemetry.Family, rt route) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc := telemetry.Read(c.Request.Context(), h.store, family, rt.shape)
		body, err := json.Marshal(doc)
		if err != nil {
			h.logger.Printf("encode %s: %v", rt.path, err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	}
}

// NotFound is the terminal response for any unmatched method and path.
func NotFound(c *gin.Context) {
	c.String(http.StatusNotFound, "Not Found")
}
