package adminapi

import (
	"github.com/talkincode/toughshop/internal/analytics"
	"github.com/talkincode/toughshop/internal/catalog"
	"github.com/talkincode/toughshop/internal/webserver"
)

// Handler serves the admin dashboard endpoints. Every route sits behind the
// server's admin gate.
type Handler struct {
	catalog     *catalog.Service
	analytics   *analytics.Aggregator
	defaultDays int
}

func New(svc *catalog.Service, agg *analytics.Aggregator, defaultDays int) *Handler {
	if defaultDays <= 0 {
		defaultDays = analytics.DefaultDays
	}
	return &Handler{catalog: svc, analytics: agg, defaultDays: defaultDays}
}

// Register mounts all admin routes on s
func (h *Handler) Register(s *webserver.Server) {
	h.registerProductRoutes(s)
	h.registerAnalyticsRoutes(s)
}
