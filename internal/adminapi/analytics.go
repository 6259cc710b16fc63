package adminapi

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughshop/internal/analytics"
	"github.com/talkincode/toughshop/internal/domain"
	"github.com/talkincode/toughshop/internal/webserver"
	"github.com/talkincode/toughshop/pkg/metrics"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// activity service counters from the local metrics store, last 24 hours
type activity struct {
	Searches        float64  `json:"searches_24h"`
	ProductsCreated float64  `json:"products_created_24h"`
	ProcessCPU      *float64 `json:"process_cpu_percent,omitempty"`
	ProcessMemMB    *float64 `json:"process_mem_mb,omitempty"`
}

type analyticsResponse struct {
	*analytics.Report
	Activity activity `json:"activity"`
}

func currentActivity() activity {
	since := time.Now().Add(-24 * time.Hour)
	act := activity{
		Searches:        metrics.Sum("catalog_search", since),
		ProductsCreated: metrics.Sum("catalog_product_created", since),
	}
	if v, ok := metrics.Latest("toughshop_cpuuse"); ok {
		pct := v / 100
		act.ProcessCPU = &pct
	}
	if v, ok := metrics.Latest("toughshop_memuse"); ok {
		act.ProcessMemMB = &v
	}
	return act
}

func (h *Handler) registerAnalyticsRoutes(s *webserver.Server) {
	s.AdminGET("/analytics", h.getAnalytics)
	s.AdminGET("/analytics/export", h.exportAnalytics)
}

// reportWindow reads ?days= and ?end= from the query
func (h *Handler) reportWindow(c echo.Context) (int, time.Time, error) {
	days := h.defaultDays
	if raw := strings.TrimSpace(c.QueryParam("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, time.Time{}, domain.NewValidationError("days", "must be a non-negative integer")
		}
		days = n
	}
	if days > analytics.MaxDays {
		days = analytics.MaxDays
	}

	var end time.Time
	if raw := strings.TrimSpace(c.QueryParam("end")); raw != "" {
		t, err := dateparse.ParseIn(raw, time.UTC)
		if err != nil {
			return 0, time.Time{}, domain.NewValidationError("end", "unrecognized date "+raw)
		}
		end = t
	}
	return days, end, nil
}

func (h *Handler) getAnalytics(c echo.Context) error {
	days, end, err := h.reportWindow(c)
	if err != nil {
		return webserver.HandleError(c, err)
	}
	report, err := h.analytics.Report(c.Request().Context(), days, end)
	if err != nil {
		return webserver.HandleError(c, err)
	}
	return webserver.OK(c, analyticsResponse{Report: report, Activity: currentActivity()})
}

func (h *Handler) exportAnalytics(c echo.Context) error {
	days, end, err := h.reportWindow(c)
	if err != nil {
		return webserver.HandleError(c, err)
	}
	report, err := h.analytics.Report(c.Request().Context(), days, end)
	if err != nil {
		return webserver.HandleError(c, err)
	}
	var buf bytes.Buffer
	if err := analytics.WriteXLSX(&buf, report); err != nil {
		return webserver.HandleError(c, err)
	}
	filename := "analytics-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
