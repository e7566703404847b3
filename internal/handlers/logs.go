package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"extruder_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRangeOrder  = "'from' must be <= 'to'"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// parseRange reads optional 'from' and 'to' query values. A date-only 'to'
// covers the whole day. On failure it writes a 400 and returns ok=false.
func parseRange(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	if qs := c.Query("from"); qs != "" {
		from, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return time.Time{}, time.Time{}, false
		}
	}
	if qs := c.Query("to"); qs != "" {
		to, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return time.Time{}, time.Time{}, false
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errRangeOrder})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// @Summary      List logs
// @Description  Filter logs by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive (23:59:59.999999999Z).
// @Tags         logs
// @Produce      json
// @Param        from  query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to    query   string  false  "End of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). Date-only treated as end of day."  example(2025-08-31)
// @Param        type  query   string  false  "Event type"  Enums(CONNECT,DISCONNECT,HEADER,INIT_BLOCK,PARSE_WARNING,SERIAL_ERROR,RESET)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	eventType := strings.ToUpper(strings.TrimSpace(c.Query("type")))

	events, err := h.services.EventLog.List(c.Request.Context(), service.LogFilter{
		From: from,
		To:   to,
		Type: eventType,
	})
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load logs", "logs_list_failed", err,
			"from", from, "to", to, "type", eventType)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
