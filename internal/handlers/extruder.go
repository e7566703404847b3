package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"extruder_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK               = "ok"
	statusConnected        = "connected"
	statusDisconnected     = "disconnected"
	statusWakeupSent       = "wakeup_sent"
	statusSessionReset     = "session_reset"
	statusInitBlockCleared = "init_block_cleared"

	errListPorts       = "failed to list serial ports"
	errConnect         = "failed to open serial port"
	errDisconnect      = "failed to close serial port"
	errWakeup          = "failed to send wakeup"
	errGetState        = "failed to load state"
	errGetSamples      = "failed to load samples"
	errInvalidBodyPref = "invalid body: "
	errInvalidLimit    = "invalid 'limit'; use a positive integer"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	if h.services.Monitoring != nil {
		if st, err := h.services.Monitoring.GetState(ctx); err == nil {
			resp["state"] = st
		}
	}
	c.JSON(http.StatusOK, resp)
}

// controlErrorStatus maps driver errors to HTTP codes.
func controlErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrPortRequired), errors.Is(err, service.ErrInvalidBaudRate):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAlreadyConnected), errors.Is(err, service.ErrNotConnected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type connectRequest struct {
	Port     string `json:"port_name" binding:"required"`
	BaudRate int    `json:"baud_rate"`
}

// ConnectRequest is an exported model for Swagger docs of the connect payload.
type ConnectRequest struct {
	// Device path or SIM for the built-in simulator
	Port string `json:"port_name" example:"/dev/ttyUSB0"`
	// Line speed; defaults to 115200
	BaudRate int `json:"baud_rate,omitempty" example:"115200"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": statusOK}
	if h.services.Ingestion != nil {
		resp["serial_connected"] = h.services.Ingestion.Connected()
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      List serial ports
// @Tags         serial
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, ports"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/serial/ports [get]
// @Security     BearerAuth
func (h *Handler) listPorts(c *gin.Context) {
	ports, err := h.services.Ingestion.Ports()
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListPorts, "serial_list_ports_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(ports), "ports": ports})
}

// @Summary      Connect to a serial port
// @Description  Opens the port and starts streaming. The session starts in the init phase.
// @Tags         serial
// @Accept       json
// @Produce      json
// @Param        body  body   ConnectRequest  true  "Port and baud rate"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/serial/connect [post]
// @Security     BearerAuth
func (h *Handler) connect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	err := h.services.Ingestion.Connect(c.Request.Context(), service.ConnectParams{
		Port:     req.Port,
		BaudRate: req.BaudRate,
	})
	if err != nil {
		code := controlErrorStatus(err)
		msg := err.Error()
		if code == http.StatusInternalServerError {
			msg = errConnect + ": " + msg
		}
		h.logAndJSONError(c, code, msg, "serial_connect_failed", err, "port", req.Port, "baud_rate", req.BaudRate)
		return
	}
	h.respondWithStatusAndState(c, statusConnected, gin.H{"port_name": req.Port})
}

// @Summary      Disconnect the serial port
// @Tags         serial
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/serial/disconnect [post]
// @Security     BearerAuth
func (h *Handler) disconnect(c *gin.Context) {
	if err := h.services.Ingestion.Disconnect(c.Request.Context()); err != nil {
		code := controlErrorStatus(err)
		msg := errDisconnect
		if code != http.StatusInternalServerError {
			msg = err.Error()
		}
		h.logAndJSONError(c, code, msg, "serial_disconnect_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusDisconnected, gin.H{})
}

// @Summary      Send wakeup
// @Description  Writes a newline to the device so it prints its header again.
// @Tags         serial
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/serial/wakeup [post]
// @Security     BearerAuth
func (h *Handler) sendWakeup(c *gin.Context) {
	if err := h.services.Ingestion.SendWakeup(); err != nil {
		code := controlErrorStatus(err)
		msg := errWakeup
		if code != http.StatusInternalServerError {
			msg = err.Error()
		}
		h.logAndJSONError(c, code, msg, "serial_wakeup_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusWakeupSent})
}

// @Summary      Reset the protocol session
// @Description  Forces the session back to the init phase; the port stays open.
// @Tags         session
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/session/reset [post]
// @Security     BearerAuth
func (h *Handler) resetSession(c *gin.Context) {
	if err := h.services.Ingestion.ResetSession(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, err.Error(), "session_reset_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusSessionReset, gin.H{})
}

// @Summary      Discard buffered boot text
// @Tags         session
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/session/init-block [delete]
// @Security     BearerAuth
func (h *Handler) forgetInitBlock(c *gin.Context) {
	if err := h.services.Ingestion.ForgetInitBlock(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, err.Error(), "session_forget_init_block_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusInitBlockCleared, gin.H{})
}

// @Summary      Get live extruder state
// @Tags         telemetry
// @Produce      json
// @Success      200  {object}  models.ExtruderState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/telemetry/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "telemetry_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      List stored samples
// @Description  Newest 'limit' rows in range, oldest first. Time formats as for /logs.
// @Tags         telemetry
// @Produce      json
// @Param        from   query  string  false  "Start of range"  example(2025-08-01)
// @Param        to     query  string  false  "End of range; date-only means end of day"  example(2025-08-31)
// @Param        limit  query  int     false  "Max rows (default 500, max 5000)"
// @Success      200    {object}  map[string]interface{}  "count, samples"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/telemetry/samples [get]
// @Security     BearerAuth
func (h *Handler) getSamples(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	var limit int
	if qs := c.Query("limit"); qs != "" {
		v, err := strconv.Atoi(qs)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidLimit})
			return
		}
		limit = v
	}

	samples, err := h.services.Samples.History(c.Request.Context(), service.SampleFilter{From: from, To: to, Limit: limit})
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetSamples, "telemetry_samples_failed", err,
			"from", from.Format(time.RFC3339), "to", to.Format(time.RFC3339))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(samples), "samples": samples})
}
