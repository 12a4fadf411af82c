package api

import (
	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/engine"
	"RiskPulse/internal/usecase"
	xhttp "RiskPulse/pkg/http"
	xlogger "RiskPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TelemetryHandler serves the snapshot read side and the operator control
// surface.
type TelemetryHandler struct {
	logger *xlogger.Logger
	sim    *usecase.Simulator
}

func NewTelemetryHandler(logger *xlogger.Logger, sim *usecase.Simulator) *TelemetryHandler {
	return &TelemetryHandler{logger: logger, sim: sim}
}

func (h *TelemetryHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/snapshot", h.Snapshot)
	g.GET("/alerts", h.Alerts)
	g.GET("/scenarios", h.Scenarios)

	ctl := g.Group("/control")
	ctl.POST("/phase", h.SetPhase)
	ctl.POST("/scenario", h.SetScenario)
	ctl.POST("/scenario/clear", h.ClearScenario)
	ctl.POST("/demo", h.Demo)
	ctl.POST("/approve-reentry", h.ApproveReentry)
}

func (h *TelemetryHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Snapshot returns the latest published telemetry snapshot.
func (h *TelemetryHandler) Snapshot(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.sim.Engine().Snapshot())
}

// Alerts returns the newest alert events, optionally limited by ?limit=N.
func (h *TelemetryHandler) Alerts(c echo.Context) error {
	snap := h.sim.Engine().Snapshot()
	alerts := snap.Alerts
	total := int64(len(alerts))

	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), len(alerts))
	if limit < 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("limit must not be negative"))
	}
	if limit < len(alerts) {
		alerts = alerts[:limit]
	}
	return xhttp.ListResponse(c, alerts, total)
}

// Scenarios lists the scripted scenario IDs available to the control surface.
func (h *TelemetryHandler) Scenarios(c echo.Context) error {
	return xhttp.SuccessResponse(c, engine.ScenarioIDs())
}

func (h *TelemetryHandler) SetPhase(c echo.Context) error {
	req := &models.PhaseRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.sim.Engine().SetPhase(h.sim.Now(), req.Phase); err != nil {
		h.logger.Warn("set phase rejected", xlogger.String("phase", req.Phase), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	h.logger.Info("phase forced", xlogger.String("phase", req.Phase))
	return xhttp.SuccessResponse(c, models.ControlAck{Status: "ok", Applied: true, Phase: req.Phase})
}

func (h *TelemetryHandler) SetScenario(c echo.Context) error {
	req := &models.ScenarioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.sim.Engine().SetScenario(h.sim.Now(), req.Scenario); err != nil {
		h.logger.Warn("set scenario rejected", xlogger.String("scenario", req.Scenario), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	h.logger.Info("scenario started", xlogger.String("scenario", req.Scenario))
	return xhttp.SuccessResponse(c, models.ControlAck{Status: "ok", Applied: true, Scenario: req.Scenario})
}

func (h *TelemetryHandler) ClearScenario(c echo.Context) error {
	h.sim.Engine().ClearScenario(h.sim.Now())
	h.logger.Info("scenario cleared")
	return xhttp.SuccessResponse(c, models.ControlAck{Status: "ok", Applied: true})
}

// Demo starts the default scripted scenario.
func (h *TelemetryHandler) Demo(c echo.Context) error {
	id := h.sim.Engine().AutoDemo(h.sim.Now())
	h.logger.Info("demo scenario started", xlogger.String("scenario", id))
	return xhttp.SuccessResponse(c, models.ControlAck{Status: "ok", Applied: true, Scenario: id})
}

// ApproveReentry grants the PM approval required before tranche deployment.
// Applied is false when no scenario with a re-entry leg is active.
func (h *TelemetryHandler) ApproveReentry(c echo.Context) error {
	applied := h.sim.Engine().ApproveReentry(h.sim.Now())
	if !applied {
		h.logger.Warn("re-entry approval ignored; no active re-entry scenario")
	} else {
		h.logger.Info("re-entry approved")
	}
	return xhttp.SuccessResponse(c, models.ControlAck{Status: "ok", Applied: applied})
}
