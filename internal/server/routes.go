package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type commandRequest struct {
	Action string `json:"action"`
	Power  int    `json:"power"`
}

type commandResponse struct {
	Accepted     bool   `json:"accepted"`
	RejectReason string `json:"reject_reason,omitempty"`
}

type deviceStateResponse struct {
	Identity            string `json:"identity"`
	Address             string `json:"address"`
	Available           bool   `json:"available"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/snapshot", s.SnapshotHandler)
	e.GET("/device", s.DeviceStateHandler)
	e.POST("/command", s.CommandHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) SnapshotHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetSnapshotRequest{}, 10*time.Second).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.GetSnapshotResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	return c.JSON(http.StatusOK, response.Values)
}

func (s *Server) DeviceStateHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetDeviceStateRequest{}, 10*time.Second).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.GetDeviceStateResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	return c.JSON(http.StatusOK, deviceStateResponse{
		Identity:            string(response.Identity),
		Address:             string(response.Address),
		Available:           response.Available,
		ConsecutiveFailures: response.ConsecutiveFailures,
	})
}

func (s *Server) CommandHandler(c echo.Context) error {
	var body commandRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var action domain.CommandAction
	switch strings.ToLower(body.Action) {
	case "charge":
		action = domain.ActionCharge
	case "discharge":
		action = domain.ActionDischarge
	case "stop":
		action = domain.ActionStop
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "action must be charge, discharge or stop")
	}

	res, err := s.rootContext.RequestFuture(s.masterActor, domain.BatteryCommandRequest{
		Action:    action,
		PowerWatt: body.Power,
	}, 30*time.Second).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.BatteryCommandResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	if !response.Accepted {
		return c.JSON(http.StatusUnprocessableEntity, commandResponse{
			Accepted:     false,
			RejectReason: response.RejectReason,
		})
	}
	return c.JSON(http.StatusOK, commandResponse{Accepted: true})
}
