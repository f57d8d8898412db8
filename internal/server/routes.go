package server

import (
	"net/http"
	"time"

	"peakshaver/internal/config"
	"peakshaver/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/status", s.StatusHandler)
	e.PUT("/options", s.UpdateOptionsHandler)

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

// StatusHandler returns the latest control result. Until the first
// successful control cycle there is nothing to report and the endpoint
// answers 503.
func (s *Server) StatusHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetControlResultRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"error": err.Error(),
		})
	}
	response, ok := res.(domain.GetControlResultResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error": "unexpected response",
		})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"error": response.GetResponseError().Error(),
		})
	}
	if response.Result == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"error": "no control cycle completed yet",
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status_state":      response.Result.StatusState,
		"status_attributes": response.Result.StatusAttributes,
		"soc_target":        response.Result.LowestMinState,
	})
}

// UpdateOptionsHandler replaces the runtime options wholesale and
// reschedules the control tick if the interval changed.
func (s *Server) UpdateOptionsHandler(c echo.Context) error {
	var options config.Options
	if err := c.Bind(&options); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": err.Error(),
		})
	}
	if err := options.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": err.Error(),
		})
	}

	res, err := s.rootContext.RequestFuture(s.masterActor, domain.UpdateOptionsRequest{Options: options}, 10*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"error": err.Error(),
		})
	}
	if response, ok := res.(domain.UpdateOptionsResponse); !ok || response.HasResponseError() {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error": "options update failed",
		})
	}

	if s.reschedule != nil {
		if err := s.reschedule(options.Advanced.UpdateIntervalSeconds); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error": err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
	})
}
