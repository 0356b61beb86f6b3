// Package api serves gap signals over HTTP: query endpoints, an on-demand
// scan trigger, health and metrics, and a websocket feed of new signals.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"krx-gap-lab/internal/config"
	"krx-gap-lab/internal/dateutil"
	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/scan"
	"krx-gap-lab/internal/storage"
)

// Scanner abstracts the daily gap scanner for the scan trigger endpoint.
type Scanner interface {
	Scan(ctx context.Context, scanDate string) (*scan.Summary, error)
}

// Server wires the HTTP surface.
type Server struct {
	echo    *echo.Echo
	cfg     config.Server
	signals storage.GapSignalStore
	scanner Scanner
	feed    *Feed
	log     zerolog.Logger
}

func NewServer(cfg config.Server, signals storage.GapSignalStore, scanner Scanner, registry *prometheus.Registry, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		cfg:     cfg,
		signals: signals,
		scanner: scanner,
		feed:    NewFeed(log),
		log:     log.With().Str("component", "api").Logger(),
	}

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	e.GET("/api/gaps", s.gapsByDate)
	e.GET("/api/gaps/check", s.checkGap)
	e.POST("/api/scan", s.triggerScan)
	e.GET("/ws/gaps", s.feed.Subscribe)
	return s
}

// Feed returns the live signal feed so the scan loop can publish into it.
func (s *Server) LiveFeed() *Feed { return s.feed }

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.echo.Server.ReadTimeout = s.cfg.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.WriteTimeout

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Info().Str("addr", addr).Msg("http server listening")
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.feed.Close()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

// gapsByDate returns all persisted signals for one event date.
func (s *Server) gapsByDate(c echo.Context) error {
	date, err := dateutil.ToCompact(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "date must be YYYYMMDD"})
	}

	signals, err := s.signals.GetByDate(c.Request().Context(), date)
	if err != nil {
		s.log.Error().Err(err).Str("date", date).Msg("gap query failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	if signals == nil {
		signals = []*domain.GapSignal{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"date":    date,
		"count":   len(signals),
		"signals": signals,
	})
}

// checkGap reports whether a specific (news, stock) pair produced a signal
// on a date.
func (s *Server) checkGap(c echo.Context) error {
	date, err := dateutil.ToCompact(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "date must be YYYYMMDD"})
	}
	newsID := c.QueryParam("news_id")
	stockCode := c.QueryParam("stock_code")
	if newsID == "" || stockCode == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "news_id and stock_code are required"})
	}

	signals, err := s.signals.GetByDate(c.Request().Context(), date)
	if err != nil {
		s.log.Error().Err(err).Str("date", date).Msg("gap query failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	for _, sig := range signals {
		if sig.NewsID == newsID && sig.StockCode == stockCode {
			return c.JSON(http.StatusOK, map[string]any{"found": true, "signal": sig})
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"found": false})
}

type scanRequest struct {
	Date string `json:"date"`
}

// triggerScan runs a scan synchronously and returns its summary. 503 when
// the server was started without a scanner.
func (s *Server) triggerScan(c echo.Context) error {
	if s.scanner == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "scanner not initialized"})
	}

	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.Date != "" {
		compact, err := dateutil.ToCompact(req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "date must be YYYYMMDD"})
		}
		req.Date = compact
	}

	summary, err := s.scanner.Scan(c.Request().Context(), req.Date)
	if err != nil {
		s.log.Error().Err(err).Msg("triggered scan failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	s.feed.Publish(summary.Top)
	return c.JSON(http.StatusOK, summary)
}
