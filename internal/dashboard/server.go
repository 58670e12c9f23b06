package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fraud-monitor/internal/report"
	"fraud-monitor/internal/session"
)

const broadcastQueue = 256

// Options configure the dashboard server.
type Options struct {
	Listen      string
	WSPath      string
	ChartWidth  int
	ChartHeight int
}

// Server exposes the latest session frame over REST and pushes every new frame to
// websocket clients.
type Server struct {
	opts   Options
	engine *gin.Engine
	latest session.Latest
	logger zerolog.Logger

	clients    map[*client]struct{}
	broadcast  chan session.Frame
	register   chan *client
	unregister chan *client
	hubDone    chan struct{}
	stopped    atomic.Bool
}

// New constructs the dashboard and its routes. Call Run to serve. The gin mode is
// left to the caller.
func New(opts Options, logger zerolog.Logger) *Server {
	if opts.WSPath == "" {
		opts.WSPath = "/ws"
	}
	if !strings.HasPrefix(opts.WSPath, "/") {
		opts.WSPath = "/" + opts.WSPath
	}
	s := &Server{
		opts:       opts,
		engine:     gin.New(),
		logger:     logger.With().Str("component", "dashboard").Logger(),
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan session.Frame, broadcastQueue),
		register:   make(chan *client),
		unregister: make(chan *client),
		hubDone:    make(chan struct{}),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler serving all dashboard routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Publish implements session.Publisher. It never blocks the session: when the
// broadcast queue is full the frame is still stored for REST readers and new clients.
func (s *Server) Publish(frame session.Frame) {
	s.latest.Publish(frame)
	if s.stopped.Load() {
		return
	}
	select {
	case s.broadcast <- frame:
	default:
		s.logger.Warn().Str("cause", string(frame.Cause)).Msg("broadcast queue full; frame skipped for websocket clients")
	}
}

// Run serves HTTP and the websocket hub until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.stopped.Store(true)

	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.runHub(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.opts.Listen).Str("ws_path", s.opts.WSPath).Msg("dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("dashboard shutdown")
		}
		s.logger.Info().Msg("dashboard stopped")
		return nil
	}
}

func (s *Server) setupRoutes() {
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/view", s.getView)
	s.engine.GET("/api/records.csv", s.getRecordsCSV)
	s.engine.GET("/api/chart.png", s.getChart)
	s.engine.GET(s.opts.WSPath, s.handleWebSocket)
}

func (s *Server) getHealth(c *gin.Context) {
	frame, ok := s.latest.Frame()
	body := gin.H{"status": "ok", "ready": ok}
	if ok {
		body["feed"] = frame.Feed
		body["latest_update"] = frame.At
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) getView(c *gin.Context) {
	frame, ok := s.latest.Frame()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no view published yet"})
		return
	}
	view := frame.View
	if q := c.Query("q"); q != "" {
		view.Records = report.Search(view.Records, q)
		view.Visible = len(view.Records)
	}
	c.JSON(http.StatusOK, gin.H{
		"feed": frame.Feed,
		"at":   frame.At,
		"view": view,
	})
}

func (s *Server) getRecordsCSV(c *gin.Context) {
	frame, ok := s.latest.Frame()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no view published yet"})
		return
	}
	records := report.Search(frame.View.Records, c.Query("q"))
	c.Header("Content-Disposition", `attachment; filename="fraud_report.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := report.WriteCSV(c.Writer, records); err != nil {
		s.logger.Error().Err(err).Msg("write csv response")
	}
}

func (s *Server) getChart(c *gin.Context) {
	frame, ok := s.latest.Frame()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no view published yet"})
		return
	}
	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	opts := report.ChartOptions{Width: s.opts.ChartWidth, Height: s.opts.ChartHeight}
	if err := report.WriteChartPNG(c.Writer, frame.View.Series, opts); err != nil {
		s.logger.Error().Err(err).Msg("write chart response")
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

var _ session.Publisher = (*Server)(nil)
