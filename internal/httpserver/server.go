package httpserver

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/learnerguy001/Smart-Traffic-main/internal/analysis"
	"github.com/learnerguy001/Smart-Traffic-main/internal/assistant"
	"github.com/learnerguy001/Smart-Traffic-main/internal/generator"
	"github.com/learnerguy001/Smart-Traffic-main/internal/violation"
)

// Deps carries everything the HTTP surface serves.
type Deps struct {
	Store     *violation.Store
	Generator *generator.Generator
	Pipeline  *analysis.Pipeline
	LLM       assistant.LLM
	Speech    assistant.Speech
	Log       zerolog.Logger

	// BaseCtx bounds background work started by requests (upload jobs,
	// socket sessions). Defaults to context.Background().
	BaseCtx context.Context
}

// Server bundles the echo router and its dependencies.
type Server struct {
	Echo *echo.Echo

	deps Deps
	hub  *hub
}

// New constructs the HTTP server with routes.
func New(deps Deps) *Server {
	if deps.BaseCtx == nil {
		deps.BaseCtx = context.Background()
	}
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{Echo: e, deps: deps, hub: newHub()}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.GET("/api/violations", s.listViolations)
	e.POST("/api/violations", s.addViolation)
	e.PATCH("/api/violations/:id", s.updateViolation)
	e.GET("/api/violations/stats", s.violationStats)

	e.POST("/api/live/pause", s.pauseLive)
	e.POST("/api/live/resume", s.resumeLive)
	e.GET("/api/live/state", s.liveState)

	e.POST("/api/uploads", s.startUpload)
	e.GET("/api/uploads/:id", s.uploadStatus)

	e.GET("/ws/feed", s.serveFeed)
	e.GET("/ws/assistant", s.serveAssistant)

	return s
}

// AnnouncementSink returns the broadcast hook for spoken store
// notifications; audio fans out to connected live-feed sockets.
func (s *Server) AnnouncementSink() func(audio []byte) {
	return s.hub.broadcastAudio
}

func (s *Server) listViolations(c echo.Context) error {
	q := c.QueryParam("q")
	status := c.QueryParam("status")
	if status != "" && status != "all" && !violation.Status(status).Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status filter"})
	}
	return c.JSON(http.StatusOK, s.deps.Store.List(q, status))
}

func (s *Server) addViolation(c echo.Context) error {
	var v violation.Violation
	if err := c.Bind(&v); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid violation payload"})
	}
	if v.Status != "" && !v.Status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	added := s.deps.Store.Add(v)
	return c.JSON(http.StatusCreated, added)
}

func (s *Server) updateViolation(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var patch violation.Patch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid patch payload"})
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	if !s.deps.Store.Update(id, patch) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "violation not found"})
	}
	updated, _ := s.deps.Store.Get(id)
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) violationStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Store.Stats())
}

func (s *Server) pauseLive(c echo.Context) error {
	s.deps.Generator.Pause()
	return c.JSON(http.StatusOK, echo.Map{"live": false})
}

func (s *Server) resumeLive(c echo.Context) error {
	s.deps.Generator.Resume()
	return c.JSON(http.StatusOK, echo.Map{"live": true})
}

func (s *Server) liveState(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"live": s.deps.Generator.Live()})
}

func (s *Server) startUpload(c echo.Context) error {
	file, err := c.FormFile("video")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing video file"})
	}
	if !isVideo(file.Header.Get("Content-Type"), file.Filename) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "please upload a video file"})
	}
	job := s.deps.Pipeline.Start(s.deps.BaseCtx, file.Filename, file.Size)
	return c.JSON(http.StatusAccepted, job)
}

func (s *Server) uploadStatus(c echo.Context) error {
	job, ok := s.deps.Pipeline.Job(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "upload not found"})
	}
	return c.JSON(http.StatusOK, job)
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true,
}

func isVideo(contentType, filename string) bool {
	if strings.HasPrefix(contentType, "video/") {
		return true
	}
	return videoExtensions[strings.ToLower(filepath.Ext(filename))]
}
