package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/memory"
	"github.com/fyrsmithlabs/perceptd/internal/perception"
	"github.com/fyrsmithlabs/perceptd/internal/transcribe"
)

func (s *Server) handleHealth(c echo.Context) error {
	services := map[string]string{"perception": "ok", "memory": "disabled", "transcription": "disabled"}
	if s.memory != nil {
		services["memory"] = "ok"
	}
	if s.transcriber != nil {
		services["transcription"] = "ok"
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.config.Version, Services: services})
}

func (s *Server) handleAnalyzeText(c echo.Context) error {
	var req AnalyzeTextRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid analyze request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return s.analyze(c, perception.Input{Text: req.Text, Pitch: req.Pitch, UserID: req.UserID})
}

// handleAnalyzeAudio transcribes a multipart "audio" upload, estimates its
// pitch and analyzes the transcript.
func (s *Server) handleAnalyzeAudio(c echo.Context) error {
	if s.transcriber == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "transcription is not configured")
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable audio file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable audio file")
	}

	ctx := c.Request().Context()
	pitch, err := transcribe.EstimatePitch(bytes.NewReader(data))
	if err != nil {
		s.logger.Debug("pitch estimation skipped", zap.String("filename", fh.Filename), zap.Error(err))
		pitch = nil
	}

	text, err := s.transcriber.Transcribe(ctx, bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("transcription failed", zap.Error(err))
		if errors.Is(err, transcribe.ErrTranscriptionFailed) {
			return echo.NewHTTPError(http.StatusBadGateway, "transcription failed")
		}
		return echo.NewHTTPError(http.StatusGatewayTimeout, "transcription did not complete")
	}

	return s.analyze(c, perception.Input{Text: text, Pitch: pitch, UserID: c.FormValue("user_id")})
}

func (s *Server) analyze(c echo.Context, in perception.Input) error {
	a, err := s.perception.Analyze(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, perception.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) handleWorkingMemory(c echo.Context) error {
	if s.memory == nil {
		return memoryDisabled()
	}
	k, err := queryK(c)
	if err != nil {
		return err
	}
	got, err := s.memory.Working().Retrieve(c.Request().Context(), c.QueryParam("q"), k)
	if err != nil {
		return s.memoryError(err)
	}
	return c.JSON(http.StatusOK, entries(got))
}

func (s *Server) handleClearWorkingMemory(c echo.Context) error {
	if s.memory == nil {
		return memoryDisabled()
	}
	if err := s.memory.Working().Clear(c.Request().Context()); err != nil {
		return s.memoryError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleLongTermMemory(c echo.Context) error {
	if s.memory == nil {
		return memoryDisabled()
	}
	k, err := queryK(c)
	if err != nil {
		return err
	}
	got, err := s.memory.LongTerm().Retrieve(c.Request().Context(), c.QueryParam("user_id"), c.QueryParam("q"), k)
	if err != nil {
		return s.memoryError(err)
	}
	return c.JSON(http.StatusOK, entries(got))
}

func (s *Server) handleUpdateLongTerm(c echo.Context) error {
	if s.memory == nil {
		return memoryDisabled()
	}
	var req UpdateRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	id := c.Param("id")
	if err := s.memory.LongTerm().Update(c.Request().Context(), req.UserID, id, req.Record); err != nil {
		return s.memoryError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleContext(c echo.Context) error {
	if s.memory == nil {
		return memoryDisabled()
	}
	recall, err := s.memory.Context(c.Request().Context(), c.QueryParam("user_id"), c.QueryParam("q"))
	if err != nil {
		return s.memoryError(err)
	}
	return c.JSON(http.StatusOK, recall)
}

func queryK(c echo.Context) (int, error) {
	raw := c.QueryParam("k")
	if raw == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "k must be a non-negative integer")
	}
	return k, nil
}

func memoryDisabled() error {
	return echo.NewHTTPError(http.StatusServiceUnavailable, "memory is not configured")
}

func (s *Server) memoryError(err error) error {
	switch {
	case errors.Is(err, memory.ErrInvalidUserID), errors.Is(err, memory.ErrInvalidCollectionName):
		return echo.NewHTTPError(http.StatusBadRequest, "a valid user_id is required")
	case errors.Is(err, memory.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	s.logger.Error("memory request failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "memory unavailable")
}
