package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/momentd/internal/logging"
	"github.com/fyrsmithlabs/momentd/internal/moments"
)

// userID returns the caller's identity or a 400 when it is missing.
func userID(c echo.Context) (string, error) {
	id := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
	if id == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, HeaderUserID+" header is required")
	}
	return id, nil
}

func (s *Server) bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid request body",
			zap.String("path", c.Path()),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// handleCreateMoment creates a moment and matches thoughts to it.
func (s *Server) handleCreateMoment(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req moments.CreateRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	req.UserID = uid

	out, err := s.service.CreateAndMatch(c.Request().Context(), req)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (s *Server) handleGetMoment(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx := logging.WithMomentID(c.Request().Context(), c.Param("id"))

	out, err := s.service.GetMoment(ctx, uid, c.Param("id"))
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// handleEnrichMoment adds user context and rematches.
func (s *Server) handleEnrichMoment(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req EnrichRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	ctx := logging.WithMomentID(c.Request().Context(), c.Param("id"))

	out, err := s.service.EnrichAndRematch(ctx, uid, c.Param("id"), req.UserContext)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// handleFeedback records whether a matched thought helped.
func (s *Server) handleFeedback(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req FeedbackRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if req.ThoughtID == "" || req.Helpful == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "thought_id and helpful are required")
	}
	ctx := logging.WithMomentID(c.Request().Context(), c.Param("id"))

	if err := s.service.RecordFeedback(ctx, uid, c.Param("id"), req.ThoughtID, *req.Helpful); err != nil {
		return s.toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSetStatus(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	ctx := logging.WithMomentID(c.Request().Context(), c.Param("id"))

	m, err := s.service.SetStatus(ctx, uid, c.Param("id"), req.Status)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handleAddThought(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req ThoughtRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	t, err := s.service.AddThought(c.Request().Context(), uid, req.Content, req.ContextTag, req.Source)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) handleListThoughts(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	thoughts, err := s.service.ListThoughts(c.Request().Context(), uid)
	if err != nil {
		return s.toHTTPError(c, err)
	}
	if thoughts == nil {
		thoughts = []moments.Thought{}
	}
	return c.JSON(http.StatusOK, ThoughtsResponse{Thoughts: thoughts})
}
