package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/alexanderramin/coursetrack/internal/catalog"
	"github.com/alexanderramin/coursetrack/internal/domain"
	"github.com/alexanderramin/coursetrack/internal/progress"
)

type playbackRequest struct {
	CurrentTime *float64 `json:"currentTime" validate:"required,gte=0"`
	Duration    *float64 `json:"duration" validate:"required,gte=0"`
}

type lessonResponse struct {
	Completed bool              `json:"completed"`
	Snapshot  progress.Snapshot `json:"snapshot"`
}

type notificationMessage struct {
	domain.Notification
	Message string `json:"message"`
}

func (s *Server) handlePlayback(c echo.Context) error {
	req := new(playbackRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, NewRESTStandardError(http.StatusBadRequest, "Failed to parse body"))
	}
	if errs := s.validator.Struct(req); errs != nil {
		return c.JSON(http.StatusBadRequest, NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", errs))
	}

	done, snap, err := s.progress.RecordPlayback(c.Request().Context(),
		c.Param("courseId"), c.Param("lessonId"), *req.CurrentTime, *req.Duration)
	if err != nil {
		return s.courseError(c, err)
	}
	return c.JSON(http.StatusOK, lessonResponse{Completed: done, Snapshot: snap})
}

func (s *Server) handleComplete(c echo.Context) error {
	done, snap, err := s.progress.CompleteLesson(c.Request().Context(), c.Param("courseId"), c.Param("lessonId"))
	if err != nil {
		return s.courseError(c, err)
	}
	return c.JSON(http.StatusOK, lessonResponse{Completed: done, Snapshot: snap})
}

func (s *Server) handleProgress(c echo.Context) error {
	st, err := s.progress.Status(c.Request().Context(), c.Param("courseId"))
	if err != nil {
		return s.courseError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleSync(c echo.Context) error {
	courseID := c.Param("courseId")
	if err := s.progress.Sync(c.Request().Context(), courseID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return s.courseError(c, err)
		}
		return c.JSON(http.StatusBadGateway, NewRESTStandardError(http.StatusBadGateway, err.Error()))
	}
	st, err := s.progress.Status(c.Request().Context(), courseID)
	if err != nil {
		return s.courseError(c, err)
	}
	return c.JSON(http.StatusOK, st.Snapshot)
}

func (s *Server) courseError(c echo.Context, err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return c.JSON(http.StatusNotFound, NewRESTStandardError(http.StatusNotFound, err.Error()))
	}
	return err
}

// streamNotifications pushes notifications for ?courseId= (or every course)
// to a websocket client until either side goes away.
func (s *Server) streamNotifications(c echo.Context, conn *websocket.Conn, closed <-chan struct{}) error {
	courseID := c.QueryParam("courseId")
	ch, cancel := s.hub.Subscribe(courseID)
	defer cancel()

	s.log.Debug("notification stream opened", zap.String("course.id", courseID))
	defer s.log.Debug("notification stream closed", zap.String("course.id", courseID))

	for {
		select {
		case <-closed:
			return nil
		case n, ok := <-ch:
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(notificationMessage{Notification: n, Message: n.Message()}); err != nil {
				return err
			}
		}
	}
}
