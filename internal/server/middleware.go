package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Logging logs every request at debug level with ECS field names.
func Logging(base *zap.Logger, skipper middleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}
			err := next(c)
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			logger := base.With(
				zap.String("trace.id", rid),
				zap.String("url.path", c.Request().RequestURI),
				zap.String("client.address", c.Request().RemoteAddr),
				zap.String("http.request.method", c.Request().Method),
				zap.Int64("http.request.body.bytes", c.Request().ContentLength),
			)
			if len(c.ParamNames()) > 0 {
				logger = logger.With(
					zap.Strings("route.params.name", c.ParamNames()),
					zap.Strings("route.params.value", c.ParamValues()),
				)
			}
			code := c.Response().Status
			logger.Debug(http.StatusText(code), zap.Int("http.response.status_code", code))
			return err
		}
	}
}

// ErrorHandling renders handler errors and panics as RESTStandardError
// bodies. Handlers behind it never see an error returned upstream.
func ErrorHandling(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if p := recover(); p != nil {
					perr, ok := p.(error)
					if !ok {
						perr = fmt.Errorf("%v", p)
					}
					writeError(c, logger, perr)
					err = nil
				}
			}()
			if herr := next(c); herr != nil {
				writeError(c, logger, herr)
			}
			return nil
		}
	}
}

func writeError(c echo.Context, logger *zap.Logger, err error) {
	if c.Response().Committed {
		return
	}
	traceID := c.Response().Header().Get(echo.HeaderXRequestID)

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, NewRESTStandardError(httpErr.Code, fmt.Sprint(httpErr.Message)).SetTraceID(traceID))
		return
	}
	logger.Error(err.Error(),
		zap.String("trace.id", traceID),
		zap.String("url.path", c.Request().RequestURI),
		zap.String("http.request.method", c.Request().Method),
	)
	_ = c.JSON(http.StatusInternalServerError,
		NewRESTStandardError(http.StatusInternalServerError, err.Error()).SetTraceID(traceID),
	)
}
