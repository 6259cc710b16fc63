package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/talkincode/toughshop/config"
	"go.uber.org/zap"
)

// ApiPrefix every route is mounted below this path
const ApiPrefix = "/api/v1"

// Server the HTTP front of the shop. Public routes are registered with the
// Api* methods, admin-only routes with the Admin* methods.
type Server struct {
	cfg  *config.AppConfig
	root *echo.Echo
	api  *echo.Group
	// admin middleware is attached per route; a group with middleware would
	// claim every unknown path below its prefix and answer it with 401
	adminChain []echo.MiddlewareFunc
}

func NewServer(cfg *config.AppConfig, users UserFinder) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = httpErrorHandler
	if cfg.System.Debug {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.INFO)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(requestLogger())

	return &Server{
		cfg:        cfg,
		root:       e,
		api:        e.Group(ApiPrefix),
		adminChain: []echo.MiddlewareFunc{jwtMiddleware(cfg.Web.Secret), requireAdmin(users)},
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			if v.Status >= http.StatusInternalServerError {
				zap.L().Warn("http request", fields...)
			} else {
				zap.L().Debug("http request", fields...)
			}
			return nil
		},
	})
}

// Echo exposes the router, mostly for tests
func (s *Server) Echo() *echo.Echo {
	return s.root
}

func (s *Server) ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.api.GET(path, h, m...)
}

func (s *Server) adminMiddleware(m []echo.MiddlewareFunc) []echo.MiddlewareFunc {
	chain := make([]echo.MiddlewareFunc, 0, len(s.adminChain)+len(m))
	chain = append(chain, s.adminChain...)
	return append(chain, m...)
}

func (s *Server) AdminGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.api.GET(path, h, s.adminMiddleware(m)...)
}

func (s *Server) AdminPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.api.POST(path, h, s.adminMiddleware(m)...)
}

func (s *Server) AdminPATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.api.PATCH(path, h, s.adminMiddleware(m)...)
}

func (s *Server) AdminDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.api.DELETE(path, h, s.adminMiddleware(m)...)
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	srv := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	zap.S().Infof("Prepare to start web server at %s", addr)
	err := s.root.StartServer(srv)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}
