// Package httpapi exposes the booking service over a JSON REST API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
)

// ErrInvalidServerConfig indicates a missing server dependency.
var ErrInvalidServerConfig = errors.New("invalid http server config")

var releaseModeOnce sync.Once

// BookingService is the domain surface the handlers call into.
type BookingService interface {
	CreateReservation(ctx context.Context, actor booking.Actor, input booking.ReservationInput) (booking.Reservation, error)
	GetReservation(ctx context.Context, actor booking.Actor, reservationID booking.ReservationID) (booking.Reservation, error)
	ListMyReservations(ctx context.Context, actor booking.Actor) ([]booking.Reservation, error)
	ListReservations(ctx context.Context, actor booking.Actor, params url.Values) (booking.Page[booking.Reservation], error)
	UpdateReservation(ctx context.Context, actor booking.Actor, reservationID booking.ReservationID, update booking.ReservationUpdate) (booking.Reservation, error)
	CancelReservation(ctx context.Context, actor booking.Actor, reservationID booking.ReservationID) (booking.Reservation, error)
	CreateVoyage(ctx context.Context, actor booking.Actor, input booking.VoyageInput) (booking.Voyage, error)
	GetVoyage(ctx context.Context, voyageID booking.VoyageID) (booking.Voyage, error)
	ListVoyages(ctx context.Context, params url.Values) (booking.Page[booking.Voyage], error)
	UpdateVoyage(ctx context.Context, actor booking.Actor, voyageID booking.VoyageID, patch booking.VoyagePatch) (booking.Voyage, error)
	DeactivateVoyage(ctx context.Context, actor booking.Actor, voyageID booking.VoyageID) (booking.Voyage, error)
}

// StatisticsProvider computes the dashboard summary.
type StatisticsProvider interface {
	ComputeSummary(ctx context.Context) (booking.Summary, error)
}

// Dependencies are the collaborators a Server needs.
type Dependencies struct {
	Service    BookingService
	Statistics StatisticsProvider
	Tokens     *TokenAuthority
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
}

// Server owns the gin engine and its http.Server.
type Server struct {
	cfg    Config
	engine *gin.Engine
	logger *zap.Logger
}

// NewServer validates cfg and builds the router.
func NewServer(cfg Config, deps Dependencies) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Service == nil {
		return nil, fmt.Errorf("%w: booking service is nil", ErrInvalidServerConfig)
	}
	if deps.Statistics == nil {
		return nil, fmt.Errorf("%w: statistics provider is nil", ErrInvalidServerConfig)
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("%w: token authority is nil", ErrInvalidServerConfig)
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	handler := &httpHandler{
		service:    deps.Service,
		statistics: deps.Statistics,
		logger:     deps.Logger,
	}
	return &Server{
		cfg:    cfg,
		engine: setupRouter(cfg, handler, deps),
		logger: deps.Logger,
	}, nil
}

// Handler returns the router for embedding or tests.
func (server *Server) Handler() http.Handler {
	return server.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              server.cfg.ListenAddr,
		Handler:           server.engine,
		ReadHeaderTimeout: server.cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("voyages api listening", zap.String("addr", server.cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.cfg.ShutdownGrace)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler, deps Dependencies) *gin.Engine {
	releaseModeOnce.Do(func() { gin.SetMode(gin.ReleaseMode) })
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(accessLog(deps.Logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	api.Use(requestTimeout(cfg.RequestTimeout))

	elevated := requireRoles(booking.RoleAdmin, booking.RoleSuperAdmin, booking.RoleManager)
	reservationManagers := requireRoles(booking.RoleAdmin, booking.RoleManager)
	signedIn := authenticate(deps.Tokens)

	voyages := api.Group("/voyages")
	voyages.GET("", handler.handleListVoyages)
	voyages.GET("/:id", handler.handleGetVoyage)
	voyages.POST("", signedIn, elevated, handler.handleCreateVoyage)
	voyages.PATCH("/:id", signedIn, elevated, handler.handleUpdateVoyage)
	voyages.PATCH("/:id/deactivate", signedIn, elevated, handler.handleDeactivateVoyage)

	reservations := api.Group("/reservations", signedIn)
	reservations.GET("/my-reservations", handler.handleMyReservations)
	reservations.GET("", reservationManagers, handler.handleListReservations)
	reservations.POST("", handler.handleCreateReservation)
	reservations.GET("/:id", handler.handleGetReservation)
	reservations.PUT("/:id", reservationManagers, handler.handleUpdateReservation)
	reservations.PATCH("/:id/cancel", handler.handleCancelReservation)

	api.GET("/statistic", signedIn, elevated, handler.handleStatistics)

	return router
}

func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), timeout)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(requestCtx)
		ctx.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		started := time.Now()
		ctx.Next()
		logger.Debug("http request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("latency", time.Since(started)),
		)
	}
}
