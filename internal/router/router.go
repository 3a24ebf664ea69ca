package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/aldr/autonomi-service/internal/handler"
	"github.com/aldr/autonomi-service/internal/middleware"
)

// Options carries the optional pieces of the HTTP stack.  Zero values
// leave the corresponding feature off.
type Options struct {
	Log     *zap.Logger
	Metrics *middleware.Metrics   // exposes GET /metrics when set
	Cache   echo.MiddlewareFunc   // applied to record lookups only
	Global  []echo.MiddlewareFunc // e.g. rate limiting
}

// New builds the Echo instance with validation, logging and the record
// routes registered.
func New(records *handler.RecordHandler, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.JSONSerializer = handler.NewStrictJSONSerializer()

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	if opts.Metrics != nil {
		e.Use(opts.Metrics.Middleware())
		e.GET("/metrics", opts.Metrics.Handler())
	}
	e.Use(opts.Global...)

	RegisterRoutes(e)
	RegisterRecords(e, records, opts.Cache)
	return e
}

// RegisterRoutes registers routes that carry no record semantics.
// At the moment it only exposes the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.Health)
}

// RegisterRecords maps the record endpoints.  Lookups may be cached:
// records are content addressed and never change once stored.
// "/records/" is registered explicitly so an empty id reaches GetRecord.
func RegisterRecords(e *echo.Echo, h *handler.RecordHandler, cache echo.MiddlewareFunc) {
	var lookup []echo.MiddlewareFunc
	if cache != nil {
		lookup = append(lookup, cache)
	}
	e.POST("/records", h.StoreRecord)
	e.GET("/records", h.ListRecords)
	e.GET("/records/", h.GetRecord, lookup...)
	e.GET("/records/:id", h.GetRecord, lookup...)
}
