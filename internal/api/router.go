package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bmbroch/payops/internal/db"
	"github.com/bmbroch/payops/internal/recon"
	"github.com/bmbroch/payops/internal/report"
	"github.com/bmbroch/payops/pkg/logging"
)

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	store   *db.Store
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(store *db.Store, engine *recon.Engine, aggregator *report.Aggregator) *Router {
	handler := NewJSONRPCHandler()
	router := &Router{
		handler: handler,
		store:   store,
		logger:  logging.GetLogger().With(zap.String("component", "api-router")),
	}

	router.registerMethods(engine, aggregator)

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// JSON-RPC endpoint
	engine.POST("/", r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods(engine *recon.Engine, aggregator *report.Aggregator) {
	reports := NewReportAPI(aggregator)
	reconcile := NewReconcileAPI(engine, r.store, aggregator)
	posts := NewPostAPI(r.store)

	// Creator listing API
	r.handler.RegisterMethod("payops.list_creators", reports.ListCreators)
	r.handler.RegisterMethod("payops.get_creator", reports.GetCreator)
	r.handler.RegisterMethod("payops.org_totals", reports.OrgTotals)

	// Reconciliation API
	r.handler.RegisterMethod("payops.available_posts", reconcile.AvailablePosts)
	r.handler.RegisterMethod("payops.preview_selection", reconcile.PreviewSelection)
	r.handler.RegisterMethod("payops.save_reconciliation", reconcile.SaveReconciliation)
	r.handler.RegisterMethod("payops.undo_reconciliation", reconcile.UndoReconciliation)

	// Post admin API
	r.handler.RegisterMethod("payops.set_views_lock", posts.SetViewsLock)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "payops-api",
	})
}
