package router

import (
	"github.com/gin-gonic/gin"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/interfaces/http/handler"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// EscrowRoutes registers the escrow ledger endpoints
type EscrowRoutes struct {
	Handler *handler.EscrowHandler
}

// RegisterRoutes implements RouteRegistrar
func (e *EscrowRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	escrow := rg.Group("/escrow")
	{
		escrow.GET("/orders/:order_id", e.Handler.GetByOrder)
		escrow.POST("/orders/:order_id", e.Handler.CreateForOrder)
		escrow.POST("/shipments/:shipment_id/eligible", e.Handler.MarkEligible)
		escrow.POST("/shipments/:shipment_id/refund", e.Handler.RefundShipment)
	}
}

// PayoutRoutes registers the seller payout endpoints
type PayoutRoutes struct {
	Handler *handler.PayoutHandler
}

// RegisterRoutes implements RouteRegistrar
func (p *PayoutRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	payouts := rg.Group("/payouts")
	{
		payouts.POST("/schedule", p.Handler.Schedule)
		payouts.POST("/run-due", p.Handler.RunDue)
		payouts.POST("/retry-failed", p.Handler.RetryFailed)
		payouts.GET("/:id", p.Handler.GetByID)
		payouts.POST("/:id/process", p.Handler.Process)
	}
	rg.GET("/stores/:store_id/payouts", p.Handler.ListByStore)
	rg.GET("/stores/:store_id/payouts/summary", p.Handler.GetStoreSummary)
}

// SettlementRoutes registers the monthly settlement endpoints
type SettlementRoutes struct {
	Handler *handler.SettlementHandler
}

// RegisterRoutes implements RouteRegistrar
func (s *SettlementRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	settlements := rg.Group("/settlements")
	{
		settlements.POST("/generate", s.Handler.Generate)
		settlements.GET("/export/:year/:month", s.Handler.ExportPeriod)
		settlements.GET("/:id", s.Handler.GetByID)
		settlements.POST("/:id/finalize", s.Handler.Finalize)
		settlements.POST("/:id/approve", s.Handler.Approve)
		settlements.POST("/:id/adjustments", s.Handler.AddAdjustment)
	}
	rg.GET("/stores/:store_id/settlements", s.Handler.ListByStore)
}

// CommissionRoutes registers the commission rule and reporting endpoints
type CommissionRoutes struct {
	Handler *handler.CommissionHandler
}

// RegisterRoutes implements RouteRegistrar
func (c *CommissionRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	commission := rg.Group("/commission")
	{
		commission.POST("/rules", c.Handler.CreateRule)
		commission.DELETE("/rules/:id", c.Handler.DeactivateRule)
		commission.GET("/stores/:store_id/summary/:year/:month", c.Handler.GetSummary)
		commission.GET("/stores/:store_id/drilldown/:year/:month", c.Handler.GetDrillDown)
	}
}

// SystemRoutes registers the system endpoints
type SystemRoutes struct {
	Handler *handler.SystemHandler
}

// RegisterRoutes implements RouteRegistrar
func (s *SystemRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/info", s.Handler.GetSystemInfo)
		system.GET("/ping", s.Handler.Ping)
	}
}
