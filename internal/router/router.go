package router

import (
	"time"

	"github.com/tipatpati/golden-phone-management-sub010/internal/config"
	"github.com/tipatpati/golden-phone-management-sub010/internal/handler"
	"github.com/tipatpati/golden-phone-management-sub010/internal/middleware"
	"github.com/tipatpati/golden-phone-management-sub010/internal/notify"
	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"
	"github.com/tipatpati/golden-phone-management-sub010/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, channel notify.Channel) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	soldUnitRepo := repository.NewSoldUnitRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	stockEntryRepo := repository.NewStockEntryRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	stockQuery := service.NewStockQuery(productRepo, unitRepo)
	saleSvc := service.NewSaleService(productRepo, unitRepo, saleRepo, soldUnitRepo, movementRepo, stockQuery, channel)
	checker := service.NewIntegrityChecker(productRepo, unitRepo, soldUnitRepo, saleRepo, movementRepo)
	repairSvc := service.NewRepairService(checker, productRepo, unitRepo, saleRepo, movementRepo,
		service.RepairPolicy{OrphanAction: cfg.OrphanRepairAction})
	syncSvc := service.NewSyncService(productRepo, unitRepo, supplierRepo, stockEntryRepo, movementRepo, channel)

	// ── Handlers ─────────────────────────────────────────────────────────────
	salesH := handler.NewSalesHandler(saleSvc)
	stockH := handler.NewStockHandler(stockQuery)
	integrityH := handler.NewIntegrityHandler(checker, repairSvc)
	syncH := handler.NewSyncHandler(supplierRepo, syncSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb))

	v1 := r.Group("/v1")
	{
		v1.POST("/sales", salesH.Commit)
		v1.GET("/sales/:id", salesH.Get)
		v1.PATCH("/sales/:id/items/:itemID", salesH.UpdateItem)
		v1.POST("/sales/:id/finalize", salesH.Finalize)
		v1.DELETE("/sales/:id", salesH.Cancel)

		v1.GET("/stock", stockH.Effective)

		v1.POST("/integrity/check", integrityH.Check)
		v1.POST("/integrity/repair", integrityH.Repair)

		v1.POST("/sync/items", syncH.SyncItem)
		v1.POST("/sync/transactions/:id", syncH.SyncTransaction)
	}

	return r
}
