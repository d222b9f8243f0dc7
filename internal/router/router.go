package router

import (
	"time"

	"shopcore/internal/config"
	"shopcore/internal/handler"
	"shopcore/internal/middleware"
	"shopcore/internal/mining"
	"shopcore/internal/repository"
	"shopcore/internal/service"
	"shopcore/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher, trigger *worker.RecomputeTrigger) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	recommendationRepo := repository.NewRecommendationRepository(db)
	userRepo := repository.NewUserRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	productSvc := service.NewProductService(productRepo, categoryRepo, supplierRepo, movementRepo)
	categorySvc := service.NewCategoryService(categoryRepo)
	supplierSvc := service.NewSupplierService(supplierRepo)
	cartSvc := service.NewCartService(cartRepo, productRepo, saleRepo, movementRepo, dispatcher, trigger)
	orderSvc := service.NewOrderService(orderRepo, productRepo, movementRepo)
	saleSvc := service.NewSaleService(saleRepo, productRepo, movementRepo, dispatcher, trigger)
	recommendationSvc := service.NewRecommendationService(
		saleRepo,
		productRepo,
		mining.Thresholds{MinSupport: cfg.MinSupport, MinConfidence: cfg.MinConfidence},
		cfg.MaxRecommendations,
	)
	associationSvc := service.NewAssociationService(recommendationRepo, orderRepo, productRepo)
	userSvc := service.NewUserService(userRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	productsH := handler.NewProductsHandler(productSvc)
	categoriesH := handler.NewCategoriesHandler(categorySvc)
	suppliersH := handler.NewSuppliersHandler(supplierSvc)
	cartsH := handler.NewCartsHandler(cartSvc)
	ordersH := handler.NewOrdersHandler(orderSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	recommendationsH := handler.NewRecommendationsHandler(recommendationSvc, associationSvc, cartSvc, dispatcher)
	usersH := handler.NewUsersHandler(userSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb))

	v1 := r.Group("/v1")
	{
		products := v1.Group("/products")
		{
			products.POST("", productsH.Create)
			products.GET("", productsH.List)
			products.GET("/:id", productsH.Get)
			products.PUT("/:id", productsH.Update)
			products.DELETE("/:id", productsH.Delete)
			products.PATCH("/:id/reactivate", productsH.Reactivate)
			products.PATCH("/:id/stock", productsH.AdjustStock)
			products.GET("/:id/movements", productsH.StockMovements)
			products.GET("/:id/recommendations", recommendationsH.ForProduct)
			products.GET("/:id/associations", recommendationsH.ListAssociations)
		}

		categories := v1.Group("/categories")
		{
			categories.POST("", categoriesH.Create)
			categories.GET("", categoriesH.List)
			categories.GET("/:id", categoriesH.Get)
			categories.PUT("/:id", categoriesH.Update)
			categories.DELETE("/:id", categoriesH.Delete)
		}

		suppliers := v1.Group("/suppliers")
		{
			suppliers.POST("", suppliersH.Create)
			suppliers.GET("", suppliersH.List)
			suppliers.GET("/:id", suppliersH.Get)
			suppliers.PUT("/:id", suppliersH.Update)
			suppliers.DELETE("/:id", suppliersH.Delete)
		}

		v1.POST("/users", usersH.Create)
		users := v1.Group("/users/:user_id")
		{
			users.GET("", usersH.Get)
			users.GET("/cart", cartsH.GetActive)
			users.POST("/cart/items", cartsH.AddItem)
			users.GET("/recommendations", recommendationsH.ListForUser)
			users.POST("/recommendations/generate", recommendationsH.GenerateForUser)
		}

		carts := v1.Group("/carts")
		{
			carts.GET("/:id", cartsH.Get)
			carts.PATCH("/items/:item_id", cartsH.UpdateItem)
			carts.DELETE("/items/:item_id", cartsH.RemoveItem)
			carts.POST("/:id/save", cartsH.Save)
			carts.POST("/:id/reactivate", cartsH.Reactivate)
			carts.POST("/:id/abandon", cartsH.Abandon)
			carts.POST("/:id/checkout", cartsH.Checkout)
			carts.GET("/:id/recommendations", recommendationsH.ForCart)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("", ordersH.Create)
			orders.GET("", ordersH.List)
			orders.GET("/:id", ordersH.Get)
			orders.PATCH("/:id/status", ordersH.UpdateStatus)
		}

		sales := v1.Group("/sales")
		{
			sales.POST("", salesH.Record)
			sales.GET("", salesH.List)
			sales.GET("/:id", salesH.Get)
		}

		associations := v1.Group("/associations")
		{
			associations.POST("", recommendationsH.CreateAssociation)
			associations.POST("/rebuild", recommendationsH.RebuildAssociations)
		}

		v1.PATCH("/recommendations/:id/viewed", recommendationsH.MarkViewed)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
