package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "moneta-backend/internal/handlers"
	"moneta-backend/internal/repository"
	"moneta-backend/internal/services/alerts"
	"moneta-backend/internal/services/importer"
	"moneta-backend/internal/services/rules"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB) {
	accountRepo := repository.NewAccountRepository(db)
	cardRepo := repository.NewCardRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	importRepo := repository.NewImportRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	ruleRepo := repository.NewRuleRepository(db)

	ruleService := rules.NewRuleService(ruleRepo, txnRepo, accountRepo, categoryRepo)
	notifier := alerts.NewNotifier(db)
	importService := importer.NewImportService(
		importRepo,
		txnRepo,
		accountRepo,
		cardRepo,
		categoryRepo,
		ruleService,
		notifier,
	)

	importHandler := handler.NewImportHandler(importService)
	ruleHandler := handler.NewRuleHandler(ruleService)
	catalogHandler := handler.NewCatalogHandler(accountRepo, cardRepo, categoryRepo)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api.Use(handler.RequireUser())

	// Import pipeline routes
	imports := api.Group("/import")
	imports.POST("/csv", importHandler.Upload)
	imports.GET("/batches", importHandler.ListBatches)
	imports.GET("/batches/:id", importHandler.GetBatch)
	imports.GET("/batches/:id/rows", importHandler.ListRows)
	imports.POST("/batches/:id/commit", importHandler.Commit)
	imports.DELETE("/batches/:id", importHandler.DeleteBatch)

	// Rule routes
	ruleGroup := api.Group("/rules")
	ruleGroup.POST("", ruleHandler.Create)
	ruleGroup.GET("", ruleHandler.List)
	ruleGroup.GET("/:id", ruleHandler.Get)
	ruleGroup.PUT("/:id", ruleHandler.Update)
	ruleGroup.DELETE("/:id", ruleHandler.Delete)
	ruleGroup.POST("/apply", ruleHandler.Apply)

	// Catalog routes the importer resolves names against
	api.POST("/accounts", catalogHandler.CreateAccount)
	api.GET("/accounts", catalogHandler.ListAccounts)
	api.POST("/cards", catalogHandler.CreateCard)
	api.GET("/cards", catalogHandler.ListCards)
	api.POST("/categories", catalogHandler.CreateCategory)
	api.GET("/categories", catalogHandler.ListCategories)
}
