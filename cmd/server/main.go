package main

import (
	"time"

	"moneta-backend/internal/config"
	"moneta-backend/internal/models"
	"moneta-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, relying on system env")
	}
	config.SetupLogger()

	db := config.InitDB()

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Card{},
		&models.Category{},
		&models.Transaction{},
		&models.ImportBatch{},
		&models.ImportRow{},
		&models.Rule{},
		&models.Alert{},
		&models.CategorizationLog{},
	); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORSOrigin()},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db)

	if err := r.Run(config.Port()); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
