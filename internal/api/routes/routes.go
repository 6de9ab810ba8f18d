package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/securedocs/backend/internal/api/handlers"
	"github.com/securedocs/backend/internal/api/middleware"
	"github.com/securedocs/backend/internal/app"
)

func SetupRoutes(router *gin.Engine, a *app.App) {
	cfg := a.Config
	handlers.Initialize(a.Log)

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	authHandler := handlers.NewAuthHandler(a.Users, a.Ethereum, a.Entitlement, cfg)
	fileHandler := handlers.NewFileHandler(a.FileManager, a.Chunks, cfg.Storage.MaxUploadSize)
	remoteHandler := handlers.NewRemoteHandler(
		a.FileManager,
		a.Users,
		a.Ledger,
		a.Validator,
		a.Uploads,
		a.Removal,
		a.Registry,
		cfg.Blockchain.MaxMonthlyUploads,
	)
	providerHandler := handlers.NewProviderHandler(a.Registry)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		auth := v1.Group("/auth")
		{
			auth.POST("/nonce", authHandler.GenerateNonce)
			auth.POST("/verify", authHandler.VerifySignature)
			auth.GET("/status", authHandler.CheckAuthStatus)
			auth.POST("/logout", authHandler.Logout)
		}

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			files := protected.Group("/files")
			{
				files.POST("", fileHandler.Upload)
				files.GET("", fileHandler.List)
				files.GET("/:id", fileHandler.Get)
				files.DELETE("/:id", fileHandler.Trash)
				files.POST("/:id/restore", fileHandler.Restore)
				files.GET("/:id/download", fileHandler.Download)
				files.GET("/:id/attempts", remoteHandler.Attempts)

				files.GET("/:id/remote/preflight", remoteHandler.Preflight)
				files.POST("/:id/remote", remoteHandler.Upload)
				files.DELETE("/:id/remote", remoteHandler.Remove)
				files.GET("/:id/remote/download", remoteHandler.Download)
			}

			uploads := protected.Group("/uploads")
			{
				uploads.POST("", fileHandler.InitChunked)
				uploads.GET("/:uploadId", fileHandler.ChunkedStatus)
				uploads.POST("/:uploadId/chunks", fileHandler.UploadChunk)
				uploads.POST("/:uploadId/complete", fileHandler.CompleteChunked)
			}

			protected.GET("/remote/stats", remoteHandler.Stats)

			providers := protected.Group("/providers")
			{
				providers.GET("", providerHandler.List)
				providers.GET("/:name/test", providerHandler.TestConnection)
			}
		}
	}

	router.NoRoute(handlers.NotFound)
}
