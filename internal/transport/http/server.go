package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	appsvc "savora/internal/app"
	"savora/internal/bootstrap"
	"savora/internal/transport/http/handler"
	"savora/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	bodyLimit := app.Config.MaxUploadBytes() + 1<<20
	router.MaxMultipartMemory = bodyLimit
	router.Use(middleware.RequestLogger(app.Log), middleware.Recovery(app.Log), middleware.BodyLimit(bodyLimit))
	router.Use(cors.New(corsConfig(app.Config.CORS.AllowOrigins)))

	log := app.Log
	images := appsvc.NewImageService(app.Images, app.CleanupQueue, app.Config.MaxUploadBytes(), log).
		WithProcessor(app.ImageProcessor)
	authService := appsvc.NewAuthService(
		app.Users,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
		app.Config.Auth.BcryptCost,
		log,
	)
	recipeService := appsvc.NewRecipeService(app.Recipes, app.RecipeCache, images, log)
	userService := appsvc.NewUserService(app.Users, app.Recipes, app.RecipeCache, images, log)

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(authService, log)
	userHandler := handler.NewUserHandler(userService, log)
	recipeHandler := handler.NewRecipeHandler(recipeService, log)
	requireAuth := middleware.AuthJWT(authService)

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to SAVORA")
	})
	router.GET("/healthz", healthHandler.Check)
	if app.LocalImages != nil {
		router.Static(app.LocalImages.Prefix(), app.LocalImages.Dir())
	}

	userGroup := router.Group("/user")
	userGroup.POST("/register", authHandler.Register)
	if app.LoginRateLimit != nil {
		userGroup.POST("/login", middleware.LoginRateLimit(app.LoginRateLimit, log), authHandler.Login)
	} else {
		userGroup.POST("/login", authHandler.Login)
	}
	userGroup.GET("/me", requireAuth, userHandler.Me)
	userGroup.PATCH("/me", requireAuth, userHandler.UpdateMe)
	userGroup.DELETE("/me", requireAuth, userHandler.DeleteMe)

	recipeGroup := router.Group("/recipes")
	recipeGroup.GET("", recipeHandler.List)
	recipeGroup.GET("/:id", recipeHandler.Get)
	recipeGroup.POST("", requireAuth, recipeHandler.Create)
	recipeGroup.PUT("/:id", requireAuth, recipeHandler.Update)
	recipeGroup.DELETE("/:id", requireAuth, recipeHandler.Delete)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.TokenHeader}
	cfg.ExposeHeaders = []string{middleware.TokenHeader}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
