package routes

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/controllers"
	"github.com/cppla/inkblog/middleware"
	"github.com/cppla/inkblog/templates"
	"github.com/cppla/inkblog/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.RequestID())
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err == nil {
		r.Use(ginzap.GinzapWithConfig(gl, &ginzap.Config{
			TimeFormat: time.RFC3339,
			UTC:        true,
			Context:    utils.RequestIDFields,
		}))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		r.Use(gin.Recovery())
	}

	r.SetHTMLTemplate(template.Must(templates.Load()))
	// Record PV after each request
	r.Use(middleware.PageViewRecorder(db))

	blogController := controllers.NewBlogController(db)
	adminController := controllers.NewAdminController(db)
	statsController := controllers.NewStatsController(db)

	r.GET("/", func(ctx *gin.Context) {
		ctx.Redirect(http.StatusMovedPermanently, "/blog/")
	})

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	blog := r.Group("/blog")
	if cfg.GzipEnabled {
		blog.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	blog.GET("/", blogController.PostList)
	blog.GET("/:id/", blogController.PostDetail)

	api := r.Group("/api/v1")
	api.Use(cors.New(corsConfig(cfg)))
	api.GET("/posts", blogController.APIListPosts)
	api.GET("/posts/:id", blogController.APIGetPost)
	api.GET("/stats", statsController.GetStats)

	loginLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	adminGroup := r.Group("/admin")
	adminGroup.POST("/login", loginLimiter.Middleware(), adminController.Login)

	protected := adminGroup.Group("")
	protected.Use(middleware.AdminRequired(db))
	protected.POST("/logout", adminController.Logout)
	protected.GET("/posts", adminController.ListPosts)
	protected.POST("/posts", adminController.CreatePost)
	protected.GET("/posts/slugify", adminController.Slugify)
	protected.GET("/posts/:id", adminController.GetPost)
	protected.PUT("/posts/:id", adminController.UpdatePost)
	protected.GET("/users/lookup", adminController.LookupUsers)
	protected.POST("/users", adminController.CreateUser)
	protected.DELETE("/users/:id", adminController.DeleteUser)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/admin/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
			return
		}
		controllers.RenderNotFound(ctx)
	})

	return r
}

func corsConfig(cfg config.AppConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type"},
		ExposeHeaders: []string{"Content-Length", utils.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	return corsCfg
}
