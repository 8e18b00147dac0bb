package routes

import (
	"net/http"

	"spa-backoffice/config"
	"spa-backoffice/controllers"
	"spa-backoffice/metrics"
	"spa-backoffice/services"
	"spa-backoffice/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires every endpoint. reminder may be nil when message
// delivery is not configured.
func SetupRouter(cfg config.Config, reminder *services.SessionReminder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "If-None-Match"},
		ExposeHeaders:    []string{"Content-Length", "ETag", "X-Refresh-After", "Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.MetricsEnabled {
		metrics.Register()
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authRequired := utils.AuthMiddleware(cfg.JWTSecret)

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(authRequired)
		auth.GET("/me", controllers.Me)

		// Settings routes
		profile := auth.Group("/profile")
		{
			profile.GET("", controllers.GetProfile)
			profile.PUT("", controllers.UpdateProfile)
			profile.PUT("/password", controllers.ChangePassword)
		}
	}

	api := r.Group("/api")
	api.Use(authRequired)
	{
		catalog := api.Group("/services")
		{
			catalog.POST("", controllers.CreateService)
			catalog.GET("", controllers.GetServices)
			catalog.GET("/:id", controllers.GetService)
			catalog.PUT("/:id", controllers.UpdateService)
			catalog.DELETE("/:id", controllers.DeleteService)
		}

		memberships := api.Group("/memberships")
		{
			memberships.POST("", controllers.CreateMembershipPlan)
			memberships.GET("", controllers.GetMembershipPlans)
			memberships.GET("/:id", controllers.GetMembershipPlan)
			memberships.PUT("/:id", controllers.UpdateMembershipPlan)
			memberships.DELETE("/:id", controllers.DeleteMembershipPlan)
		}

		clients := api.Group("/clients")
		{
			clients.POST("", controllers.CreateClient)
			clients.GET("", controllers.GetClients)
			clients.GET("/:id", controllers.GetClient)
			clients.PUT("/:id", controllers.UpdateClient)
			clients.DELETE("/:id", controllers.DeleteClient)
		}

		staff := api.Group("/staff")
		{
			staff.POST("", controllers.CreateStaff)
			staff.GET("", controllers.GetStaff)
			staff.PUT("/:id", controllers.UpdateStaff)
			staff.DELETE("/:id", controllers.DeleteStaff)
		}

		bills := api.Group("/bills")
		{
			bills.POST("", controllers.CreateBill)
			bills.GET("", controllers.GetBills)
			bills.GET("/:id", controllers.GetBill)
			bills.PUT("/:id", controllers.UpdateBill)
			bills.DELETE("/:id", controllers.DeleteBill)
		}

		usages := api.Group("/service-usages")
		{
			usages.POST("", controllers.LogServiceUsage)
			usages.GET("", controllers.GetServiceUsages)
			usages.PUT("/:id", controllers.UpdateServiceUsage)
			usages.DELETE("/:id", controllers.DeleteServiceUsage)
		}

		purchases := api.Group("/membership-purchases")
		{
			purchases.GET("", controllers.GetMembershipPurchases)
			purchases.GET("/:id", controllers.GetMembershipPurchase)
		}

		// Dashboard and reports
		reportController := controllers.ReportController{}
		api.GET("/dashboard", controllers.GetDashboardOverview)
		api.GET("/reports", reportController.GetReportAnalytics)
		api.GET("/reports/export", controllers.ExportReport)

		api.GET("/notifications", controllers.GetNotificationLogs)
		api.POST("/reminders/run", controllers.RunReminders(reminder))
	}

	return r
}
