package router

import (
	"time"

	"kontas/api"
	"kontas/config"
	_ "kontas/docs"
	"kontas/middleware"
	"kontas/models"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 路由组
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerMinute, time.Minute))
	{
		// 认证相关路由（无需登录）
		authHandler := api.NewAuthHandler(cfg)
		passwordResetHandler := api.NewPasswordResetHandler(cfg)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			// 登录单独限流，防止暴力破解
			auth.POST("/login", middleware.RateLimit(5, time.Minute), authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)

			// 密码重置
			auth.POST("/password/request-reset", passwordResetHandler.RequestReset)
			auth.POST("/password/verify-code", passwordResetHandler.VerifyCode)
			auth.POST("/password/reset", passwordResetHandler.ResetPassword)
		}

		// 需要 JWT 认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			// 用户相关
			userHandler := api.NewUserHandler()
			authorized.GET("/auth/profile", authHandler.GetProfile)
			authorized.PUT("/auth/password", authHandler.ChangePassword)
			authorized.PUT("/users/profile", userHandler.UpdateProfile)
			authorized.GET("/users/:id", userHandler.GetUser)

			// 分类相关（查询对所有登录用户开放）
			categoryHandler := api.NewCategoryHandler()
			categories := authorized.Group("/categories")
			{
				categories.GET("", categoryHandler.ListCategories)
				categories.GET("/:id", categoryHandler.GetCategory)
				categories.GET("/type/:type", categoryHandler.GetCategoriesByType)
				categories.GET("/:id/stats", categoryHandler.GetCategoryStats)
			}

			// 账户/卡片相关
			accountHandler := api.NewCardAccountHandler()
			accounts := authorized.Group("/card-accounts")
			{
				accounts.POST("", accountHandler.CreateCardAccount)
				accounts.GET("", accountHandler.ListCardAccounts)
				accounts.GET("/user/:user_id", accountHandler.GetCardAccountsByUser)
				accounts.GET("/user/:user_id/summary", accountHandler.GetUserAccountSummary)
				accounts.GET("/type/:type", accountHandler.GetCardAccountsByType)
				accounts.GET("/:id", accountHandler.GetCardAccount)
				accounts.PUT("/:id", accountHandler.UpdateCardAccount)
				accounts.PATCH("/:id/toggle-status", accountHandler.ToggleCardAccountStatus)
				accounts.DELETE("/:id", accountHandler.DeleteCardAccount)
				accounts.GET("/:id/stats", accountHandler.GetCardAccountStats)
			}

			// 支出相关
			expenseHandler := api.NewExpenseHandler()
			expenses := authorized.Group("/expenses")
			{
				expenses.POST("", expenseHandler.CreateExpense)
				expenses.GET("", expenseHandler.ListExpenses)
				expenses.GET("/date-range", expenseHandler.GetExpensesByDateRange)
				expenses.GET("/amount-range", expenseHandler.GetExpensesByAmountRange)
				expenses.GET("/user/:user_id", expenseHandler.GetExpensesByUser)
				expenses.GET("/user/:user_id/summary", expenseHandler.GetUserExpenseSummary)
				expenses.GET("/category/:category_id", expenseHandler.GetExpensesByCategory)
				expenses.GET("/:id", expenseHandler.GetExpense)
				expenses.PUT("/:id", expenseHandler.UpdateExpense)
				expenses.DELETE("/:id", expenseHandler.DeleteExpense)
				expenses.GET("/:id/stats", expenseHandler.GetExpenseStats)
			}

			// 收入相关
			incomeHandler := api.NewIncomeHandler()
			incomes := authorized.Group("/incomes")
			{
				incomes.POST("", incomeHandler.CreateIncome)
				incomes.GET("", incomeHandler.ListIncomes)
				incomes.GET("/:id", incomeHandler.GetIncome)
				incomes.PUT("/:id", incomeHandler.UpdateIncome)
				incomes.DELETE("/:id", incomeHandler.DeleteIncome)
			}

			// 导出相关
			exportHandler := api.NewExportHandler()
			export := authorized.Group("/export")
			{
				export.GET("/csv", exportHandler.ExportCSV)
				export.GET("/json", exportHandler.ExportJSON)
				export.GET("/excel", exportHandler.ExportExcel)
			}

			// 管理员专属路由
			admin := authorized.Group("")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.GET("/users", userHandler.ListUsers)
				admin.POST("/categories", categoryHandler.CreateCategory)
				admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
				admin.PATCH("/categories/:id/toggle-status", categoryHandler.ToggleCategoryStatus)
				admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)
				admin.POST("/system/email/test", passwordResetHandler.SendTestEmail)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
