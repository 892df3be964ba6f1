package routes

import (
	"github.com/gin-gonic/gin"

	"leadflow/internal/authz"
	"leadflow/internal/handlers"
	"leadflow/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	leadHandler *handlers.LeadHandler,
	dealHandler *handlers.DealHandler,
	stageHandler *handlers.StageHandler,
	settingsHandler *handlers.SettingsHandler,
	reportHandler *handlers.ReportHandler,
) *gin.Engine {

	// ---- public
	r.POST("/login", authHandler.Login)
	r.POST("/refresh", authHandler.RefreshToken)
	r.POST("/register", userHandler.Register)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	// ---- protected
	r.Use(middleware.AuthMiddleware())
	r.POST("/logout", authHandler.Logout) // before the guard: audit may log out
	r.Use(middleware.ReadOnlyGuard())

	// USERS
	users := r.Group("/users")
	{
		users.POST("/", userHandler.CreateUser)
		users.GET("/", userHandler.ListUsers)
		users.GET("/count", userHandler.GetUserCount)
		users.GET("/:id", userHandler.GetUserByID)
		users.PUT("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)
	}

	// LEADS
	leads := r.Group("/leads")
	{
		leads.POST("/", leadHandler.Create)
		leads.GET("/", leadHandler.List)
		leads.GET("/:id", leadHandler.GetByID)
		leads.PUT("/:id", leadHandler.Update)
		leads.DELETE("/:id", leadHandler.Delete)
		leads.POST("/:id/stage", leadHandler.UpdateStage)
		leads.POST("/:id/assign", leadHandler.Assign)
		leads.PUT("/:id/convert", leadHandler.ConvertToDeal)
	}

	// DEALS
	deals := r.Group("/deals")
	{
		deals.GET("/", dealHandler.List)
		deals.GET("/:id", dealHandler.GetByID)
		deals.PUT("/:id", dealHandler.Update)
		deals.DELETE("/:id", dealHandler.Delete)
		deals.POST("/:id/stage", dealHandler.UpdateStage)
	}

	// STAGES (reads open, writes management/admin)
	stages := r.Group("/stages")
	{
		stages.GET("/", stageHandler.List)

		writes := stages.Group("", middleware.RequireRoles(authz.RoleManagement, authz.RoleAdmin))
		{
			writes.POST("/", stageHandler.Create)
			writes.PUT("/:id", stageHandler.Update)
			writes.DELETE("/:id", stageHandler.Delete)
			writes.POST("/:id/deactivate", stageHandler.Deactivate)
			writes.POST("/:id/role", stageHandler.MarkRole)
			writes.POST("/import-roles", stageHandler.ImportLegacyRoles)
		}
	}

	// SETTINGS (management/admin)
	settings := r.Group("/settings", middleware.RequireRoles(authz.RoleManagement, authz.RoleAdmin))
	{
		settings.GET("/round-robin", settingsHandler.GetRoundRobin)
		settings.PUT("/round-robin", settingsHandler.PutRoundRobin)
		settings.GET("/round-robin/state", settingsHandler.GetState)
		settings.GET("/round-robin/assignments", settingsHandler.ListAssignments)
	}

	// REPORTS (audit/ops/mgmt/admin)
	reports := r.Group("/reports",
		middleware.RequireRoles(authz.RoleAudit, authz.RoleOperations, authz.RoleManagement, authz.RoleAdmin),
	)
	{
		reports.GET("/conversion", reportHandler.GetConversion)
		reports.GET("/conversion/pdf", reportHandler.GetConversionPDF)
		reports.GET("/leads/filter", reportHandler.FilterLeads)
	}

	return r
}
