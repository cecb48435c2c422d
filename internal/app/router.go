package app

import (
	"tp_portal_backend/docs"
	"tp_portal_backend/internal/middleware"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// 1. public
	a.registerPublicRoutes(router, c)

	// 2. signed in, any role
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(a.Config, a.services.auth))
	{
		a.registerAccountRoutes(authGroup, c)
		a.registerStudentRoutes(authGroup, c)
		a.registerSupervisorRoutes(authGroup, c)
		a.registerCoordinatorRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		auth := public.Group("/auth")
		auth.POST("/signup", c.auth.SignUp)
		auth.POST("/signin", c.auth.SignIn)
		auth.POST("/admin/signin", c.auth.AdminSignIn)

		public.GET("/contact/whatsapp", c.contact.WhatsApp)
	}
}

func (a *App) registerAccountRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/auth/signout", c.auth.SignOut)

	rg.GET("/profile", c.profile.GetProfile)
	rg.PUT("/profile/name", c.profile.UpdateName)
	rg.POST("/profile/photo", c.profile.UploadPhoto)
	rg.PUT("/profile/password", c.profile.ChangePassword)
	rg.DELETE("/profile", c.profile.DeleteAccount)

	rg.GET("/welcome", c.profile.Welcome)
	rg.POST("/welcome/ack", c.profile.AckWelcome)

	notifications := rg.Group("/notifications")
	{
		notifications.GET("", c.notification.ListUnread)
		notifications.GET("/popup", c.notification.Popup)
		notifications.GET("/ws", c.notification.Stream)
		notifications.POST("/:id/read", c.notification.MarkRead)
		notifications.POST("/:id/shown", c.notification.MarkShown)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("/student")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.PUT("/school", c.student.SaveSchool)
		student.GET("/approvals", c.student.Approvals)
		student.GET("/congratulation", c.student.Congratulation)
		student.POST("/congratulation/ack", c.student.AckCongratulation)
		student.GET("/certificate", c.student.Certificate)
		student.POST("/reviews", c.student.SubmitReview)
	}
}

func (a *App) registerSupervisorRoutes(rg *gin.RouterGroup, c *controllers) {
	supervisor := rg.Group("/supervisor")
	supervisor.Use(middleware.RoleMiddleware(model.Supervisor))
	{
		supervisor.GET("/students", c.supervisor.Students)
		supervisor.PUT("/students/:id/score", c.supervisor.SetScore)
		supervisor.POST("/students/:id/remind", c.supervisor.Remind)
		supervisor.GET("/approvals", c.supervisor.Approvals)
		supervisor.POST("/approvals/:id/decision", c.supervisor.Decide)
		supervisor.GET("/reviews", c.supervisor.Reviews)
	}
}

func (a *App) registerCoordinatorRoutes(rg *gin.RouterGroup, c *controllers) {
	coordinator := rg.Group("/coordinator")
	coordinator.Use(middleware.RoleMiddleware(model.Coordinator))
	{
		coordinator.GET("/dashboard", c.coordinator.Dashboard)
		coordinator.GET("/export", c.coordinator.Export)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/codes", c.admin.IssueCode)
		admin.GET("/codes", c.admin.ListCodes)

		admin.POST("/registration-numbers", c.admin.AddRegistrationNumber)
		admin.GET("/registration-numbers", c.admin.ListRegistrationNumbers)
		admin.DELETE("/registration-numbers", c.admin.DeleteRegistrationNumber)
		admin.POST("/registration-numbers/import", c.admin.ImportRegistrationNumbers)

		admin.GET("/users", c.admin.ListUsers)
		admin.GET("/analytics", c.admin.Analytics)
		admin.DELETE("/users/:id", c.admin.DeleteUser)
		admin.POST("/users/:id/suspend", c.admin.ToggleSuspend)
	}
}
