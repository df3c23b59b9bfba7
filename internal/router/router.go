package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/teamhub-dev/teamhub/internal/config"
	"github.com/teamhub-dev/teamhub/internal/handlers"
	"github.com/teamhub-dev/teamhub/internal/middleware"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Config              *config.Config
	Log                 *zap.Logger
	Auth                *middleware.Authenticator
	HealthHandler       *handlers.HealthHandler
	AuthHandler         *handlers.AuthHandler
	ProjectHandler      *handlers.ProjectHandler
	TaskHandler         *handlers.TaskHandler
	InvitationHandler   *handlers.InvitationHandler
	NotificationHandler *handlers.NotificationHandler
	PushHandler         *handlers.PushHandler
	ChatHandler         *handlers.ChatHandler
	WSHandler           *handlers.WSHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ZapLogger(d.Log), middleware.Recovery(d.Log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	requireAuth := d.Auth.Require()

	api := r.Group("/api")
	{
		api.GET("/health", d.HealthHandler.HealthCheck)
		api.GET("/ws", d.WSHandler.WebSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", d.AuthHandler.Register)
			auth.POST("/login", d.AuthHandler.Login)
			auth.POST("/logout", d.AuthHandler.Logout)
			auth.POST("/forgot-password", d.AuthHandler.ForgotPassword)
			auth.POST("/reset-password/:token", d.AuthHandler.ResetPassword)

			auth.GET("/me", requireAuth, d.AuthHandler.Me)
			auth.PATCH("/me", requireAuth, d.AuthHandler.UpdateMe)
			auth.DELETE("/me", requireAuth, d.AuthHandler.DeleteMe)
			auth.POST("/change-password", requireAuth, d.AuthHandler.ChangePassword)
		}

		private := api.Group("", requireAuth)
		{
			private.GET("/dashboard/stats", d.ProjectHandler.DashboardStats)
			private.GET("/search", d.ProjectHandler.Search)

			projects := private.Group("/projects")
			{
				projects.POST("", d.ProjectHandler.CreateProject)
				projects.GET("", d.ProjectHandler.ListProjects)
				projects.GET("/:project_id", d.ProjectHandler.GetProject)
				projects.PATCH("/:project_id", d.ProjectHandler.UpdateProject)
				projects.DELETE("/:project_id", d.ProjectHandler.DeleteProject)
				projects.GET("/:project_id/progress", d.ProjectHandler.Progress)
				projects.GET("/:project_id/messages", d.ProjectHandler.Messages)

				projects.POST("/:project_id/invitations", d.InvitationHandler.Invite)
				projects.POST("/:project_id/mentors", d.InvitationHandler.RequestMentor)

				projects.GET("/:project_id/tasks", d.TaskHandler.ListTasks)
				projects.POST("/:project_id/tasks", d.TaskHandler.CreateTask)
			}

			tasks := private.Group("/tasks")
			{
				tasks.GET("/:task_id", d.TaskHandler.GetTask)
				tasks.PATCH("/:task_id", d.TaskHandler.UpdateTask)
				tasks.DELETE("/:task_id", d.TaskHandler.DeleteTask)
				tasks.POST("/:task_id/status", d.TaskHandler.UpdateStatus)
				tasks.POST("/:task_id/complete", d.TaskHandler.CompleteTask)
				tasks.POST("/:task_id/comments", d.TaskHandler.AddComment)
			}

			private.GET("/invitations", d.InvitationHandler.ListInvitations)
			private.POST("/invitations/:invitation_id/respond", d.InvitationHandler.RespondInvitation)
			private.GET("/mentor-requests", d.InvitationHandler.ListMentorRequests)
			private.POST("/mentor-requests/:request_id/respond", d.InvitationHandler.RespondMentorRequest)

			notifications := private.Group("/notifications")
			{
				notifications.GET("", d.NotificationHandler.List)
				notifications.GET("/unread-count", d.NotificationHandler.UnreadCount)
				notifications.PUT("/read-all", d.NotificationHandler.MarkAllRead)
				notifications.PUT("/:notification_id/read", d.NotificationHandler.MarkRead)
			}

			private.POST("/push-token", d.PushHandler.Register)
			private.DELETE("/push-token", d.PushHandler.Remove)

			private.GET("/chat/rooms", d.ChatHandler.Rooms)
			private.GET("/chat/global/messages", d.ChatHandler.GlobalMessages)
		}
	}

	return r
}
