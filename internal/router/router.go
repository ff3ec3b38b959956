package router

import (
	"net/http"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/config"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/handler"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/metrics"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// GovernanceSecretHeader 治理回调携带的共享密钥
const GovernanceSecretHeader = "X-Governance-Secret"

// Handlers 路由依赖的全部处理器
type Handlers struct {
	Flow         *handler.FlowHandler
	Contribution *handler.ContributionHandler
	Notification *handler.NotificationHandler
	Update       *handler.UpdateHandler
	User         *handler.UserHandler
	Media        *handler.MediaHandler
	Governance   *handler.GovernanceHandler
}

func Setup(cfg *config.Config, h Handlers, tokens *middleware.TokenManager, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(gin.Recovery())
	r.Use(middleware.Observe())
	r.Use(corsMiddleware(cfg.Server.Cors))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "titaflow-service",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := middleware.JWT(tokens)
	write := limiter.Handler()

	// API版本组
	v1 := r.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/challenge", write, h.User.Challenge)
			authGroup.POST("/verify", write, h.User.Verify)
		}

		flows := v1.Group("/flows")
		{
			flows.POST("", auth, write, h.Flow.CreateFlow)
			flows.GET("/:id", h.Flow.GetFlow)
			flows.POST("/:id/cancel", auth, write, h.Flow.CancelFlow)
			flows.GET("/:id/contributions", h.Contribution.GetFlowContributions)
			flows.POST("/:id/contributions", auth, write, h.Contribution.RecordContribution)
			flows.GET("/:id/updates", h.Update.ListUpdates)
			flows.POST("/:id/updates", auth, write, h.Update.PostUpdate)
		}

		updates := v1.Group("/updates")
		{
			updates.GET("/:id/comments", h.Update.ListComments)
			updates.POST("/:id/comments", auth, write, h.Update.PostComment)
		}

		users := v1.Group("/users")
		{
			users.GET("/me", auth, h.User.GetMe)
			users.PUT("/me", auth, write, h.User.UpdateMe)
			users.POST("/me/wallet", auth, write, h.User.LinkWallet)
			users.GET("/me/analytics", auth, h.Flow.GetMyAnalytics)
			users.GET("/me/contributions", auth, h.Contribution.GetMyContributions)
			users.GET("/:id", h.User.GetUser)
			users.GET("/:id/flows", h.Flow.ListUserFlows)
		}

		notifications := v1.Group("/notifications", auth)
		{
			notifications.GET("", h.Notification.ListNotifications)
			notifications.GET("/stream", h.Notification.Stream)
			notifications.PATCH("/:id/read", write, h.Notification.MarkRead)
			notifications.POST("/read-all", write, h.Notification.MarkAllRead)
			notifications.DELETE("/:id", write, h.Notification.DeleteNotification)
			notifications.DELETE("", write, h.Notification.ClearNotifications)
		}

		media := v1.Group("/media", auth, write)
		{
			media.POST("/flow", h.Media.UploadFlowMedia)
			media.POST("/user", h.Media.UploadUserFile)
		}

		v1.POST("/governance/events",
			middleware.SharedSecret(GovernanceSecretHeader, cfg.Auth.GovernanceSecret),
			h.Governance.ReceiveEvent)
	}

	return r
}

// corsMiddleware origins 包含 "*" 或为空时允许任意来源
func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", GovernanceSecretHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}
