package api

import (
	"net/http"

	"bugalou/internal/automation"
	"bugalou/internal/config"
	"bugalou/internal/database"
	"bugalou/internal/webhook"
	"bugalou/internal/ws"

	"github.com/gin-gonic/gin"
)

// Server holds the dependencies of the HTTP surface.
type Server struct {
	Config     *config.Config
	Store      *database.Store
	Engine     *automation.Engine
	Dispatcher *automation.Dispatcher
	Hub        *ws.Hub
	Webhook    *webhook.Handler
}

// CORS mirrors the permissive policy the dashboard expects.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, x-api-key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) Register(r *gin.Engine) {
	eventHandler := NewEventHandler(s.Store, s.Engine)
	automationHandler := NewAutomationHandler(s.Store, s.Engine)
	contactHandler := NewContactHandler(s.Store)
	dashboardHandler := NewDashboardHandler(s.Store, s.Dispatcher)
	companyHandler := NewCompanyHandler(s.Store)
	whatsappHandler := NewWhatsAppHandler(s.Store)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhook Routes
	if s.Webhook != nil {
		r.GET("/webhook", s.Webhook.VerifyWebhook)
		r.POST("/webhook", s.Webhook.HandleMessage)
	}

	auth := APIKeyAuth(s.Store)

	if s.Hub != nil {
		r.GET("/ws", auth, func(c *gin.Context) {
			s.Hub.ServeWs(c.Writer, c.Request, currentCompany(c).ID)
		})
	}

	apiGroup := r.Group("/api", auth)
	{
		apiGroup.POST("/events", eventHandler.PostEvent)
		apiGroup.GET("/events", eventHandler.ListEvents)

		// Automation Routes
		apiGroup.GET("/flows", automationHandler.GetFlows)
		apiGroup.POST("/flows", automationHandler.CreateFlow)
		apiGroup.GET("/flows/:id", automationHandler.GetFlow)
		apiGroup.PATCH("/flows/:id", automationHandler.UpdateFlow)
		apiGroup.DELETE("/flows/:id", automationHandler.DeleteFlow)
		apiGroup.POST("/flows/:id/toggle", automationHandler.ToggleFlow)
		apiGroup.POST("/flows/:id/test", automationHandler.TestFlow)

		// CRM Routes
		apiGroup.GET("/contacts", contactHandler.GetContacts)
		apiGroup.POST("/contacts", contactHandler.CreateContact)
		apiGroup.GET("/contacts/export", contactHandler.ExportContacts)
		apiGroup.PATCH("/contacts/:id", contactHandler.UpdateContact)
		apiGroup.DELETE("/contacts/:id", contactHandler.DeleteContact)

		apiGroup.GET("/messages", dashboardHandler.GetMessages)
		apiGroup.POST("/messages/send", dashboardHandler.SendMessage)

		companyGroup := apiGroup.Group("/company")
		{
			companyGroup.GET("", companyHandler.GetCompany)
			companyGroup.POST("/api-key", companyHandler.RotateAPIKey)
			companyGroup.POST("/slug", companyHandler.SetSlug)
			companyGroup.POST("/settings", companyHandler.UpdateSettings)
			companyGroup.GET("/whatsapp", whatsappHandler.GetSettings)
			companyGroup.PUT("/whatsapp", whatsappHandler.PutSettings)
		}
	}
}
