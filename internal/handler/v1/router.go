package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/config"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/service"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Services are the use cases the HTTP layer exposes.
type Services struct {
	Auth          *service.AuthService
	Accounts      *service.AccountService
	Forms         *service.FormService
	Responses     *service.ResponseService
	Summaries     *service.SummaryService
	Notifications *service.NotificationService
	Admin         *service.AdminService
	Identity      identityResolver
	Tokens        tokenValidator
}

type Handler struct {
	svc    Services
	upload config.UploadConfig
	log    *zap.Logger
}

type RouterConfig struct {
	CORS      config.CORSConfig
	RateLimit config.RateLimitConfig
	Upload    config.UploadConfig
	Metrics   *metrics.Collector
	// Health reports whether downstream dependencies are reachable.
	Health func(ctx context.Context) error
}

var (
	clinicians  = []domain.Role{domain.RoleMedecin, domain.RoleAdmin}
	neurologist = []domain.Role{domain.RoleNeurologue, domain.RoleNeurologueResident, domain.RoleAdmin}
)

func NewRouter(cfg RouterConfig, svc Services, log *zap.Logger) *gin.Engine {
	h := &Handler{svc: svc, upload: cfg.Upload, log: log}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog(log))
	r.Use(Metrics(cfg.Metrics))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{requestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	r.GET("/health", healthHandler(cfg.Health))
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	global := newIPLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize)
	authRPM := max(cfg.RateLimit.AuthRequestsPerMinute, 1)
	strict := newIPLimiter(rate.Every(time.Minute/time.Duration(authRPM)), authRPM)

	api := r.Group("/api", RateLimit(global, "global", cfg.Metrics))
	identity := Identity(svc.Identity, svc.Tokens, log)

	authGroup := api.Group("/auth", RateLimit(strict, "auth", cfg.Metrics))
	{
		authGroup.POST("/login", h.login)
		authGroup.POST("/refresh", h.refresh)
		authGroup.POST("/register-admin", h.registerAdmin)
		authGroup.POST("/change-password", identity, h.changePassword)
	}

	api.POST("/doctor/request-account", RateLimit(strict, "auth", cfg.Metrics), h.requestAccount)

	forms := api.Group("/medical-forms", identity)
	{
		forms.POST("/submit", requireRoles(clinicians...), h.submitForm)
		forms.GET("/doctor", h.listDoctorForms)
		forms.GET("/:formId", h.getForm)
		forms.GET("/:formId/response", h.latestResponse)
		forms.GET("/:formId/has-response", h.hasResponse)
		forms.GET("/:formId/response-details", h.responseDetails)
	}

	neuro := api.Group("/neurologue", identity, requireRoles(neurologist...))
	{
		neuro.GET("/pending", h.pendingForms)
		neuro.GET("/completed", h.completedForms)
		neuro.GET("/all-forms", h.allForms)
		neuro.POST("/forms/:formId/claim", h.claimForm)
		neuro.GET("/forms/:formId/attachments", h.listAttachments)
		neuro.GET("/attachments/:id", h.downloadAttachment)
		neuro.POST("/form-response", h.recordResponse)
		neuro.GET("/form-response/check/:formId", h.hasResponse)
		neuro.GET("/form-response/:formId", h.latestResponse)
	}

	notifications := api.Group("/notifications", identity)
	{
		notifications.GET("", h.listNotifications)
		notifications.GET("/unread", h.unreadNotifications)
		notifications.GET("/count", h.countUnread)
		notifications.POST("/read-all", h.markAllRead)
		notifications.POST("/:id/read", h.markRead)
		notifications.DELETE("/:id", h.deleteNotification)
	}

	pdf := api.Group("/pdf", identity)
	{
		pdf.GET("/download/:formId", h.downloadPDF)
		pdf.POST("/regenerate/:formId", h.regeneratePDF)
		pdf.GET("/admin/forms", requireRoles(domain.RoleAdmin), h.adminForms)
	}

	admin := api.Group("/admin", identity, requireRoles(domain.RoleAdmin))
	{
		admin.POST("/create-doctor", h.createDoctor)
		admin.GET("/pending-requests", h.pendingRequests)
		admin.DELETE("/reject-request/:id", h.rejectRequest)
		admin.POST("/users/:id/deactivate", h.deactivateUser)
		admin.POST("/forms/:formId/reassign", h.reassignForm)
		admin.DELETE("/forms/:formId", h.deleteForm)
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	}
}
