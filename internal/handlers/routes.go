package handlers

import (
	"log/slog"
	"net/http"

	"github.com/agrineural/agrineural/internal/auth"
	"github.com/agrineural/agrineural/internal/metrics"
	"github.com/agrineural/agrineural/internal/middleware"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const sessionCookieName = "agrineural_session"

// Router holds everything needed to build the HTTP surface.
type Router struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Auth    *middleware.AuthMiddleware
	Admin   *middleware.AdminMiddleware

	// Logto and SessionStore enable browser sign-in. Both nil disables it.
	Logto        *auth.LogtoHandler
	SessionStore sessions.Store

	Farms    *FarmHandler
	Images   *ImageHandler
	Reports  *ReportHandler
	Exports  *ExportHandler
	Tokens   *TokenHandler
	Profiles *ProfileHandler
	AdminAPI *AdminHandler
	Public   *PublicHandler
}

func (r *Router) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.StructuredLogging(r.Logger, r.Metrics))

	if r.SessionStore != nil {
		engine.Use(sessions.Sessions(sessionCookieName, r.SessionStore))
	}
	if r.Logto != nil {
		authRoutes := engine.Group("/auth")
		{
			authRoutes.GET("/login", r.Logto.Login)
			authRoutes.GET("/callback", r.Logto.Callback)
			authRoutes.GET("/logout", r.Logto.Logout)
		}
	}

	engine.GET("/healthz", r.Public.Healthz)
	if r.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(r.Metrics.Handler()))
	}
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET("/docs", SwaggerUIWithBearerFix("/swagger/doc.json"))
	engine.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/docs")
	})

	api := engine.Group("/api/v1")
	{
		api.GET("/stats", r.Public.GetStats)
		api.POST("/reports/verify", r.Exports.VerifyExport)

		authenticated := api.Group("")
		authenticated.Use(r.Auth.RequireAuth())
		{
			authenticated.GET("/profile", r.Profiles.GetProfile)
			authenticated.PUT("/profile", r.Profiles.UpdateProfile)

			authenticated.POST("/tokens", r.Tokens.CreateToken)
			authenticated.GET("/tokens", r.Tokens.ListTokens)
			authenticated.DELETE("/tokens/:id", r.Tokens.DeleteToken)

			authenticated.POST("/images", r.Images.UploadImage)
			authenticated.GET("/farms/:id/detail", r.Reports.GetFarmDetail)
			authenticated.GET("/farms/:id/report", r.Reports.GetFarmReport)
			authenticated.GET("/farms/:id/report/export", r.Exports.ExportReport)
			authenticated.GET("/farms/:id/report.xlsx", r.Exports.ExportWorkbook)
			authenticated.GET("/farms/:id/images/:imageId/file", r.Images.GetImageFile)

			producer := authenticated.Group("/producer")
			{
				producer.POST("/farms", r.Farms.CreateFarm)
				producer.GET("/farms", r.Farms.ListOwnFarms)
				producer.GET("/farms/:id/detail", r.Reports.GetProducerFarmDetail)
				producer.GET("/farms/:id/report", r.Reports.GetProducerFarmReport)
			}

			// operators and surveyors share the same surface
			for _, area := range []string{"/operator", "/surveyor"} {
				g := authenticated.Group(area)
				g.GET("/farms", r.Farms.LookupFarms)
				g.POST("/farms", r.Farms.Associate)
				g.GET("/farms/associated", r.Farms.ListAssociatedFarms)
				g.POST("/images", r.Images.UploadImage)
			}
		}

		admin := api.Group("/admin")
		admin.Use(r.Auth.RequireAuth(), r.Admin.RequireAdmin())
		{
			admin.GET("/farms", r.AdminAPI.ListFarms)
			admin.GET("/associations", r.AdminAPI.ListAssociations)
		}
	}

	return engine
}
