package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes registers every console page and the JSON endpoints.
func SetupRoutes(router *gin.Engine, h *Handler, allowedOrigins []string) {
	router.SetHTMLTemplate(Templates())
	router.Use(h.withSession)

	router.GET("/login", h.LoginPage)
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)

	admin := router.Group("/", h.requireAdmin)
	{
		admin.GET("/", h.Dashboard)
		admin.GET("/profile", h.Profile)
		admin.POST("/profile", h.UpdateProfile)
		admin.POST("/profile/password", h.ChangePassword)
		admin.GET("/uploads/failures", h.UploadFailures)

		h.users().register(admin)
		h.properties().register(admin)
		h.listings().register(admin)
		h.reports().register(admin)
		admin.POST("/properties/:id/status", h.SetStatus)
	}

	api := router.Group("/api", cors.New(corsConfig(allowedOrigins)), h.requireAdmin)
	{
		api.GET("/properties/map", h.PropertyMap)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowCredentials = len(origins) > 0
	cfg.AllowMethods = []string{"GET", "OPTIONS"}
	return cfg
}
