package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/readlater/internal/middleware"
)

type RouterDeps struct {
	Saves         *SaveHandler
	Imports       *ImportHandler
	Labels        *LabelHandler
	JWTSecret     []byte
	InboundToken  string
	SaveRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/inbound/email", middleware.InboundToken(deps.InboundToken), deps.Saves.InboundEmail)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/saves", middleware.RateLimit(deps.SaveRateLimit), deps.Saves.Save)
	authGroup.GET("/saves/:id", deps.Saves.Get)
	authGroup.GET("/labels", deps.Labels.List)
	authGroup.POST("/imports/csv", deps.Imports.CSVUpload)
	authGroup.GET("/imports/:job_id", deps.Imports.Status)
}
