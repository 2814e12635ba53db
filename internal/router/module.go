package router

import "github.com/gin-gonic/gin"

// Module registers a feature's routes on the registry group (root or API_PREFIX).
type Module interface {
	Register(rg *gin.RouterGroup)
}
