package router

import "github.com/gin-gonic/gin"

// Module registers its routes on the registry's group (the API prefix, "/" by default).
type Module interface {
	Register(rg *gin.RouterGroup)
}
