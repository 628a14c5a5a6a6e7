package bootstrap

import "github.com/gin-gonic/gin"

// SetGinMode maps the app environment onto gin's runtime mode. Anything
// other than production keeps gin's default debug logging, which is what we
// want while iterating against a local engine.
func SetGinMode(env string) {
	switch env {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}
}
