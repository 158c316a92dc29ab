package handlers

import (
	"github.com/bbasli/bdrive/utils"

	"github.com/gin-gonic/gin"
)

func HealthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "bdrive",
	})
}
