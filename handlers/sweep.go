package handlers

import (
	"github.com/bbasli/bdrive/utils"

	"github.com/gin-gonic/gin"
)

// RunSweep triggers one trash sweep outside the hourly schedule.
func RunSweep(c *gin.Context) {
	result, err := getServices().Cleanup.RemoveDeletableFiles(c.Request.Context())
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, result)
}
