package handlers

import (
	"net/http"
	"strconv"

	"github.com/bbasli/bdrive/middleware"
	"github.com/bbasli/bdrive/utils"

	"github.com/gin-gonic/gin"
)

// GetMe returns the caller's user record with memberships, or null data for
// anonymous and not yet provisioned callers.
func GetMe(c *gin.Context) {
	user, err := getServices().User.GetMe(c.Request.Context(), middleware.CurrentIdentity(c))
	if respondServiceError(c, err) {
		return
	}
	if user == nil {
		utils.Success(c, nil)
		return
	}
	utils.Success(c, user)
}

func GetUserProfile(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || userID == 0 {
		utils.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}

	profile, err := getServices().User.GetUserProfile(c.Request.Context(), uint(userID))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, profile)
}
