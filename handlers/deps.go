package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bbasli/bdrive/services"
	"github.com/bbasli/bdrive/utils"

	"github.com/gin-gonic/gin"
)

var appServices *services.Container

func SetServices(container *services.Container) {
	appServices = container
}

func getServices() *services.Container {
	if appServices == nil {
		panic("services container is not initialized")
	}
	return appServices
}

func respondServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPCode >= http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), appErr.Message,
				slog.String("route", c.FullPath()),
				slog.Any("error", appErr.Err),
			)
		}
		if appErr.Data != nil {
			utils.ErrorWithData(c, appErr.HTTPCode, appErr.Message, appErr.Data)
		} else {
			utils.Error(c, appErr.HTTPCode, appErr.Message)
		}
		return true
	}
	slog.ErrorContext(c.Request.Context(), "unhandled service error", slog.Any("error", err))
	utils.Error(c, http.StatusInternalServerError, "internal error")
	return true
}
