package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bbasli/bdrive/config"
	"github.com/bbasli/bdrive/utils"

	"github.com/gin-gonic/gin"
)

// ReceiveUpload accepts the raw bytes posted to a local upload target.
func ReceiveUpload(c *gin.Context) {
	body := io.Reader(c.Request.Body)
	if config.AppConfig != nil && config.AppConfig.Storage.MaxFileSize > 0 {
		body = http.MaxBytesReader(c.Writer, c.Request.Body, config.AppConfig.Storage.MaxFileSize)
	}

	err := getServices().File.ReceiveUpload(c.Request.Context(), c.Param("storage_id"), body, c.ContentType())
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		utils.Error(c, http.StatusRequestEntityTooLarge, "file exceeds the size limit")
		return
	}
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"storage_id": c.Param("storage_id")})
}

// ServeObject streams a blob from the local store.
func ServeObject(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	rc, info, err := getServices().File.OpenObject(c.Request.Context(), key)
	if respondServiceError(c, err) {
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.DataFromReader(http.StatusOK, info.Size, contentType, rc, nil)
}
