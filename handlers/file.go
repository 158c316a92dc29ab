package handlers

import (
	"net/http"
	"strconv"

	"github.com/bbasli/bdrive/middleware"
	"github.com/bbasli/bdrive/models"
	"github.com/bbasli/bdrive/services"
	"github.com/bbasli/bdrive/utils"

	"github.com/gin-gonic/gin"
)

type UploadFileRequest struct {
	Name      string          `json:"name" binding:"required,max=255"`
	Type      models.FileType `json:"type" binding:"required"`
	OrgID     string          `json:"org_id" binding:"required"`
	StorageID string          `json:"storage_id" binding:"required"`
}

func parseFileID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.Error(c, http.StatusBadRequest, "invalid file id")
		return 0, false
	}
	return uint(id), true
}

// GenerateUploadURL hands out a short-lived upload target and storage id.
func GenerateUploadURL(c *gin.Context) {
	out, err := getServices().File.GenerateUploadURL(c.Request.Context(), middleware.CurrentIdentity(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

func UploadFile(c *gin.Context) {
	var req UploadFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	file, err := getServices().File.UploadFile(c.Request.Context(), middleware.CurrentIdentity(c), services.UploadFileInput{
		Name:      req.Name,
		Type:      req.Type,
		OrgID:     req.OrgID,
		StorageID: req.StorageID,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Created(c, file)
}

// ListFiles answers the org's file listing. Anonymous callers get an empty list.
func ListFiles(c *gin.Context) {
	favoritesOnly, _ := strconv.ParseBool(c.DefaultQuery("favorites_only", "false"))
	deletedOnly, _ := strconv.ParseBool(c.DefaultQuery("deleted_only", "false"))

	files, err := getServices().File.GetFiles(c.Request.Context(), middleware.CurrentIdentity(c), services.GetFilesInput{
		OrgID:         c.Query("org_id"),
		Query:         c.Query("query"),
		FavoritesOnly: favoritesOnly,
		DeletedOnly:   deletedOnly,
		Type:          c.Query("type"),
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"files": files})
}

func DeleteFile(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	file, err := getServices().File.DeleteFile(c.Request.Context(), middleware.CurrentIdentity(c), fileID)
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "file moved to trash", gin.H{
		"id":        file.ID,
		"delete_at": file.DeleteAt,
	})
}

func RestoreFile(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	err := getServices().File.RestoreFile(c.Request.Context(), middleware.CurrentIdentity(c), fileID)
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "file restored", gin.H{"id": fileID})
}

func ToggleFavorite(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	favorited, err := getServices().File.ToggleFavorite(c.Request.Context(), middleware.CurrentIdentity(c), fileID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"id": fileID, "is_favorite": favorited})
}
