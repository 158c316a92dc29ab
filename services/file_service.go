package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bbasli/bdrive/config"
	"github.com/bbasli/bdrive/metrics"
	"github.com/bbasli/bdrive/models"
	"github.com/bbasli/bdrive/repositories"
	"github.com/bbasli/bdrive/storage"

	"gorm.io/gorm"
)

const defaultRetention = 30 * 24 * time.Hour

type UploadURLOutput struct {
	StorageID string `json:"storage_id"`
	storage.UploadTarget
}

type UploadFileInput struct {
	Name      string
	Type      models.FileType
	OrgID     string
	StorageID string
}

type GetFilesInput struct {
	OrgID         string
	Query         string
	FavoritesOnly bool
	DeletedOnly   bool
	Type          string
}

type FileView struct {
	models.File
	IsFavorite bool `json:"is_favorite"`
}

type FileService interface {
	GenerateUploadURL(ctx context.Context, identity *Identity) (UploadURLOutput, error)
	ReceiveUpload(ctx context.Context, storageID string, body io.Reader, contentType string) error
	OpenObject(ctx context.Context, storageID string) (io.ReadCloser, storage.ObjectInfo, error)
	UploadFile(ctx context.Context, identity *Identity, in UploadFileInput) (models.File, error)
	GetFiles(ctx context.Context, identity *Identity, in GetFilesInput) ([]FileView, error)
	DeleteFile(ctx context.Context, identity *Identity, fileID uint) (models.File, error)
	RestoreFile(ctx context.Context, identity *Identity, fileID uint) error
	ToggleFavorite(ctx context.Context, identity *Identity, fileID uint) (bool, error)
}

type fileService struct {
	txManager TxManager
	users     repositories.UserRepository
	files     repositories.FileRepository
	favorites repositories.FavoriteRepository
	tickets   repositories.UploadTicketRepository
	store     storage.Store
	guard     accessGuard
	now       func() time.Time
}

func NewFileService(
	txManager TxManager,
	users repositories.UserRepository,
	files repositories.FileRepository,
	favorites repositories.FavoriteRepository,
	tickets repositories.UploadTicketRepository,
	store storage.Store,
) FileService {
	return &fileService{
		txManager: txManager,
		users:     users,
		files:     files,
		favorites: favorites,
		tickets:   tickets,
		store:     store,
		guard:     accessGuard{users: users, files: files},
		now:       time.Now,
	}
}

func retention() time.Duration {
	if config.AppConfig == nil || config.AppConfig.Trash.RetentionDays <= 0 {
		return defaultRetention
	}
	return config.AppConfig.Trash.Retention()
}

func ticketTTL() time.Duration {
	if config.AppConfig == nil || config.AppConfig.Storage.UploadTicketTTL <= 0 {
		return 15 * time.Minute
	}
	return config.AppConfig.Storage.TicketTTL()
}

func maxFileSize() int64 {
	if config.AppConfig == nil {
		return 0
	}
	return config.AppConfig.Storage.MaxFileSize
}

func (s *fileService) GenerateUploadURL(ctx context.Context, identity *Identity) (UploadURLOutput, error) {
	if identity == nil {
		return UploadURLOutput{}, newAppError(http.StatusUnauthorized, "you must be logged in to upload files", nil)
	}

	storageID := storage.NewKey()
	ttl := ticketTTL()

	target, err := s.store.UploadTarget(ctx, storageID, ttl)
	if err != nil {
		return UploadURLOutput{}, errInternal("failed to generate upload url", err)
	}

	ticket := repositories.UploadTicket{
		StorageID:       storageID,
		TokenIdentifier: identity.TokenIdentifier,
		ExpiresAt:       target.ExpiresAt,
	}
	if err := s.tickets.Save(ctx, ticket, ttl); err != nil {
		return UploadURLOutput{}, errInternal("failed to record upload ticket", err)
	}

	return UploadURLOutput{StorageID: storageID, UploadTarget: target}, nil
}

// ReceiveUpload stores the bytes posted to a local upload URL. Possession of
// an unexpired ticket id is the only credential.
func (s *fileService) ReceiveUpload(ctx context.Context, storageID string, body io.Reader, contentType string) error {
	if err := storage.ValidateKey(storageID); err != nil {
		return errNotFound("upload ticket not found")
	}
	if _, err := s.tickets.Get(ctx, storageID); err != nil {
		if errors.Is(err, repositories.ErrTicketNotFound) {
			return errNotFound("upload ticket not found")
		}
		return errInternal("failed to load upload ticket", err)
	}

	if err := s.store.Put(ctx, storageID, body, contentType); err != nil {
		return errInternal("failed to store upload", err)
	}
	return nil
}

// OpenObject streams a stored blob. File URLs are capabilities, so no caller
// check is made here.
func (s *fileService) OpenObject(ctx context.Context, storageID string) (io.ReadCloser, storage.ObjectInfo, error) {
	if err := storage.ValidateKey(storageID); err != nil {
		return nil, storage.ObjectInfo{}, errNotFound("file not found")
	}
	info, err := s.store.Stat(ctx, storageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ObjectInfo{}, errNotFound("file not found")
		}
		return nil, storage.ObjectInfo{}, errInternal("failed to inspect file", err)
	}
	rc, err := s.store.Open(ctx, storageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ObjectInfo{}, errNotFound("file not found")
		}
		return nil, storage.ObjectInfo{}, errInternal("failed to open file", err)
	}
	return rc, info, nil
}

func (s *fileService) UploadFile(ctx context.Context, identity *Identity, in UploadFileInput) (models.File, error) {
	user, err := s.guard.hasAccessToOrg(ctx, nil, identity, in.OrgID)
	if err != nil {
		return models.File{}, err
	}
	if user == nil {
		return models.File{}, errForbidden("you do not have access to this org")
	}

	name := sanitizeFilename(in.Name)
	if name == "" {
		return models.File{}, newAppError(http.StatusBadRequest, "file name is required", nil)
	}
	if !in.Type.Valid() {
		return models.File{}, newAppError(http.StatusBadRequest, "invalid file type", nil)
	}

	ticket, err := s.tickets.Get(ctx, in.StorageID)
	if err != nil {
		if errors.Is(err, repositories.ErrTicketNotFound) {
			return models.File{}, errNotFound("file not found")
		}
		return models.File{}, errInternal("failed to load upload ticket", err)
	}
	if ticket.TokenIdentifier != identity.TokenIdentifier {
		return models.File{}, errNotFound("file not found")
	}

	info, err := s.store.Stat(ctx, in.StorageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.File{}, errNotFound("file not found")
		}
		return models.File{}, errInternal("failed to inspect upload", err)
	}

	if limit := maxFileSize(); limit > 0 && info.Size > limit {
		return models.File{}, newAppErrorWithData(http.StatusRequestEntityTooLarge, "file exceeds the size limit", map[string]int64{
			"max_file_size": limit,
			"file_size":     info.Size,
		}, nil)
	}

	if !contentMatchesType(in.Type, info.ContentType) {
		return models.File{}, newAppError(http.StatusBadRequest, "file content does not match type "+string(in.Type), nil)
	}

	url, err := s.store.URL(ctx, in.StorageID)
	if err != nil {
		return models.File{}, errInternal("failed to resolve file url", err)
	}

	file := models.File{
		Name:        name,
		Type:        in.Type,
		OrgID:       in.OrgID,
		StorageID:   in.StorageID,
		URL:         url,
		UserID:      user.ID,
		ContentType: info.ContentType,
		Size:        info.Size,
	}
	if in.Type == models.FileTypeImage {
		file.Width, file.Height = s.probeImage(ctx, in.StorageID)
	}

	claimed, err := s.tickets.Take(ctx, in.StorageID)
	if err != nil {
		if errors.Is(err, repositories.ErrTicketNotFound) {
			return models.File{}, errNotFound("file not found")
		}
		return models.File{}, errInternal("failed to claim upload ticket", err)
	}
	if claimed.TokenIdentifier != identity.TokenIdentifier {
		s.returnTicket(ctx, claimed)
		return models.File{}, errNotFound("file not found")
	}

	if err := s.files.Create(ctx, nil, &file); err != nil {
		s.returnTicket(ctx, claimed)
		return models.File{}, errInternal("failed to save file", err)
	}
	metrics.FileLifecycle.WithLabelValues(metrics.ActionUpload).Inc()

	return file, nil
}

// returnTicket puts a claimed ticket back so the caller can retry the upload.
func (s *fileService) returnTicket(ctx context.Context, ticket repositories.UploadTicket) {
	ttl := time.Until(ticket.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if err := s.tickets.Save(ctx, ticket, ttl); err != nil {
		slog.WarnContext(ctx, "upload ticket not returned", slog.String("storage_id", ticket.StorageID), slog.Any("error", err))
	}
}

// probeImage is best effort; formats imaging cannot decode (svg) yield 0x0.
func (s *fileService) probeImage(ctx context.Context, storageID string) (int, int) {
	rc, err := s.store.Open(ctx, storageID)
	if err != nil {
		return 0, 0
	}
	defer rc.Close()

	width, height, err := imageDimensions(rc)
	if err != nil {
		slog.DebugContext(ctx, "image probe skipped", slog.String("storage_id", storageID), slog.Any("error", err))
		return 0, 0
	}
	return width, height
}

func (s *fileService) GetFiles(ctx context.Context, identity *Identity, in GetFilesInput) ([]FileView, error) {
	if identity == nil {
		return []FileView{}, nil
	}

	user, err := s.guard.loadUser(ctx, nil, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("user not found")
		}
		return nil, errInternal("failed to query user", err)
	}

	if !canAccessOrg(user, in.OrgID) {
		return []FileView{}, nil
	}

	// An unknown type matches no file.
	var fileType models.FileType
	if in.Type != "" && in.Type != models.FileTypeAll {
		fileType = models.FileType(in.Type)
		if !fileType.Valid() {
			return []FileView{}, nil
		}
	}

	listInput := repositories.ListFilesInput{
		OrgID:   in.OrgID,
		Query:   in.Query,
		Type:    fileType,
		Trashed: in.DeletedOnly,
	}
	if in.FavoritesOnly {
		listInput.FavoritesOf = user.ID
	}

	files, err := s.files.ListByOrg(ctx, nil, listInput)
	if err != nil {
		return nil, errInternal("failed to list files", err)
	}

	favorites, err := s.favorites.ListByUserAndOrg(ctx, nil, user.ID, in.OrgID)
	if err != nil {
		return nil, errInternal("failed to list favorites", err)
	}
	favorite := make(map[uint]bool, len(favorites))
	for _, f := range favorites {
		favorite[f.FileID] = true
	}

	out := make([]FileView, 0, len(files))
	for _, f := range files {
		out = append(out, FileView{File: f, IsFavorite: favorite[f.ID]})
	}
	return out, nil
}

func (s *fileService) DeleteFile(ctx context.Context, identity *Identity, fileID uint) (models.File, error) {
	access, err := s.guard.hasAccessToFile(ctx, nil, identity, fileID)
	if err != nil {
		return models.File{}, err
	}
	if access == nil {
		return models.File{}, errForbidden("you do not have access to this file")
	}

	file := access.file
	if file.UserID != access.user.ID && !access.user.IsAdminOf(file.OrgID) {
		return models.File{}, errForbidden("you do not have access to delete this file")
	}

	deleteAt := s.now().Add(retention())
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.files.SetDeleteAt(ctx, tx, file.ID, &deleteAt); err != nil {
			return err
		}
		return s.favorites.DeleteByFileID(ctx, tx, file.ID)
	})
	if err != nil {
		return models.File{}, errInternal("failed to trash file", err)
	}

	metrics.FileLifecycle.WithLabelValues(metrics.ActionTrash).Inc()
	file.DeleteAt = &deleteAt
	return file, nil
}

func (s *fileService) RestoreFile(ctx context.Context, identity *Identity, fileID uint) error {
	access, err := s.guard.hasAccessToFile(ctx, nil, identity, fileID)
	if err != nil {
		return err
	}
	if access == nil {
		return errForbidden("you do not have access to this file")
	}

	if !access.user.IsAdminOf(access.file.OrgID) {
		return errForbidden("you do not have access to restore this file")
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.files.SetDeleteAt(ctx, tx, access.file.ID, nil)
	})
	if err != nil {
		return errInternal("failed to restore file", err)
	}

	metrics.FileLifecycle.WithLabelValues(metrics.ActionRestore).Inc()
	return nil
}

// ToggleFavorite flips the caller's favorite on the file and reports the
// resulting state.
func (s *fileService) ToggleFavorite(ctx context.Context, identity *Identity, fileID uint) (bool, error) {
	access, err := s.guard.hasAccessToFile(ctx, nil, identity, fileID)
	if err != nil {
		return false, err
	}
	if access == nil {
		return false, errForbidden("you do not have access to favorite this file")
	}

	user, file := access.user, access.file
	favorited := false
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		existing, err := s.favorites.Get(ctx, tx, user.ID, file.OrgID, file.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			favorited = true
			return s.favorites.Create(ctx, tx, &models.Favorite{
				UserID: user.ID,
				OrgID:  file.OrgID,
				FileID: file.ID,
			})
		}
		if err != nil {
			return err
		}
		return s.favorites.DeleteByID(ctx, tx, existing.ID)
	})
	if err != nil {
		return false, errInternal("failed to toggle favorite", err)
	}
	return favorited, nil
}
