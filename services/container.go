package services

import (
	"github.com/bbasli/bdrive/repositories"
	"github.com/bbasli/bdrive/storage"
)

// TxManager runs a unit of work in one database transaction.
type TxManager = repositories.TxManager

type Container struct {
	User    UserService
	File    FileService
	Cleanup CleanupService
}

func NewContainer(repos repositories.Container, store storage.Store) *Container {
	container := &Container{
		User:    NewUserService(repos.TxManager, repos.Users),
		File:    NewFileService(repos.TxManager, repos.Users, repos.Files, repos.Favorites, repos.UploadTickets, store),
		Cleanup: NewCleanupService(repos.TxManager, repos.Files, repos.Favorites, repos.Locks, store),
	}
	SetCleanupService(container.Cleanup)
	return container
}
