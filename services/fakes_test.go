package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bbasli/bdrive/models"
	"github.com/bbasli/bdrive/repositories"
	"github.com/bbasli/bdrive/storage"

	"gorm.io/gorm"
)

type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeUserRepo struct {
	mu        sync.Mutex
	usersByID map[uint]models.User
	byToken   map[string]uint
	nextID    uint
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		usersByID: map[uint]models.User{},
		byToken:   map[string]uint{},
		nextID:    1,
	}
}

func cloneUser(user models.User) models.User {
	user.Memberships = append([]models.Membership(nil), user.Memberships...)
	return user
}

// add stores a user with the given memberships and returns it.
func (r *fakeUserRepo) add(tokenIdentifier string, memberships ...models.Membership) models.User {
	user := models.User{TokenIdentifier: tokenIdentifier, Name: tokenIdentifier}
	_ = r.Create(context.Background(), nil, &user)
	for _, m := range memberships {
		m.UserID = user.ID
		_ = r.AddMembership(context.Background(), nil, &m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.usersByID[user.ID])
}

func (r *fakeUserRepo) Create(_ context.Context, _ *gorm.DB, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[user.TokenIdentifier]; ok {
		return gorm.ErrDuplicatedKey
	}
	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	}
	r.usersByID[user.ID] = cloneUser(*user)
	r.byToken[user.TokenIdentifier] = user.ID
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, _ *gorm.DB, userID uint) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return models.User{}, r.getErr
	}
	user, ok := r.usersByID[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return cloneUser(user), nil
}

func (r *fakeUserRepo) GetByTokenIdentifier(_ context.Context, _ *gorm.DB, tokenIdentifier string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return models.User{}, r.getErr
	}
	id, ok := r.byToken[tokenIdentifier]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return cloneUser(r.usersByID[id]), nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, _ *gorm.DB, userID uint, name string, image string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.usersByID[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.Name, user.Image = name, image
	r.usersByID[userID] = user
	return nil
}

func (r *fakeUserRepo) AddMembership(_ context.Context, _ *gorm.DB, membership *models.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.usersByID[membership.UserID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, m := range user.Memberships {
		if m.OrgID == membership.OrgID {
			return gorm.ErrDuplicatedKey
		}
	}
	user.Memberships = append(user.Memberships, *membership)
	r.usersByID[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateMembershipRole(_ context.Context, _ *gorm.DB, userID uint, orgID string, role models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.usersByID[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range user.Memberships {
		if user.Memberships[i].OrgID == orgID {
			user.Memberships[i].Role = role
			r.usersByID[userID] = user
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) DeleteMembership(_ context.Context, _ *gorm.DB, userID uint, orgID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.usersByID[userID]
	if !ok {
		return nil
	}
	kept := user.Memberships[:0]
	for _, m := range user.Memberships {
		if m.OrgID != orgID {
			kept = append(kept, m)
		}
	}
	user.Memberships = kept
	r.usersByID[userID] = user
	return nil
}

type fakeFavoriteRepo struct {
	mu        sync.Mutex
	favorites map[uint]models.Favorite
	nextID    uint
}

func newFakeFavoriteRepo() *fakeFavoriteRepo {
	return &fakeFavoriteRepo{favorites: map[uint]models.Favorite{}, nextID: 1}
}

func (r *fakeFavoriteRepo) Get(_ context.Context, _ *gorm.DB, userID uint, orgID string, fileID uint) (models.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.favorites {
		if f.UserID == userID && f.OrgID == orgID && f.FileID == fileID {
			return f, nil
		}
	}
	return models.Favorite{}, gorm.ErrRecordNotFound
}

func (r *fakeFavoriteRepo) ListByUserAndOrg(_ context.Context, _ *gorm.DB, userID uint, orgID string) ([]models.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Favorite
	for _, f := range r.favorites {
		if f.UserID == userID && f.OrgID == orgID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFavoriteRepo) Create(_ context.Context, _ *gorm.DB, favorite *models.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	favorite.ID = r.nextID
	r.nextID++
	r.favorites[favorite.ID] = *favorite
	return nil
}

func (r *fakeFavoriteRepo) DeleteByID(_ context.Context, _ *gorm.DB, favoriteID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.favorites, favoriteID)
	return nil
}

func (r *fakeFavoriteRepo) DeleteByFileID(_ context.Context, _ *gorm.DB, fileID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, f := range r.favorites {
		if f.FileID == fileID {
			delete(r.favorites, id)
		}
	}
	return nil
}

func (r *fakeFavoriteRepo) isFavorite(userID uint, fileID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.favorites {
		if f.UserID == userID && f.FileID == fileID {
			return true
		}
	}
	return false
}

func (r *fakeFavoriteRepo) countForFile(fileID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.favorites {
		if f.FileID == fileID {
			n++
		}
	}
	return n
}

type fakeFileRepo struct {
	mu        sync.Mutex
	files     map[uint]models.File
	nextID    uint
	favorites *fakeFavoriteRepo
	listErr   error
	createErr error
	deleteErr error
}

func newFakeFileRepo(favorites *fakeFavoriteRepo) *fakeFileRepo {
	return &fakeFileRepo{files: map[uint]models.File{}, nextID: 1, favorites: favorites}
}

func (r *fakeFileRepo) add(file models.File) models.File {
	_ = r.Create(context.Background(), nil, &file)
	return file
}

func (r *fakeFileRepo) get(fileID uint) (models.File, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[fileID]
	return file, ok
}

func (r *fakeFileRepo) Create(_ context.Context, _ *gorm.DB, file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if file.ID == 0 {
		file.ID = r.nextID
		r.nextID++
	}
	r.files[file.ID] = *file
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, _ *gorm.DB, fileID uint) (models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[fileID]
	if !ok {
		return models.File{}, gorm.ErrRecordNotFound
	}
	return file, nil
}

func (r *fakeFileRepo) ListByOrg(_ context.Context, _ *gorm.DB, in repositories.ListFilesInput) ([]models.File, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	var out []models.File
	for _, f := range r.files {
		if f.OrgID != in.OrgID || f.Trashed() != in.Trashed {
			continue
		}
		if in.Type != "" && f.Type != in.Type {
			continue
		}
		if in.Query != "" && !strings.Contains(strings.ToLower(f.Name), strings.ToLower(in.Query)) {
			continue
		}
		out = append(out, f)
	}
	r.mu.Unlock()

	if in.FavoritesOf != 0 {
		kept := out[:0]
		for _, f := range out {
			if r.favorites.isFavorite(in.FavoritesOf, f.ID) {
				kept = append(kept, f)
			}
		}
		out = kept
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeFileRepo) SetDeleteAt(_ context.Context, _ *gorm.DB, fileID uint, deleteAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[fileID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if deleteAt == nil {
		file.DeleteAt = nil
	} else {
		at := *deleteAt
		file.DeleteAt = &at
	}
	r.files[fileID] = file
	return nil
}

func (r *fakeFileRepo) ListDeletable(_ context.Context, _ *gorm.DB, now time.Time, limit int) ([]models.File, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.File
	for _, f := range r.files {
		if f.DeleteAt != nil && f.DeleteAt.Before(now) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeleteAt.Before(*out[j].DeleteAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func deletable(file models.File, now time.Time) bool {
	return file.DeleteAt != nil && file.DeleteAt.Before(now)
}

func (r *fakeFileRepo) LockDeletable(_ context.Context, _ *gorm.DB, fileID uint, now time.Time) (models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[fileID]
	if !ok || !deletable(file, now) {
		return models.File{}, gorm.ErrRecordNotFound
	}
	return file, nil
}

func (r *fakeFileRepo) DeleteDeletable(_ context.Context, _ *gorm.DB, fileID uint, now time.Time) (bool, error) {
	if r.deleteErr != nil {
		return false, r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[fileID]
	if !ok || !deletable(file, now) {
		return false, nil
	}
	delete(r.files, fileID)
	return true, nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]repositories.UploadTicket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]repositories.UploadTicket{}}
}

func (r *fakeTicketRepo) Save(_ context.Context, ticket repositories.UploadTicket, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.StorageID] = ticket
	return nil
}

func (r *fakeTicketRepo) Get(_ context.Context, storageID string) (repositories.UploadTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[storageID]
	if !ok {
		return repositories.UploadTicket{}, repositories.ErrTicketNotFound
	}
	return ticket, nil
}

func (r *fakeTicketRepo) Take(_ context.Context, storageID string) (repositories.UploadTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[storageID]
	if !ok {
		return repositories.UploadTicket{}, repositories.ErrTicketNotFound
	}
	delete(r.tickets, storageID)
	return ticket, nil
}

type fakeLockRepo struct {
	mu         sync.Mutex
	held       map[string]string
	acquireErr error
	released   int
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{held: map[string]string{}}
}

func (r *fakeLockRepo) Acquire(_ context.Context, key string, _ time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acquireErr != nil {
		return "", r.acquireErr
	}
	if _, ok := r.held[key]; ok {
		return "", nil
	}
	token := "token-" + key
	r.held[key] = token
	return token, nil
}

func (r *fakeLockRepo) Release(_ context.Context, key string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held[key] == token {
		delete(r.held, key)
		r.released++
	}
	return nil
}

type fakeObject struct {
	body        []byte
	contentType string
}

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]fakeObject
	deleteErr map[string]error
	deleted   []string
	// onDelete runs before a blob is removed, outside the store lock.
	onDelete func(key string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]fakeObject{}, deleteErr: map[string]error{}}
}

func (s *fakeStore) UploadTarget(_ context.Context, key string, ttl time.Duration) (storage.UploadTarget, error) {
	return storage.UploadTarget{
		URL:       "http://files.test/api/storage/upload/" + key,
		Method:    http.MethodPost,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (s *fakeStore) Put(_ context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = fakeObject{body: data, contentType: contentType}
	return nil
}

func (s *fakeStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.body)), nil
}

func (s *fakeStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrNotFound
	}
	return storage.ObjectInfo{Size: int64(len(obj.body)), ContentType: obj.contentType}, nil
}

func (s *fakeStore) URL(_ context.Context, key string) (string, error) {
	return "http://files.test/storage/" + key, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	if s.onDelete != nil {
		s.onDelete(key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErr[key]; err != nil {
		return err
	}
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func expectAppError(err error, code int) (*AppError, bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.HTTPCode != code {
		return appErr, false
	}
	return appErr, true
}
