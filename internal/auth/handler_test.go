package auth_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/college-clubs/backend/internal/auth"
	"github.com/college-clubs/backend/internal/authz"
	"github.com/college-clubs/backend/internal/models"
	"github.com/college-clubs/backend/pkg/queue"
	"github.com/college-clubs/backend/pkg/storage"
	"github.com/college-clubs/backend/pkg/utils"
)

type fakeUserStore struct {
	users            map[uuid.UUID]*models.User
	updateProfileErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]*models.User{}}
}

func (f *fakeUserStore) add(email, password string, role models.Role, mustChange bool) *models.User {
	hash, _ := utils.HashPassword(password)
	u := &models.User{ID: uuid.New(), Email: email, Password: hash, Name: email, Role: role, MustChangePassword: mustChange}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (f *fakeUserStore) Create(_ context.Context, email, passwordHash, name string, role models.Role, mustChange bool) (*models.User, error) {
	if _, err := f.GetByEmail(context.Background(), email); err == nil {
		return nil, auth.ErrDuplicateEmail
	}
	u := &models.User{ID: uuid.New(), Email: email, Password: passwordHash, Name: name, Role: role, MustChangePassword: mustChange}
	f.users[u.ID] = u
	cp := *u
	return &cp, nil
}

// UpdatePassword mirrors the store contract: the new hash and the cleared
// must_change_password flag land together.
func (f *fakeUserStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.Password = passwordHash
	u.MustChangePassword = false
	return nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, id uuid.UUID, description, logoURL, bannerURL string) (*models.User, error) {
	if f.updateProfileErr != nil {
		return nil, f.updateProfileErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if description != "" {
		u.Description = description
	}
	if logoURL != "" {
		u.LogoURL = logoURL
	}
	if bannerURL != "" {
		u.BannerURL = bannerURL
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) ListClubs(_ context.Context) ([]models.UserPublic, error) {
	var list []models.UserPublic
	for _, u := range f.users {
		if u.Role == models.RoleAdmin {
			list = append(list, u.ToPublic())
		}
	}
	return list, nil
}

func (f *fakeUserStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeMediaStore struct{ uploaded []string }

func (f *fakeMediaStore) Upload(_ context.Context, key, _ string, _ io.Reader, _ int64) (string, error) {
	f.uploaded = append(f.uploaded, key)
	return "https://college-clubs-media.s3.us-east-1.amazonaws.com/" + key, nil
}

type fakeCleanupQueue struct{ keys []string }

func (f *fakeCleanupQueue) EnqueueMediaCleanup(_ context.Context, p queue.MediaCleanupPayload) error {
	f.keys = append(f.keys, p.Key)
	return nil
}

func newAuthRouter(h *auth.Handler, principal *authz.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", h.Login)
	authed := r.Group("")
	authed.Use(func(c *gin.Context) {
		if principal != nil {
			authz.Set(c, *principal)
		}
		c.Next()
	})
	authed.PUT("/auth/password", h.ChangePassword)
	authed.PUT("/auth/profile/banner", h.UpdateBanner)
	authed.POST("/auth/clubs", h.RegisterClub)
	return r
}

func postJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// An attacker probing for registered emails must not be able to tell an
// unknown email apart from a wrong password.
func TestLoginFailureParity(t *testing.T) {
	store := newFakeUserStore()
	store.add("chess@college.edu", "correct-horse", models.RoleAdmin, false)

	h := auth.NewHandler(store, nil, auth.NewJWTService("test-secret", 120), nil, nil, nil)
	r := newAuthRouter(h, nil)

	unknown := postJSON(r, http.MethodPost, "/auth/login", `{"email":"ghost@college.edu","password":"whatever"}`)
	wrongPassword := postJSON(r, http.MethodPost, "/auth/login", `{"email":"chess@college.edu","password":"not-it"}`)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, unknown.Body.String(), wrongPassword.Body.String())
}

func TestLoginSuccess(t *testing.T) {
	store := newFakeUserStore()
	store.add("chess@college.edu", "correct-horse", models.RoleAdmin, true)

	h := auth.NewHandler(store, nil, auth.NewJWTService("test-secret", 120), nil, nil, nil)
	r := newAuthRouter(h, nil)

	w := postJSON(r, http.MethodPost, "/auth/login", `{"email":"chess@college.edu","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `"token"`)
	assert.Contains(t, body, `"must_change_password":true`)
	assert.NotContains(t, body, "correct-horse")
}

// A successful change must install the new hash and drop the first-login
// flag; the old password stops working.
func TestChangePassword(t *testing.T) {
	store := newFakeUserStore()
	u := store.add("chess@college.edu", "initial-pass", models.RoleAdmin, true)
	p := authz.Principal{ID: u.ID, Email: u.Email, Role: u.Role}

	h := auth.NewHandler(store, nil, auth.NewJWTService("test-secret", 120), nil, nil, nil)
	r := newAuthRouter(h, &p)

	w := postJSON(r, http.MethodPut, "/auth/password", `{"new_password":"fresh-secret"}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored := store.users[u.ID]
	assert.False(t, stored.MustChangePassword)
	assert.True(t, utils.CheckPassword("fresh-secret", stored.Password))
	assert.False(t, utils.CheckPassword("initial-pass", stored.Password))
}

func TestChangePasswordTooShort(t *testing.T) {
	store := newFakeUserStore()
	u := store.add("chess@college.edu", "initial-pass", models.RoleAdmin, true)
	p := authz.Principal{ID: u.ID, Email: u.Email, Role: u.Role}

	h := auth.NewHandler(store, nil, auth.NewJWTService("test-secret", 120), nil, nil, nil)
	r := newAuthRouter(h, &p)

	w := postJSON(r, http.MethodPut, "/auth/password", `{"new_password":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	stored := store.users[u.ID]
	assert.True(t, stored.MustChangePassword)
	assert.True(t, utils.CheckPassword("initial-pass", stored.Password))
}

func TestRegisterClubDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	store.add("chess@college.edu", "anything", models.RoleAdmin, false)
	p := authz.Principal{ID: uuid.New(), Email: "boss@college.edu", Role: models.RoleSuperAdmin}

	h := auth.NewHandler(store, nil, auth.NewJWTService("test-secret", 120), nil, nil, nil)
	r := newAuthRouter(h, &p)

	w := postJSON(r, http.MethodPost, "/auth/clubs", `{"name":"Chess","email":"chess@college.edu","password":"secret-1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func bannerUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="banner.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// When the profile row update fails after the object already landed in
// storage, the fresh object must be queued for deletion, not orphaned.
func TestProfileUpdateFailureCleansUpUpload(t *testing.T) {
	store := newFakeUserStore()
	u := store.add("chess@college.edu", "anything", models.RoleAdmin, false)
	store.updateProfileErr = assert.AnError
	p := authz.Principal{ID: u.ID, Email: u.Email, Role: u.Role}

	media := &fakeMediaStore{}
	cleanup := &fakeCleanupQueue{}
	h := auth.NewHandler(store, nil, auth.NewJWTService("test-secret", 120), media, cleanup, nil)
	r := newAuthRouter(h, &p)

	body, contentType := bannerUpload(t)
	req := httptest.NewRequest(http.MethodPut, "/auth/profile/banner", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, media.uploaded, 1)
	require.Len(t, cleanup.keys, 1)
	assert.Equal(t, media.uploaded[0], cleanup.keys[0])
	assert.True(t, strings.HasPrefix(cleanup.keys[0], storage.FolderBanners+"/"))
}

// Replacing an existing banner queues the previous object for deletion.
func TestProfileUpdateReplacesOldBanner(t *testing.T) {
	store := newFakeUserStore()
	u := store.add("chess@college.edu", "anything", models.RoleAdmin, false)
	oldKey := "clubs/banners/" + u.ID.String() + "/old.png"
	store.users[u.ID].BannerURL = "https://college-clubs-media.s3.us-east-1.amazonaws.com/" + oldKey
	p := authz.Principal{ID: u.ID, Email: u.Email, Role: u.Role}

	media := &fakeMediaStore{}
	cleanup := &fakeCleanupQueue{}
	h := auth.NewHandler(store, nil, auth.NewJWTService("test-secret", 120), media, cleanup, nil)
	r := newAuthRouter(h, &p)

	body, contentType := bannerUpload(t)
	req := httptest.NewRequest(http.MethodPut, "/auth/profile/banner", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, cleanup.keys, 1)
	assert.Equal(t, oldKey, cleanup.keys[0])
}
