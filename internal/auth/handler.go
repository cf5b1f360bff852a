package auth

import (
	"context"
	"errors"
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/college-clubs/backend/internal/authz"
	"github.com/college-clubs/backend/internal/models"
	"github.com/college-clubs/backend/pkg/queue"
	"github.com/college-clubs/backend/pkg/response"
	"github.com/college-clubs/backend/pkg/storage"
	"github.com/college-clubs/backend/pkg/utils"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// dummyHash keeps the "unknown email" login path as expensive as the
// "wrong password" path, so response timing does not leak which emails exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserStore is the account persistence the handler depends on.
// *Repository implements it.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, name string, role models.Role, mustChange bool) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, description, logoURL, bannerURL string) (*models.User, error)
	ListClubs(ctx context.Context) ([]models.UserPublic, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MediaKeyLister lists a club's stored media keys for cleanup before removal.
type MediaKeyLister interface {
	ListMediaKeysByClub(ctx context.Context, clubID uuid.UUID) ([]string, error)
}

// MediaStore uploads profile media objects. *storage.S3 implements it.
type MediaStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
}

// CleanupQueue schedules best-effort deletion of storage objects.
// *queue.Queue implements it.
type CleanupQueue interface {
	EnqueueMediaCleanup(ctx context.Context, payload queue.MediaCleanupPayload) error
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterClubRequest is the body for POST /auth/clubs (super admin only).
type RegisterClubRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// ChangePasswordRequest is the body for PUT /auth/password.
type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required"`
}

// LoginResponse is the auth response with JWT and the first-login flag the
// client uses to force a password change before anything else.
type LoginResponse struct {
	Token              string            `json:"token"`
	Role               models.Role       `json:"role"`
	MustChangePassword bool              `json:"must_change_password"`
	User               models.UserPublic `json:"user"`
}

// Handler handles account HTTP endpoints.
type Handler struct {
	users    UserStore
	postKeys MediaKeyLister
	jwt      *JWTService
	media    MediaStore
	queue    CleanupQueue
	logger   *zap.Logger
}

// NewHandler creates an auth handler. media and queue may be nil when S3/redis
// are not configured; the media routes then reject uploads.
func NewHandler(users UserStore, postKeys MediaKeyLister, jwt *JWTService, media MediaStore, q CleanupQueue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, postKeys: postKeys, jwt: jwt, media: media, queue: q, logger: logger}
}

// Login handles POST /auth/login. Unknown email and wrong password return the
// identical error.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			utils.CheckPassword(req.Password, dummyHash)
			response.Unauthorized(c, "invalid email or password")
			return
		}
		h.logger.Error("login lookup failed", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, LoginResponse{
		Token:              token,
		Role:               user.Role,
		MustChangePassword: user.MustChangePassword,
		User:               user.ToPublic(),
	})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	p, _ := authz.FromContext(c)
	user, err := h.users.GetByID(c.Request.Context(), p.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "account not found")
			return
		}
		response.Internal(c, "failed to load account")
		return
	}
	response.OK(c, user.ToPublic())
}

// ChangePassword handles PUT /auth/password. Used for the forced first-login
// change and any later change; clears must_change_password atomically with the
// new hash.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(req.NewPassword) < MinPasswordLength {
		response.BadRequest(c, "password must be at least 6 characters")
		return
	}

	p, _ := authz.FromContext(c)
	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.users.UpdatePassword(c.Request.Context(), p.ID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "account not found")
			return
		}
		h.logger.Error("password update failed", zap.Error(err), zap.String("user_id", p.ID.String()))
		response.Internal(c, "failed to update password")
		return
	}
	response.OK(c, gin.H{"message": "password updated"})
}

// RegisterClub handles POST /auth/clubs (super admin only). New clubs always
// get role admin and must change the generated password on first login; the
// role field is not bindable from the request.
func (h *Handler) RegisterClub(c *gin.Context) {
	var req RegisterClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user, err := h.users.Create(c.Request.Context(), req.Email, hash, req.Name, models.RoleAdmin, true)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			response.Conflict(c, "club already exists")
			return
		}
		h.logger.Error("club registration failed", zap.Error(err), zap.String("email", req.Email))
		response.Internal(c, "failed to register club")
		return
	}
	response.Created(c, user.ToPublic())
}

// ListClubs handles GET /auth/clubs (public directory) and GET /auth/clubs-all
// (super admin listing; same rows, privileged route).
func (h *Handler) ListClubs(c *gin.Context) {
	list, err := h.users.ListClubs(c.Request.Context())
	if err != nil {
		h.logger.Error("list clubs failed", zap.Error(err))
		response.Internal(c, "failed to list clubs")
		return
	}
	response.OK(c, list)
}

// GetClub handles GET /auth/clubs/:id (public).
func (h *Handler) GetClub(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil || user.Role != models.RoleAdmin {
		if err != nil && !errors.Is(err, ErrNotFound) {
			response.Internal(c, "failed to load club")
			return
		}
		response.NotFound(c, "club not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// UpdateLogo handles PUT /auth/profile/logo (multipart, field "file").
func (h *Handler) UpdateLogo(c *gin.Context) {
	h.updateProfileMedia(c, storage.FolderLogos, true)
}

// UpdateBanner handles PUT /auth/profile/banner. Accepts an optional file and
// an optional "description" form field.
func (h *Handler) UpdateBanner(c *gin.Context) {
	h.updateProfileMedia(c, storage.FolderBanners, false)
}

func (h *Handler) updateProfileMedia(c *gin.Context, folder string, isLogo bool) {
	p, _ := authz.FromContext(c)

	var url string
	file, err := c.FormFile("file")
	if err == nil {
		if h.media == nil {
			response.Internal(c, "media storage not configured")
			return
		}
		url, err = h.uploadProfileFile(c, p.ID, folder, file)
		if err != nil {
			return // response already written
		}
	}

	description := c.PostForm("description")
	if url == "" && description == "" {
		response.BadRequest(c, "nothing to update")
		return
	}

	prev, err := h.users.GetByID(c.Request.Context(), p.ID)
	if err != nil {
		h.enqueueCleanupURL(c, url)
		response.Internal(c, "failed to load account")
		return
	}

	logoURL, bannerURL := "", ""
	replaced := ""
	if isLogo {
		logoURL = url
		replaced = prev.LogoURL
	} else {
		bannerURL = url
		replaced = prev.BannerURL
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), p.ID, description, logoURL, bannerURL)
	if err != nil {
		h.logger.Error("profile update failed", zap.Error(err), zap.String("user_id", p.ID.String()))
		// The upload succeeded but nothing references it; don't orphan it.
		h.enqueueCleanupURL(c, url)
		response.Internal(c, "failed to update profile")
		return
	}

	// The replaced object is no longer referenced; queue it for deletion.
	if url != "" && replaced != "" {
		h.enqueueCleanupURL(c, replaced)
	}
	response.OK(c, user.ToPublic())
}

func (h *Handler) uploadProfileFile(c *gin.Context, ownerID uuid.UUID, folder string, file *multipart.FileHeader) (string, error) {
	if file.Size > storage.MaxMediaFileSize {
		response.BadRequest(c, "file size exceeds 25MB limit")
		return "", errors.New("file too large")
	}
	contentType := file.Header.Get("Content-Type")
	if !storage.ValidateMediaType(contentType, file.Filename) {
		response.BadRequest(c, "unsupported file type")
		return "", errors.New("bad file type")
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(file.Filename)
	}

	rc, err := file.Open()
	if err != nil {
		response.Internal(c, "failed to read file")
		return "", err
	}
	defer rc.Close()

	key := storage.MediaKey(folder, ownerID, file.Filename)
	url, err := h.media.Upload(c.Request.Context(), key, contentType, rc, file.Size)
	if err != nil {
		h.logger.Error("profile media upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "media upload failed")
		return "", err
	}
	return url, nil
}

// DeleteClub handles DELETE /auth/clubs/:id (super admin only). The row and
// its dependents go first; object cleanup is queued and best-effort.
func (h *Handler) DeleteClub(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}

	club, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "club not found")
			return
		}
		response.Internal(c, "failed to load club")
		return
	}

	var keys []string
	if h.postKeys != nil {
		keys, err = h.postKeys.ListMediaKeysByClub(c.Request.Context(), id)
		if err != nil {
			h.logger.Warn("listing club media keys failed", zap.Error(err), zap.String("club_id", id.String()))
		}
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "club not found")
			return
		}
		h.logger.Error("club deletion failed", zap.Error(err), zap.String("club_id", id.String()))
		response.Internal(c, "failed to remove club")
		return
	}

	for _, key := range keys {
		h.enqueueCleanup(c, key)
	}
	h.enqueueCleanupURL(c, club.LogoURL)
	h.enqueueCleanupURL(c, club.BannerURL)

	response.OK(c, gin.H{"message": "club removed"})
}

func (h *Handler) enqueueCleanupURL(c *gin.Context, url string) {
	if key := storage.KeyFromURL(url); key != "" {
		h.enqueueCleanup(c, key)
	}
}

func (h *Handler) enqueueCleanup(c *gin.Context, key string) {
	if h.queue == nil || key == "" {
		return
	}
	if err := h.queue.EnqueueMediaCleanup(c.Request.Context(), queue.MediaCleanupPayload{Key: key}); err != nil {
		h.logger.Warn("media cleanup enqueue failed", zap.Error(err), zap.String("key", key))
	}
}
