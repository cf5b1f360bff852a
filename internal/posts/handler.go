package posts

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/college-clubs/backend/internal/authz"
	"github.com/college-clubs/backend/internal/models"
	"github.com/college-clubs/backend/pkg/queue"
	"github.com/college-clubs/backend/pkg/response"
	"github.com/college-clubs/backend/pkg/storage"
)

// MediaStore uploads post media objects. *storage.S3 implements it.
type MediaStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
}

// CleanupQueue schedules best-effort deletion of storage objects.
// *queue.Queue implements it.
type CleanupQueue interface {
	EnqueueMediaCleanup(ctx context.Context, payload queue.MediaCleanupPayload) error
}

// Handler handles post HTTP endpoints.
type Handler struct {
	repo   *Repository
	store  MediaStore
	queue  CleanupQueue
	logger *zap.Logger
}

// NewHandler creates a posts handler. store may be nil when S3 is not
// configured; creation then fails cleanly.
func NewHandler(repo *Repository, store MediaStore, q CleanupQueue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, store: store, queue: q, logger: logger}
}

// Create handles POST /posts (multipart: "file" required, "caption" optional).
// Two-phase: the object is uploaded first and the row written second, so a
// failed upload never leaves a dangling media reference. If the insert fails
// after a successful upload, the orphaned object is queued for deletion.
func (h *Handler) Create(c *gin.Context) {
	if h.store == nil {
		response.Internal(c, "media storage not configured")
		return
	}
	p, _ := authz.FromContext(c)

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	if file.Size > storage.MaxMediaFileSize {
		response.BadRequest(c, "file size exceeds 25MB limit")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !storage.ValidateMediaType(contentType, file.Filename) {
		response.BadRequest(c, "unsupported file type: images, mp4 video and pdf allowed")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(file.Filename)
	}

	rc, err := file.Open()
	if err != nil {
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	key := storage.MediaKey(storage.FolderPosts, p.ID, file.Filename)
	url, err := h.store.Upload(c.Request.Context(), key, contentType, rc, file.Size)
	if err != nil {
		h.logger.Error("media upload failed", zap.Error(err), zap.String("key", key), zap.String("club_id", p.ID.String()))
		response.Internal(c, "media upload failed")
		return
	}

	post := &models.Post{
		ClubID:    p.ID,
		Caption:   c.PostForm("caption"),
		MediaURL:  url,
		MediaKey:  key,
		MediaKind: storage.KindForContentType(contentType),
	}
	if err := h.repo.Create(c.Request.Context(), post); err != nil {
		h.logger.Error("post insert failed", zap.Error(err), zap.String("key", key))
		h.enqueueCleanup(c, key)
		response.Internal(c, "failed to create post")
		return
	}
	response.Created(c, post)
}

// Feed handles GET /posts/feed (public, newest first).
func (h *Handler) Feed(c *gin.Context) {
	list, err := h.repo.Feed(c.Request.Context())
	if err != nil {
		h.logger.Error("feed query failed", zap.Error(err))
		response.Internal(c, "failed to load feed")
		return
	}
	response.OK(c, list)
}

// Mine handles GET /posts/mine: the requesting club's own posts.
func (h *Handler) Mine(c *gin.Context) {
	p, _ := authz.FromContext(c)
	list, err := h.repo.ListByClub(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.Error("my posts query failed", zap.Error(err), zap.String("club_id", p.ID.String()))
		response.Internal(c, "failed to load posts")
		return
	}
	response.OK(c, list)
}

// ByClub handles GET /posts/club/:id (public).
func (h *Handler) ByClub(c *gin.Context) {
	clubID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	list, err := h.repo.FeedByClub(c.Request.Context(), clubID)
	if err != nil {
		h.logger.Error("club posts query failed", zap.Error(err), zap.String("club_id", clubID.String()))
		response.Internal(c, "failed to load posts")
		return
	}
	response.OK(c, list)
}

// Delete handles DELETE /posts/:id. Owner or super admin only. The row goes
// first; object deletion is queued and its failure never blocks the removal.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}

	post, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "post not found")
			return
		}
		response.Internal(c, "failed to load post")
		return
	}

	p, _ := authz.FromContext(c)
	if !authz.CanMutate(post.ClubID, p) {
		response.Forbidden(c, "not authorized to delete this post")
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "post not found")
			return
		}
		h.logger.Error("post delete failed", zap.Error(err), zap.String("post_id", id.String()))
		response.Internal(c, "failed to delete post")
		return
	}

	h.enqueueCleanup(c, post.MediaKey)
	response.OK(c, gin.H{"message": "post removed"})
}

func (h *Handler) enqueueCleanup(c *gin.Context, key string) {
	if h.queue == nil || key == "" {
		return
	}
	if err := h.queue.EnqueueMediaCleanup(c.Request.Context(), queue.MediaCleanupPayload{Key: key}); err != nil {
		h.logger.Warn("media cleanup enqueue failed", zap.Error(err), zap.String("key", key))
	}
}
