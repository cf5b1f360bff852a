package applications

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/college-clubs/backend/internal/auth"
	"github.com/college-clubs/backend/internal/authz"
	"github.com/college-clubs/backend/internal/models"
	"github.com/college-clubs/backend/pkg/response"
)

// Store is the application persistence the handler depends on.
// *Repository implements it.
type Store interface {
	Create(ctx context.Context, a *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListByClub(ctx context.Context, clubID uuid.UUID) ([]models.Application, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) (*models.Application, error)
}

// ClubDirectory resolves club accounts; errors follow auth.ErrNotFound.
// *auth.Repository implements it.
type ClubDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SubmitRequest is the body for POST /applications (public, unauthenticated).
type SubmitRequest struct {
	ClubID       uuid.UUID `json:"club_id" binding:"required"`
	StudentName  string    `json:"student_name" binding:"required"`
	StudentEmail string    `json:"student_email" binding:"required,email"`
	RollNumber   string    `json:"roll_number"`
	Reason       string    `json:"reason"`
}

// UpdateStatusRequest is the body for PUT /applications/:id/status.
type UpdateStatusRequest struct {
	Status models.ApplicationStatus `json:"status" binding:"required"`
}

// Handler handles application HTTP endpoints.
type Handler struct {
	store  Store
	clubs  ClubDirectory
	logger *zap.Logger
}

// NewHandler creates an applications handler.
func NewHandler(store Store, clubs ClubDirectory, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, clubs: clubs, logger: logger}
}

// Submit handles POST /applications. One application per (club, student email);
// a repeat submission gets 409 and leaves the stored record untouched.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	club, err := h.clubs.GetByID(c.Request.Context(), req.ClubID)
	if err != nil || club.Role != models.RoleAdmin {
		if err != nil && !errors.Is(err, auth.ErrNotFound) {
			response.Internal(c, "failed to verify club")
			return
		}
		response.NotFound(c, "club not found")
		return
	}

	app := &models.Application{
		ClubID:       req.ClubID,
		StudentName:  req.StudentName,
		StudentEmail: req.StudentEmail,
		RollNumber:   req.RollNumber,
		Reason:       req.Reason,
	}
	if err := h.store.Create(c.Request.Context(), app); err != nil {
		if errors.Is(err, ErrDuplicate) {
			response.Conflict(c, "you have already applied to this club")
			return
		}
		h.logger.Error("application create failed", zap.Error(err), zap.String("club_id", req.ClubID.String()))
		response.Internal(c, "failed to submit application")
		return
	}
	response.Created(c, app)
}

// Mine handles GET /applications/mine: applications targeting the requesting
// club. The super admin may pass ?club_id= to inspect any club's applications.
func (h *Handler) Mine(c *gin.Context) {
	p, _ := authz.FromContext(c)

	clubID := p.ID
	if raw := c.Query("club_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid club id")
			return
		}
		if !authz.CanReadOwned(id, p) {
			response.Forbidden(c, "not authorized for this club's applications")
			return
		}
		clubID = id
	}

	list, err := h.store.ListByClub(c.Request.Context(), clubID)
	if err != nil {
		h.logger.Error("applications query failed", zap.Error(err), zap.String("club_id", clubID.String()))
		response.Internal(c, "failed to load applications")
		return
	}
	response.OK(c, list)
}

// UpdateStatus handles PUT /applications/:id/status. Ownership is checked
// before anything about the transition itself, so a foreign club always sees
// 403 regardless of the application's state. accepted/rejected are terminal.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid application id")
		return
	}

	app, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "application not found")
			return
		}
		response.Internal(c, "failed to load application")
		return
	}

	p, _ := authz.FromContext(c)
	if !authz.CanMutate(app.ClubID, p) {
		response.Forbidden(c, "not authorized to decide this application")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !req.Status.Valid() || req.Status == models.StatusPending {
		response.BadRequest(c, "status must be accepted or rejected")
		return
	}
	if app.Status.Terminal() {
		response.Conflict(c, "application already decided")
		return
	}

	updated, err := h.store.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		// A concurrent decision can land between the read above and the
		// update; the store's pending guard catches it.
		if errors.Is(err, ErrAlreadyDecided) {
			response.Conflict(c, "application already decided")
			return
		}
		h.logger.Error("status update failed", zap.Error(err), zap.String("application_id", id.String()))
		response.Internal(c, "failed to update application")
		return
	}
	response.OK(c, updated)
}
