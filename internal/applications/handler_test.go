package applications_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/college-clubs/backend/internal/applications"
	"github.com/college-clubs/backend/internal/auth"
	"github.com/college-clubs/backend/internal/authz"
	"github.com/college-clubs/backend/internal/models"
)

type fakeStore struct {
	apps      map[uuid.UUID]*models.Application
	decideErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{apps: map[uuid.UUID]*models.Application{}}
}

func (f *fakeStore) Create(_ context.Context, a *models.Application) error {
	for _, ex := range f.apps {
		if ex.ClubID == a.ClubID && ex.StudentEmail == a.StudentEmail {
			return applications.ErrDuplicate
		}
	}
	a.ID = uuid.New()
	a.Status = models.StatusPending
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	f.apps[a.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	a, ok := f.apps[id]
	if !ok {
		return nil, applications.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ListByClub(_ context.Context, clubID uuid.UUID) ([]models.Application, error) {
	var list []models.Application
	for _, a := range f.apps {
		if a.ClubID == clubID {
			list = append(list, *a)
		}
	}
	return list, nil
}

// UpdateStatus mirrors the store's pending guard: only a pending row
// transitions, anything else reports the decision as already made.
func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.ApplicationStatus) (*models.Application, error) {
	if f.decideErr != nil {
		return nil, f.decideErr
	}
	a, ok := f.apps[id]
	if !ok || a.Status != models.StatusPending {
		return nil, applications.ErrAlreadyDecided
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

type fakeClubs struct{ clubs map[uuid.UUID]*models.User }

func (f *fakeClubs) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.clubs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return u, nil
}

func newAppRouter(h *applications.Handler, principal *authz.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/applications", h.Submit)
	authed := r.Group("")
	authed.Use(func(c *gin.Context) {
		if principal != nil {
			authz.Set(c, *principal)
		}
		c.Next()
	})
	authed.GET("/applications/mine", h.Mine)
	authed.PUT("/applications/:id/status", h.UpdateStatus)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func submitBody(clubID uuid.UUID, email string) string {
	return `{"club_id":"` + clubID.String() + `","student_name":"Asha","student_email":"` + email + `","roll_number":"CS-42","reason":"keen"}`
}

// One application per (club, student email): the second submission gets 409
// and the stored record stays untouched.
func TestSubmitDuplicate(t *testing.T) {
	clubID := uuid.New()
	clubs := &fakeClubs{clubs: map[uuid.UUID]*models.User{
		clubID: {ID: clubID, Email: "chess@college.edu", Role: models.RoleAdmin},
	}}
	store := newFakeStore()
	h := applications.NewHandler(store, clubs, nil)
	r := newAppRouter(h, nil)

	first := doJSON(r, http.MethodPost, "/applications", submitBody(clubID, "asha@college.edu"))
	second := doJSON(r, http.MethodPost, "/applications", submitBody(clubID, "asha@college.edu"))

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Len(t, store.apps, 1)
}

func TestSubmitClubLookup(t *testing.T) {
	superID := uuid.New()
	clubs := &fakeClubs{clubs: map[uuid.UUID]*models.User{
		superID: {ID: superID, Email: "boss@college.edu", Role: models.RoleSuperAdmin},
	}}
	h := applications.NewHandler(newFakeStore(), clubs, nil)
	r := newAppRouter(h, nil)

	t.Run("unknown club", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/applications", submitBody(uuid.New(), "asha@college.edu"))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	// The super admin account is not a club; applying to it is a 404 too.
	t.Run("super admin account", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/applications", submitBody(superID, "asha@college.edu"))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func seedApplication(store *fakeStore, clubID uuid.UUID, status models.ApplicationStatus) uuid.UUID {
	id := uuid.New()
	store.apps[id] = &models.Application{
		ID: id, ClubID: clubID, StudentName: "Asha",
		StudentEmail: "asha@college.edu", Status: status,
	}
	return id
}

func TestUpdateStatus(t *testing.T) {
	clubID := uuid.New()
	owner := authz.Principal{ID: clubID, Email: "chess@college.edu", Role: models.RoleAdmin}
	foreign := authz.Principal{ID: uuid.New(), Email: "drama@college.edu", Role: models.RoleAdmin}
	super := authz.Principal{ID: uuid.New(), Email: "boss@college.edu", Role: models.RoleSuperAdmin}

	tests := []struct {
		name       string
		principal  authz.Principal
		current    models.ApplicationStatus
		body       string
		wantStatus int
		wantStored models.ApplicationStatus
	}{
		{name: "owner accepts", principal: owner, current: models.StatusPending,
			body: `{"status":"accepted"}`, wantStatus: http.StatusOK, wantStored: models.StatusAccepted},
		{name: "super admin rejects", principal: super, current: models.StatusPending,
			body: `{"status":"rejected"}`, wantStatus: http.StatusOK, wantStored: models.StatusRejected},
		{name: "foreign club forbidden", principal: foreign, current: models.StatusPending,
			body: `{"status":"accepted"}`, wantStatus: http.StatusForbidden, wantStored: models.StatusPending},
		{name: "foreign club forbidden even when decided", principal: foreign, current: models.StatusAccepted,
			body: `{"status":"rejected"}`, wantStatus: http.StatusForbidden, wantStored: models.StatusAccepted},
		{name: "already decided", principal: owner, current: models.StatusAccepted,
			body: `{"status":"rejected"}`, wantStatus: http.StatusConflict, wantStored: models.StatusAccepted},
		{name: "outside the enum", principal: owner, current: models.StatusPending,
			body: `{"status":"approved"}`, wantStatus: http.StatusBadRequest, wantStored: models.StatusPending},
		{name: "back to pending", principal: owner, current: models.StatusPending,
			body: `{"status":"pending"}`, wantStatus: http.StatusBadRequest, wantStored: models.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			id := seedApplication(store, clubID, tt.current)
			h := applications.NewHandler(store, &fakeClubs{}, nil)
			r := newAppRouter(h, &tt.principal)

			w := doJSON(r, http.MethodPut, "/applications/"+id.String()+"/status", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStored, store.apps[id].Status)
		})
	}
}

func TestUpdateStatusUnknownID(t *testing.T) {
	owner := authz.Principal{ID: uuid.New(), Role: models.RoleAdmin}
	h := applications.NewHandler(newFakeStore(), &fakeClubs{}, nil)
	r := newAppRouter(h, &owner)

	w := doJSON(r, http.MethodPut, "/applications/"+uuid.New().String()+"/status", `{"status":"accepted"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// A decision that lands between the handler's read and its write loses to the
// store's pending guard and surfaces as a conflict, not a silent overwrite.
func TestUpdateStatusConcurrentDecision(t *testing.T) {
	clubID := uuid.New()
	owner := authz.Principal{ID: clubID, Email: "chess@college.edu", Role: models.RoleAdmin}

	store := newFakeStore()
	id := seedApplication(store, clubID, models.StatusPending)
	store.decideErr = applications.ErrAlreadyDecided

	h := applications.NewHandler(store, &fakeClubs{}, nil)
	r := newAppRouter(h, &owner)

	w := doJSON(r, http.MethodPut, "/applications/"+id.String()+"/status", `{"status":"accepted"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.StatusPending, store.apps[id].Status)
}
