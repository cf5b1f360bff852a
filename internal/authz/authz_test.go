package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/college-clubs/backend/internal/authz"
	"github.com/college-clubs/backend/internal/models"
)

func TestCanMutate(t *testing.T) {
	ownerID := uuid.New()
	otherID := uuid.New()
	superID := uuid.New()

	tests := []struct {
		name string
		p    authz.Principal
		want bool
	}{
		{
			name: "owner may mutate",
			p:    authz.Principal{ID: ownerID, Role: models.RoleAdmin},
			want: true,
		},
		{
			name: "other admin may not",
			p:    authz.Principal{ID: otherID, Role: models.RoleAdmin},
			want: false,
		},
		{
			name: "super admin may mutate anything",
			p:    authz.Principal{ID: superID, Role: models.RoleSuperAdmin},
			want: true,
		},
		{
			name: "unauthenticated zero principal may not",
			p:    authz.Principal{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authz.CanMutate(ownerID, tt.p))
			// Owner-scoped reads use the same predicate.
			assert.Equal(t, tt.want, authz.CanReadOwned(ownerID, tt.p))
		})
	}
}

func TestFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := authz.FromContext(c)
	assert.False(t, ok, "no principal before authentication")

	want := authz.Principal{ID: uuid.New(), Email: "chess@college.edu", Role: models.RoleAdmin}
	authz.Set(c, want)

	got, ok := authz.FromContext(c)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}
