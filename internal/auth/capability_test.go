package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"civicvoice/internal/model"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		op        Operation
		user      bool
		moderator bool
		admin     bool
	}{
		{OpProfileView, true, true, true},
		{OpPostCreate, true, true, true},
		{OpPostLike, true, true, true},
		{OpPostComment, true, true, true},
		{OpPostEditOwn, true, true, true},
		{OpPostDeleteOwn, true, true, true},
		{OpUserFollow, true, true, true},
		{OpRatingSubmit, true, true, true},
		{OpContentModerate, false, true, true},
		{OpAnalyticsView, false, false, true},
		{OpUsersManage, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.user, Allowed(model.RoleUser, tt.op))
			assert.Equal(t, tt.moderator, Allowed(model.RoleModerator, tt.op))
			assert.Equal(t, tt.admin, Allowed(model.RoleAdmin, tt.op))
		})
	}
}

func TestAllowed_UnknownRoleAndOperation(t *testing.T) {
	assert.False(t, Allowed(model.Role("superadmin"), OpAnalyticsView))
	assert.False(t, Allowed(model.RoleAdmin, Operation("billing:refund")))
}
