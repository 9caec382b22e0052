package auth

import "civicvoice/internal/model"

// Operation names a protected capability.
type Operation string

const (
	OpProfileView     Operation = "profile:view"
	OpProfileEdit     Operation = "profile:edit"
	OpPostCreate      Operation = "post:create"
	OpPostLike        Operation = "post:like"
	OpPostComment     Operation = "post:comment"
	OpPostReport      Operation = "post:report"
	OpPostEditOwn     Operation = "post:edit-own"
	OpPostDeleteOwn   Operation = "post:delete-own"
	OpUserFollow      Operation = "user:follow"
	OpRatingSubmit    Operation = "rating:submit"
	OpContentModerate Operation = "content:moderate"
	OpAnalyticsView   Operation = "analytics:view"
	OpUsersManage     Operation = "users:manage"
)

func roles(rs ...model.Role) map[model.Role]struct{} {
	set := make(map[model.Role]struct{}, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return set
}

var (
	members = roles(model.RoleUser, model.RoleModerator, model.RoleAdmin)
	staff   = roles(model.RoleModerator, model.RoleAdmin)
	admins  = roles(model.RoleAdmin)
)

// capabilities maps each operation to the exact set of roles allowed to
// perform it. An operation missing from the table is allowed to nobody.
var capabilities = map[Operation]map[model.Role]struct{}{
	OpProfileView:     members,
	OpProfileEdit:     members,
	OpPostCreate:      members,
	OpPostLike:        members,
	OpPostComment:     members,
	OpPostReport:      members,
	OpPostEditOwn:     members,
	OpPostDeleteOwn:   members,
	OpUserFollow:      members,
	OpRatingSubmit:    members,
	OpContentModerate: staff,
	OpAnalyticsView:   admins,
	OpUsersManage:     admins,
}

// Allowed reports whether role may perform op.
func Allowed(role model.Role, op Operation) bool {
	allowed, ok := capabilities[op]
	if !ok {
		return false
	}
	_, ok = allowed[role]
	return ok
}
