package auth

import "github.com/admitai/admitai-korea/internal/db/models"

// ladder ranks the organization roles; a higher rank includes every lower one.
var ladder = map[string]int{
	models.RoleMember:     1,
	models.RoleInstructor: 2,
	models.RoleAdmin:      3,
	models.RoleOwner:      4,
}

// legacyRoles maps the self-registration roles onto the ladder.
var legacyRoles = map[string]string{
	models.RoleStudent: models.RoleMember,
	models.RoleParent:  models.RoleMember,
	models.RoleMentor:  models.RoleInstructor,
}

// NormalizeRole maps a stored role onto its ladder equivalent. Roles already on
// the ladder and unknown roles are returned unchanged.
func NormalizeRole(role string) string {
	if mapped, ok := legacyRoles[role]; ok {
		return mapped
	}
	return role
}

// HasRole reports whether a user holding role satisfies any of the required
// roles. Ladder roles are compared by rank; a required role that is not on the
// ladder must match exactly.
func HasRole(role string, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	effective := NormalizeRole(role)
	rank, onLadder := ladder[effective]

	for _, req := range required {
		if req == role {
			return true
		}
		reqRank, reqOnLadder := ladder[NormalizeRole(req)]
		if !reqOnLadder {
			continue
		}
		if onLadder && rank >= reqRank {
			return true
		}
	}
	return false
}
