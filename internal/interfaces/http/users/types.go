package users

import (
	"strings"

	"github.com/sngm3741/survey-haven/api/internal/user/domain"
)

type existsResponse struct {
	Message    string  `json:"message"`
	InsertedID *string `json:"insertedId"`
}

// userFromPayload は email/role を取り出し、残りの項目をプロフィールとしてそのまま保持する。
func userFromPayload(payload map[string]any) domain.User {
	user := domain.User{Profile: make(map[string]any, len(payload))}
	for key, value := range payload {
		switch key {
		case "_id":
		case "email":
			if email, ok := value.(string); ok {
				user.Email = strings.TrimSpace(email)
			}
		case "role":
			if role, ok := value.(string); ok {
				user.Role = domain.ParseRole(role)
			}
		default:
			user.Profile[key] = value
		}
	}
	return user
}

// userResponse renders the stored user as its document shape.
func userResponse(user domain.User) map[string]any {
	out := make(map[string]any, len(user.Profile)+3)
	for key, value := range user.Profile {
		out[key] = value
	}
	out["_id"] = user.ID
	out["email"] = user.Email
	if user.Role != domain.RoleNone {
		out["role"] = string(user.Role)
	}
	return out
}
