package domain

import "strings"

// Role は利用者に付与される権限区分。空文字は一般ユーザーを表す。
type Role string

const (
	RoleNone     Role = ""
	RoleAdmin    Role = "admin"
	RoleSurveyor Role = "surveyor"
)

// ParseRole normalises a role label. Unknown labels are kept verbatim so that
// listing by an arbitrary stored role still works.
func ParseRole(value string) Role {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "admin":
		return RoleAdmin
	case "surveyor":
		return RoleSurveyor
	case "", "none":
		return RoleNone
	}
	return Role(value)
}

// Privileged reports whether the role is one that can be granted by promotion.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleSurveyor
}

// User は users コレクションの 1 レコード。Email が同一性のキーで、それ以外のプロフィール項目は Profile にそのまま保持する。
type User struct {
	ID      string
	Email   string
	Role    Role
	Profile map[string]any
}
