package model

// RoleName is the value stored in permissions.role.
type RoleName string

const (
	RoleSysAdmin RoleName = "sysAdmin"
	RoleSuperior RoleName = "superior"
	RoleUser     RoleName = "user"
)

// Role levels with a dedicated name.  Every other level is a plain user.
const (
	LevelSysAdmin = 100
	LevelSuperior = 101
)

// ResolveRole maps a role level onto its name.  Unknown levels fall back to
// the least privileged role instead of failing.
func ResolveRole(level int) RoleName {
	switch level {
	case LevelSysAdmin:
		return RoleSysAdmin
	case LevelSuperior:
		return RoleSuperior
	default:
		return RoleUser
	}
}
