package models

// Role is the closed set of platform roles carried over from the legacy store.
type Role string

const (
	RoleStudent             Role = "student"
	RoleTeacher             Role = "teacher"
	RoleChapterAdmin        Role = "chapter_admin"
	RoleRegionalCoordinator Role = "regional_coordinator"
	RoleAdmin               Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleChapterAdmin, RoleRegionalCoordinator, RoleAdmin:
		return true
	}
	return false
}

// LegacyUser is a row of the pre-existing credential store. Only the
// migration engine writes to it, and only Migrated and ModernUserID.
type LegacyUser struct {
	ID            string
	Email         string
	PasswordHash  string
	Role          Role
	ChapterID     *string
	DisplayName   string
	EmailVerified bool
	Active        bool
	Migrated      bool
	ModernUserID  *string
}
