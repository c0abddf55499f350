package core

// Role identifies the organizational position and specialty of an agent.
// The set is sealed: delegation wiring, task targeting and configuration
// validation all assume one of the constants below.
type Role string

const (
	// RoleCoordinator is the single top-tier agent that owns the managers.
	RoleCoordinator Role = "coordinator"

	// Manager roles (middle tier). Each manager owns a group of specialists.
	RoleContentManager   Role = "content_manager"
	RoleSocialManager    Role = "social_manager"
	RoleAnalyticsManager Role = "analytics_manager"

	// Specialist roles (leaf tier).
	RoleContentWriter     Role = "content_writer"
	RoleSEOSpecialist     Role = "seo_specialist"
	RoleEmailSpecialist   Role = "email_specialist"
	RoleSocialPoster      Role = "social_poster"
	RoleAnalyticsReporter Role = "analytics_reporter"
)

// Tier categorizes roles by their position in the delegation hierarchy.
type Tier int

const (
	// TierCoordinator is the top of the hierarchy.
	TierCoordinator Tier = iota
	// TierManager sits between the coordinator and the specialists.
	TierManager
	// TierSpecialist is the leaf tier performing concrete operations.
	TierSpecialist
)

// String returns the human-readable tier name.
func (t Tier) String() string {
	switch t {
	case TierCoordinator:
		return "coordinator"
	case TierManager:
		return "manager"
	case TierSpecialist:
		return "specialist"
	default:
		return "unknown"
	}
}

// Tier returns the hierarchy tier of the role. Unknown roles report
// TierSpecialist; use Valid to reject them before relying on this.
func (r Role) Tier() Tier {
	switch r {
	case RoleCoordinator:
		return TierCoordinator
	case RoleContentManager, RoleSocialManager, RoleAnalyticsManager:
		return TierManager
	default:
		return TierSpecialist
	}
}

// Valid reports whether the role is part of the sealed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleCoordinator,
		RoleContentManager, RoleSocialManager, RoleAnalyticsManager,
		RoleContentWriter, RoleSEOSpecialist, RoleEmailSpecialist,
		RoleSocialPoster, RoleAnalyticsReporter:
		return true
	default:
		return false
	}
}

// ManagerRoles returns the middle-tier roles in a stable order.
func ManagerRoles() []Role {
	return []Role{RoleContentManager, RoleSocialManager, RoleAnalyticsManager}
}

// SpecialistRoles returns the leaf-tier roles in a stable order.
func SpecialistRoles() []Role {
	return []Role{
		RoleContentWriter, RoleSEOSpecialist, RoleEmailSpecialist,
		RoleSocialPoster, RoleAnalyticsReporter,
	}
}
