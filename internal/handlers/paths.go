package handlers

const (
	PathHealth  = "/health"
	PathMetrics = "/metrics"

	PathDiscordLogin    = "/auth/discord/login"
	PathDiscordCallback = "/auth/discord/callback"

	PathAuthRegister = "/api/auth/register"
	PathAuthLogin    = "/api/auth/login"
	PathAuthLogout   = "/api/auth/logout"
	PathAuthProfile  = "/api/auth/profile"
	PathAuthRefresh  = "/api/auth/refresh"

	PathEvents             = "/api/events"
	PathEvent              = "/api/events/{id}"
	PathEventRegister      = "/api/events/{id}/register"
	PathEventRegistrations = "/api/events/{id}/registrations"

	PathRegistrations = "/api/registrations"
	PathCategories    = "/api/categories"
	PathDashboard     = "/api/dashboard"
	PathStats         = "/api/stats"
)
