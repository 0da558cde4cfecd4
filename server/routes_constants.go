package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth = "/healthz"

	// Technician routes
	RouteQRLogin     = "/api/auth/qr-login"
	RouteSession     = "/api/auth/session"
	RouteJobFeedback = "/api/jobs/{jobId}/feedback"

	// Admin routes
	RouteAdminLogin         = "/api/admin/login"
	RouteAdminUsers         = "/api/admin/users"
	RouteAdminUser          = "/api/admin/users/{id}"
	RouteAdminResetPassword = "/api/admin/users/{id}/reset-password"
	RouteAdminQR            = "/api/admin/qr"
	RouteAdminFeedback      = "/api/admin/feedback"
)
