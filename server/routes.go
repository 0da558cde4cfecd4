package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// Technician
	s.RegisterRouteHandler("POST "+RouteQRLogin, ChainMiddleware(s.QRLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware(s.RequireTechnician())...))
	s.RegisterRouteHandler("POST "+RouteJobFeedback, ChainMiddleware(s.SubmitFeedbackHandler(), s.APIMiddleware(s.RequireTechnician())...))

	// Admin
	s.RegisterRouteHandler("POST "+RouteAdminLogin, ChainMiddleware(s.AdminLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAdminUsers, ChainMiddleware(s.AdminUsersListHandler(), s.APIMiddleware(s.RequireAdmin())...))
	s.RegisterRouteHandler("POST "+RouteAdminUsers, ChainMiddleware(s.AdminCreateUserHandler(), s.APIMiddleware(s.RequireAdmin())...))
	s.RegisterRouteHandler("DELETE "+RouteAdminUser, ChainMiddleware(s.AdminDeleteUserHandler(), s.APIMiddleware(s.RequireAdmin())...))
	s.RegisterRouteHandler("POST "+RouteAdminResetPassword, ChainMiddleware(s.AdminResetPasswordHandler(), s.APIMiddleware(s.RequireAdmin())...))
	s.RegisterRouteHandler("POST "+RouteAdminQR, ChainMiddleware(s.AdminGenerateQRHandler(), s.APIMiddleware(s.RequireAdmin())...))
	s.RegisterRouteHandler("GET "+RouteAdminFeedback, ChainMiddleware(s.AdminFeedbackListHandler(), s.APIMiddleware(s.RequireAdmin())...))
}
