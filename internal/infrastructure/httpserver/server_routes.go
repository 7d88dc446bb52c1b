package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	s.echo.GET("/roast", s.roast)

	admin := s.echo.Group("/admin")
	admin.POST("/refresh-avatars", s.refreshAvatars)
	admin.GET("/report", s.report)
}
