package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("POST "+RouteUserLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteUserMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))

	s.RegisterRouteFunc("GET "+RouteMyTasks, ChainMiddleware(s.MyTasksHandler(), s.APIMiddleware(s.RequireAuth())...))

	s.RegisterRouteFunc("POST "+RouteScreenshotUpload, ChainMiddleware(s.UploadScreenshotHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("GET "+RouteScreenshot, ChainMiddleware(s.ScreenshotHandler(), s.APIMiddleware(s.RequireAuth())...))
}
