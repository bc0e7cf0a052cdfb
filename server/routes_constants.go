package server

// Route path constants
const (
	RouteHealth = "/health"

	// Session
	RouteUserLogin = "/user/login"
	RouteUserMe    = "/user/me"

	// Tasks
	RouteMyTasks = "/task/my-tasks"

	// Screenshots
	RouteScreenshotUpload = "/screenshots/upload"
	RouteScreenshot       = "/screenshots/{id}"
)
