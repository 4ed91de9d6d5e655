package routes

import (
	"madrese_go/controllers"
	"madrese_go/middleware"
	"madrese_go/services"
	"madrese_go/services/students"
	ws "madrese_go/services/websocket"
	"madrese_go/storage"

	"github.com/gofiber/fiber/v2"
)

// Deps carries the long-lived services the HTTP layer is wired to.
type Deps struct {
	Hub        *ws.Hub
	Students   *students.Service
	Attendance *services.AttendanceService
	LogArchive *services.LogArchiveService
	Storage    *storage.StorageService
}

// SetupRoutes registers the full API surface.
func SetupRoutes(app *fiber.App, deps Deps) {
	authController := controllers.NewAuthController()
	studentController := controllers.NewStudentController(deps.Students, deps.Storage)
	teacherController := controllers.NewTeacherController(deps.Hub, deps.Storage)
	classController := controllers.NewClassController(deps.Hub)
	attendanceController := controllers.NewAttendanceController(deps.Attendance)
	exportController := controllers.NewExportController()
	userController := controllers.NewUserController(deps.Storage)
	notificationController := controllers.NewNotificationController()
	logController := controllers.NewLogController(deps.LogArchive)
	wsController := controllers.NewWebSocketController(deps.Hub)
	healthController := controllers.NewHealthController(deps.Hub)

	app.Get("/health", healthController.Health)

	// Real-time event stream (token in query, see WebSocketController)
	app.Use("/ws", wsController.UpgradeRequired)
	app.Get("/ws", wsController.Handle())

	api := app.Group("/api")

	// Public
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)

	// Authenticated
	protected := api.Group("", middleware.JWTMiddleware(), middleware.LogActivityMiddleware())

	protected.Get("/auth/profile", authController.GetProfile)
	protected.Post("/auth/change-password", authController.ChangePassword)
	protected.Post("/auth/avatar", userController.UploadAvatar)

	// Students
	studentsGroup := protected.Group("/students", middleware.RequireStaffOrAdmin())
	studentsGroup.Get("/", studentController.GetStudents)
	studentsGroup.Get("/export", exportController.ExportStudents)
	studentsGroup.Get("/:id", studentController.GetStudent)
	studentsGroup.Post("/", studentController.CreateStudent)
	studentsGroup.Put("/:id", studentController.UpdateStudent)
	studentsGroup.Post("/:id/deactivate", studentController.DeactivateStudent)
	studentsGroup.Post("/:id/restore", studentController.RestoreStudent)
	studentsGroup.Delete("/:id", middleware.RequireAdmin(), studentController.HardDeleteStudent)
	studentsGroup.Get("/:id/legacy-attendance", attendanceController.GetLegacyAttendance)

	// Teachers
	teachersGroup := protected.Group("/teachers", middleware.RequireStaffOrAdmin())
	teachersGroup.Get("/", teacherController.GetTeachers)
	teachersGroup.Get("/:id", teacherController.GetTeacher)
	teachersGroup.Post("/", teacherController.CreateTeacher)
	teachersGroup.Put("/:id", teacherController.UpdateTeacher)
	teachersGroup.Post("/:id/deactivate", teacherController.DeactivateTeacher)
	teachersGroup.Post("/:id/restore", teacherController.RestoreTeacher)
	teachersGroup.Delete("/:id", middleware.RequireAdmin(), teacherController.HardDeleteTeacher)

	// Classes
	classesGroup := protected.Group("/classes", middleware.RequireStaffOrAdmin())
	classesGroup.Get("/", classController.GetClasses)
	classesGroup.Get("/:id", classController.GetClass)
	classesGroup.Post("/", classController.CreateClass)
	classesGroup.Put("/:id", classController.UpdateClass)
	classesGroup.Post("/:id/deactivate", classController.DeactivateClass)
	classesGroup.Post("/:id/restore", classController.RestoreClass)
	classesGroup.Delete("/:id", middleware.RequireAdmin(), classController.HardDeleteClass)

	// Attendance
	attendanceGroup := protected.Group("/attendance", middleware.RequireStaffOrAdmin())
	attendanceGroup.Get("/sessions", attendanceController.GetSessions)
	attendanceGroup.Get("/sessions/:id", attendanceController.GetSession)
	attendanceGroup.Post("/sessions", attendanceController.CreateSession)
	attendanceGroup.Put("/sessions/:id/marks", attendanceController.BulkMark)

	// Notifications
	notificationsGroup := protected.Group("/notifications")
	notificationsGroup.Get("/", notificationController.GetNotifications)
	notificationsGroup.Get("/unread-count", notificationController.GetUnreadCount)
	notificationsGroup.Put("/:id/read", notificationController.MarkAsRead)
	notificationsGroup.Put("/read-all", notificationController.MarkAllAsRead)
	notificationsGroup.Delete("/:id", notificationController.DeleteNotification)

	// Admin-only
	adminGroup := protected.Group("", middleware.RequireAdmin())
	adminGroup.Get("/users", userController.GetUsers)
	adminGroup.Post("/users", userController.CreateUser)
	adminGroup.Put("/users/:id", userController.UpdateUser)
	adminGroup.Delete("/users/:id", userController.DeleteUser)
	adminGroup.Get("/logs", logController.GetLogs)
	adminGroup.Post("/logs/flush", logController.FlushCache)
	adminGroup.Get("/logs/archives", logController.GetArchives)
	adminGroup.Get("/logs/archives/:id/download", logController.DownloadArchive)
}
