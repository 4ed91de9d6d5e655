package controllers

import (
	"errors"
	"madrese_go/middleware"
	"madrese_go/services"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AttendanceController struct {
	service *services.AttendanceService
}

func NewAttendanceController(service *services.AttendanceService) *AttendanceController {
	return &AttendanceController{service: service}
}

// CreateSession opens a check-in event for a class on a Jalali date.
// Body: class_id, session_date (YYYY/MM/DD Jalali)
func (ac *AttendanceController) CreateSession(c *fiber.Ctx) error {
	var req struct {
		ClassID     uint   `json:"class_id" form:"class_id"`
		SessionDate string `json:"session_date" form:"session_date"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	session, err := ac.service.CreateSession(req.ClassID, req.SessionDate, claims.UserID)
	if err != nil {
		return ac.mapError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "attendance_sessions", session.ID, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Attendance session created",
		"session": session,
	})
}

// BulkMark applies a batch of status changes to one session's records.
// Body: marks: [{student_id, status, note}]
func (ac *AttendanceController) BulkMark(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	var req struct {
		Marks []services.Mark `json:"marks"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req.Marks) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No marks provided"})
	}

	session, err := ac.service.BulkMark(uint(id), req.Marks)
	if err != nil {
		return ac.mapError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "attendance_sessions", session.ID, fiber.Map{
		"marks": len(req.Marks),
	})

	return c.JSON(fiber.Map{
		"message": "Attendance updated",
		"session": session,
	})
}

// GetSession returns one session with its class and per-student records
func (ac *AttendanceController) GetSession(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	session, err := ac.service.GetSession(uint(id))
	if err != nil {
		return ac.mapError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

// GetSessions lists sessions for a class, optionally bounded by a Jalali
// date range. Query: class_id, from, to
func (ac *AttendanceController) GetSessions(c *fiber.Ctx) error {
	classID, err := strconv.ParseUint(c.Query("class_id", "0"), 10, 32)
	if err != nil || classID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "class_id is required"})
	}

	sessions, err := ac.service.ListSessions(uint(classID), c.Query("from"), c.Query("to"))
	if err != nil {
		return ac.mapError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

// GetLegacyAttendance returns the pre-migration per-row attendance history of
// one student. Read-only.
func (ac *AttendanceController) GetLegacyAttendance(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	rows, err := ac.service.LegacyByStudent(uint(id))
	if err != nil {
		return ac.mapError(c, err)
	}

	return c.JSON(fiber.Map{"attendance": rows})
}

func (ac *AttendanceController) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrSessionExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrClassUnavailable),
		errors.Is(err, services.ErrEmptyRoster):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		logrus.WithError(err).Error("Attendance operation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
