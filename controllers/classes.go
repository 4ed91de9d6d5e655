package controllers

import (
	"madrese_go/database"
	"madrese_go/middleware"
	"madrese_go/models"
	ws "madrese_go/services/websocket"
	"madrese_go/utils"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ClassController manages classes. Classes share the soft-delete lifecycle but
// carry no concurrency token; last write wins on edits.
type ClassController struct {
	hub *ws.Hub
}

func NewClassController(hub *ws.Hub) *ClassController {
	return &ClassController{hub: hub}
}

// GetClasses returns all classes with teacher and active-student counts
func (cc *ClassController) GetClasses(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Class{}).Preload("Teacher")
	if c.Query("show_inactive") != "true" {
		query = query.Where("is_active = ?", true)
	}

	var classes []models.Class
	if err := query.Order("grade, name").Find(&classes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch classes",
		})
	}

	counts := make(map[uint]int64, len(classes))
	type row struct {
		ClassID uint
		N       int64
	}
	var rows []row
	database.DB.Model(&models.Student{}).
		Select("class_id, COUNT(*) as n").
		Where("class_id IS NOT NULL AND is_active = ?", true).
		Group("class_id").Scan(&rows)
	for _, r := range rows {
		counts[r.ClassID] = r.N
	}

	type classWithCount struct {
		models.Class
		StudentCount int64 `json:"student_count"`
	}
	out := make([]classWithCount, 0, len(classes))
	for _, cl := range classes {
		out = append(out, classWithCount{Class: cl, StudentCount: counts[cl.ID]})
	}

	return c.JSON(fiber.Map{"classes": out})
}

// GetClass returns a class with its teacher and active roster
func (cc *ClassController) GetClass(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class ID"})
	}

	var class models.Class
	if err := database.DB.Preload("Teacher").
		Preload("Students", "is_active = ?", true).
		First(&class, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class not found"})
	}

	return c.JSON(fiber.Map{"class": class})
}

// CreateClass creates a new class
func (cc *ClassController) CreateClass(c *fiber.Ctx) error {
	var class models.Class
	if err := c.BodyParser(&class); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	class.Name = utils.SanitizeString(class.Name)
	if class.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Class name is required"})
	}
	if class.TeacherID != nil {
		var teacher models.Teacher
		if err := database.DB.Where("id = ? AND is_active = ?", *class.TeacherID, true).
			First(&teacher).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Teacher not found or inactive"})
		}
	}

	class.IsActive = true
	class.DeletedAt = nil

	if err := database.DB.Create(&class).Error; err != nil {
		logrus.WithError(err).Error("Failed to create class")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create class"})
	}

	middleware.LogActivity(c, "CREATE", "classes", class.ID, class)
	cc.hub.BroadcastEvent(ws.EventClassCreated, class)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Class created successfully",
		"class":   class,
	})
}

// UpdateClass edits a class (no concurrency token, last write wins)
func (cc *ClassController) UpdateClass(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class ID"})
	}

	var class models.Class
	if err := database.DB.First(&class, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class not found"})
	}

	var req struct {
		Name      string `json:"name" form:"name"`
		Grade     string `json:"grade" form:"grade"`
		Room      string `json:"room" form:"room"`
		Capacity  int    `json:"capacity" form:"capacity"`
		TeacherID *uint  `json:"teacher_id" form:"teacher_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.TeacherID != nil {
		var teacher models.Teacher
		if err := database.DB.Where("id = ? AND is_active = ?", *req.TeacherID, true).
			First(&teacher).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Teacher not found or inactive"})
		}
	}

	updates := map[string]interface{}{
		"name":       utils.SanitizeString(req.Name),
		"grade":      utils.SanitizeString(req.Grade),
		"room":       utils.SanitizeString(req.Room),
		"capacity":   req.Capacity,
		"teacher_id": req.TeacherID,
	}
	if err := database.DB.Model(&class).Updates(updates).Error; err != nil {
		logrus.WithError(err).Error("Failed to update class")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update class"})
	}

	database.DB.Preload("Teacher").First(&class, uint(id))
	middleware.LogActivity(c, "UPDATE", "classes", class.ID, req)
	cc.hub.BroadcastEvent(ws.EventClassUpdated, class)

	return c.JSON(fiber.Map{
		"message": "Class updated successfully",
		"class":   class,
	})
}

// DeactivateClass soft-deletes a class. Enrolled students keep their class_id;
// the class simply stops accepting attendance sessions.
func (cc *ClassController) DeactivateClass(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class ID"})
	}

	var req struct {
		Reason string `json:"reason" form:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A non-empty reason is required"})
	}

	var class models.Class
	if err := database.DB.First(&class, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class not found"})
	}

	if !class.IsActive {
		return c.JSON(fiber.Map{
			"message": "Class is already inactive",
			"class":   class,
			"changed": false,
		})
	}

	claims, _ := middleware.GetCurrentClaims(c)
	var actorID *uint
	if claims != nil {
		actorID = &claims.UserID
	}
	class.SoftDelete.Deactivate(strings.TrimSpace(req.Reason), actorID)

	if err := database.DB.Save(&class).Error; err != nil {
		logrus.WithError(err).Error("Failed to deactivate class")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to deactivate class"})
	}

	middleware.LogActivity(c, "DEACTIVATE", "classes", class.ID, fiber.Map{"reason": req.Reason})
	cc.hub.BroadcastEvent(ws.EventClassDeactivated, class)

	return c.JSON(fiber.Map{
		"message": "Class deactivated successfully",
		"class":   class,
		"changed": true,
	})
}

// RestoreClass re-activates a soft-deleted class
func (cc *ClassController) RestoreClass(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class ID"})
	}

	var class models.Class
	if err := database.DB.First(&class, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class not found"})
	}

	if !class.IsActive {
		class.SoftDelete.Restore()
		if err := database.DB.Save(&class).Error; err != nil {
			logrus.WithError(err).Error("Failed to restore class")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to restore class"})
		}
		cc.hub.BroadcastEvent(ws.EventClassRestored, class)
	}

	middleware.LogActivity(c, "RESTORE", "classes", class.ID, nil)

	return c.JSON(fiber.Map{
		"message": "Class restored successfully",
		"class":   class,
	})
}

// HardDeleteClass permanently removes a class. Refused while students are
// still enrolled; attendance sessions of the class are removed with it.
func (cc *ClassController) HardDeleteClass(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class ID"})
	}

	var class models.Class
	if err := database.DB.First(&class, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class not found"})
	}

	var enrolled int64
	database.DB.Model(&models.Student{}).Where("class_id = ?", class.ID).Count(&enrolled)
	if enrolled > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Class still has enrolled students, reassign them first",
		})
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var sessionIDs []uint
		if err := tx.Model(&models.AttendanceSession{}).Where("class_id = ?", class.ID).
			Pluck("id", &sessionIDs).Error; err != nil {
			return err
		}
		if len(sessionIDs) > 0 {
			if err := tx.Where("session_id IN ?", sessionIDs).
				Delete(&models.AttendanceRecord{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", sessionIDs).
				Delete(&models.AttendanceSession{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&class).Error
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to hard-delete class")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete class"})
	}

	middleware.LogActivity(c, "HARD_DELETE", "classes", class.ID, nil)
	cc.hub.BroadcastEvent(ws.EventClassHardDeleted, fiber.Map{"id": class.ID})

	return c.JSON(fiber.Map{"message": "Class permanently deleted"})
}
