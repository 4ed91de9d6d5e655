package controllers

import (
	"errors"
	"madrese_go/database"
	"madrese_go/middleware"
	"madrese_go/models"
	ws "madrese_go/services/websocket"
	"madrese_go/storage"
	"madrese_go/utils"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TeacherController handles the simpler soft-delete variant used for staff
// teachers: same deactivate/restore/hard-delete shape as students, without
// the national-code uniqueness rules.
type TeacherController struct {
	hub     *ws.Hub
	storage *storage.StorageService
}

func NewTeacherController(hub *ws.Hub, store *storage.StorageService) *TeacherController {
	return &TeacherController{hub: hub, storage: store}
}

// GetTeachers returns teachers with pagination and an inactive toggle
func (tc *TeacherController) GetTeachers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	query := database.DB.Model(&models.Teacher{})
	if c.Query("show_inactive") != "true" {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + utils.NormalizeDigits(search) + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR national_code LIKE ?", like, like, like)
	}

	var total int64
	query.Count(&total)

	var teachers []models.Teacher
	if err := query.Order("last_name, first_name").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&teachers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch teachers",
		})
	}

	return c.JSON(fiber.Map{
		"teachers":     teachers,
		"total_count":  total,
		"current_page": page,
	})
}

// GetTeacher returns a specific teacher by ID
func (tc *TeacherController) GetTeacher(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher ID"})
	}

	var teacher models.Teacher
	if err := database.DB.Preload("Classes").First(&teacher, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}

	return c.JSON(fiber.Map{"teacher": teacher})
}

// CreateTeacher creates a new teacher
func (tc *TeacherController) CreateTeacher(c *fiber.Ctx) error {
	var teacher models.Teacher
	if err := c.BodyParser(&teacher); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if strings.TrimSpace(teacher.FirstName) == "" || strings.TrimSpace(teacher.LastName) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "First and last name are required"})
	}

	teacher.IsActive = true
	teacher.DeletedAt = nil
	teacher.RowVersion = 1

	if url, err := tc.uploadPhoto(c); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	} else if url != "" {
		teacher.PhotoURL = url
	}

	if err := database.DB.Create(&teacher).Error; err != nil {
		logrus.WithError(err).Error("Failed to create teacher")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create teacher"})
	}

	middleware.LogActivity(c, "CREATE", "teachers", teacher.ID, teacher)
	tc.hub.BroadcastEvent(ws.EventTeacherCreated, teacher)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Teacher created successfully",
		"teacher": teacher,
	})
}

// UpdateTeacher edits an active or inactive teacher; a row_version body
// field enables the stale-write check.
func (tc *TeacherController) UpdateTeacher(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher ID"})
	}

	var teacher models.Teacher
	if err := database.DB.First(&teacher, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}

	var req struct {
		FirstName    string `json:"first_name" form:"first_name"`
		LastName     string `json:"last_name" form:"last_name"`
		NationalCode string `json:"national_code" form:"national_code"`
		Phone        string `json:"phone" form:"phone"`
		Subject      string `json:"subject" form:"subject"`
		HourlyRate   int64  `json:"hourly_rate" form:"hourly_rate"`
		RowVersion   *uint  `json:"row_version" form:"row_version"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{
		"first_name":    utils.SanitizeString(req.FirstName),
		"last_name":     utils.SanitizeString(req.LastName),
		"national_code": utils.NormalizeDigits(utils.SanitizeString(req.NationalCode)),
		"phone":         utils.SanitizeString(req.Phone),
		"subject":       utils.SanitizeString(req.Subject),
		"hourly_rate":   req.HourlyRate,
		"row_version":   gorm.Expr("row_version + 1"),
	}
	if url, err := tc.uploadPhoto(c); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	} else if url != "" {
		updates["photo_url"] = url
	}

	query := database.DB.Model(&models.Teacher{}).Where("id = ?", uint(id))
	if req.RowVersion != nil {
		query = query.Where("row_version = ?", *req.RowVersion)
	}

	res := query.Updates(updates)
	if res.Error != nil {
		logrus.WithError(res.Error).Error("Failed to update teacher")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update teacher"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Teacher was modified by another user, reload and try again",
		})
	}

	database.DB.First(&teacher, uint(id))
	middleware.LogActivity(c, "UPDATE", "teachers", teacher.ID, req)
	tc.hub.BroadcastEvent(ws.EventTeacherUpdated, teacher)

	return c.JSON(fiber.Map{
		"message": "Teacher updated successfully",
		"teacher": teacher,
	})
}

// DeactivateTeacher soft-deletes a teacher with a mandatory reason
func (tc *TeacherController) DeactivateTeacher(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher ID"})
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

	var teacher models.Teacher
	if err := database.DB.First(&teacher, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}

	if !teacher.IsActive {
		return c.JSON(fiber.Map{
			"message": "Teacher is already inactive",
			"teacher": teacher,
			"changed": false,
		})
	}

	claims, _ := middleware.GetCurrentClaims(c)
	var actorID *uint
	if claims != nil {
		actorID = &claims.UserID
	}
	teacher.SoftDelete.Deactivate(strings.TrimSpace(req.Reason), actorID)
	teacher.RowVersion++

	if err := database.DB.Save(&teacher).Error; err != nil {
		logrus.WithError(err).Error("Failed to deactivate teacher")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to deactivate teacher"})
	}

	middleware.LogActivity(c, "DEACTIVATE", "teachers", teacher.ID, fiber.Map{"reason": req.Reason})
	tc.hub.BroadcastEvent(ws.EventTeacherDeactivated, teacher)

	return c.JSON(fiber.Map{
		"message": "Teacher deactivated successfully",
		"teacher": teacher,
		"changed": true,
	})
}

// RestoreTeacher re-activates a soft-deleted teacher
func (tc *TeacherController) RestoreTeacher(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher ID"})
	}

	var teacher models.Teacher
	if err := database.DB.First(&teacher, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}

	if !teacher.IsActive {
		teacher.SoftDelete.Restore()
		teacher.RowVersion++
		if err := database.DB.Save(&teacher).Error; err != nil {
			logrus.WithError(err).Error("Failed to restore teacher")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to restore teacher"})
		}
		tc.hub.BroadcastEvent(ws.EventTeacherRestored, teacher)
	}

	middleware.LogActivity(c, "RESTORE", "teachers", teacher.ID, nil)

	return c.JSON(fiber.Map{
		"message": "Teacher restored successfully",
		"teacher": teacher,
	})
}

// HardDeleteTeacher permanently removes a teacher. Classes assigned to the
// teacher keep running with the teacher slot cleared.
func (tc *TeacherController) HardDeleteTeacher(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher ID"})
	}

	var teacher models.Teacher
	if err := database.DB.First(&teacher, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Class{}).Where("teacher_id = ?", teacher.ID).
			Update("teacher_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&teacher).Error
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to hard-delete teacher")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete teacher"})
	}

	middleware.LogActivity(c, "HARD_DELETE", "teachers", teacher.ID, nil)
	tc.hub.BroadcastEvent(ws.EventTeacherHardDeleted, fiber.Map{"id": teacher.ID})

	return c.JSON(fiber.Map{"message": "Teacher permanently deleted"})
}

func (tc *TeacherController) uploadPhoto(c *fiber.Ctx) (string, error) {
	file, err := c.FormFile("photo")
	if err != nil || file == nil {
		return "", nil
	}
	if err := storage.ValidatePhoto(file); err != nil {
		return "", err
	}
	if tc.storage == nil {
		return "", nil
	}
	claims, cerr := middleware.GetCurrentClaims(c)
	if cerr != nil {
		return "", errors.New("unauthorized")
	}
	return tc.storage.UploadFile(file, "teachers", claims.UserID)
}
