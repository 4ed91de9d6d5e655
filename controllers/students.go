package controllers

import (
	"errors"
	"madrese_go/middleware"
	"madrese_go/services/students"
	"madrese_go/storage"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type StudentController struct {
	service *students.Service
	storage *storage.StorageService
}

func NewStudentController(service *students.Service, store *storage.StorageService) *StudentController {
	return &StudentController{service: service, storage: store}
}

// GetStudents returns a page of students for the index table.
// Query: page, page_size, search, show_inactive
func (sc *StudentController) GetStudents(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))
	showInactive := c.Query("show_inactive") == "true"

	result, err := sc.service.List(students.ListParams{
		Page:         page,
		PageSize:     pageSize,
		Search:       c.Query("search"),
		ShowInactive: showInactive,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to list students")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch students",
		})
	}

	return c.JSON(result)
}

// GetStudent returns a specific student by ID (active or inactive)
func (sc *StudentController) GetStudent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	student, err := sc.service.Get(uint(id))
	if err != nil {
		return sc.mapError(c, err)
	}

	return c.JSON(fiber.Map{"student": student})
}

// CreateStudent registers a new active student. Accepts JSON or a multipart
// form with an optional "photo" file.
func (sc *StudentController) CreateStudent(c *fiber.Ctx) error {
	var input students.CreateInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if url, err := sc.uploadPhoto(c, claims.UserID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	} else if url != "" {
		input.PhotoURL = url
	}

	student, err := sc.service.Create(input, claims.UserID)
	if err != nil {
		return sc.mapError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "students", student.ID, student)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Student created successfully",
		"student": student,
	})
}

// UpdateStudent edits an active or inactive student. A row_version field in
// the body enables the stale-write check.
func (sc *StudentController) UpdateStudent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var input students.UpdateInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if url, err := sc.uploadPhoto(c, claims.UserID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	} else if url != "" {
		input.PhotoURL = url
	}

	student, err := sc.service.Update(uint(id), input, claims.UserID)
	if err != nil {
		return sc.mapError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "students", student.ID, input)

	return c.JSON(fiber.Map{
		"message": "Student updated successfully",
		"student": student,
	})
}

// DeactivateStudent soft-deletes a student with a mandatory reason.
func (sc *StudentController) DeactivateStudent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var req struct {
		Reason string `json:"reason" form:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	student, changed, err := sc.service.Deactivate(uint(id), req.Reason, claims.UserID)
	if err != nil {
		return sc.mapError(c, err)
	}

	if !changed {
		// Already inactive: informational, nothing stored
		return c.JSON(fiber.Map{
			"message": "Student is already inactive",
			"student": student,
			"changed": false,
		})
	}

	middleware.LogActivity(c, "DEACTIVATE", "students", student.ID, fiber.Map{"reason": req.Reason})

	return c.JSON(fiber.Map{
		"message": "Student deactivated successfully",
		"student": student,
		"changed": true,
	})
}

// RestoreStudent re-activates a soft-deleted student.
func (sc *StudentController) RestoreStudent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	student, err := sc.service.Restore(uint(id), claims.UserID)
	if err != nil {
		return sc.mapError(c, err)
	}

	middleware.LogActivity(c, "RESTORE", "students", student.ID, nil)

	return c.JSON(fiber.Map{
		"message": "Student restored successfully",
		"student": student,
	})
}

// HardDeleteStudent permanently removes a student. Irreversible.
func (sc *StudentController) HardDeleteStudent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := sc.service.HardDelete(uint(id), claims.UserID); err != nil {
		return sc.mapError(c, err)
	}

	middleware.LogActivity(c, "HARD_DELETE", "students", uint(id), nil)

	return c.JSON(fiber.Map{
		"message": "Student permanently deleted",
	})
}

// uploadPhoto stores the optional "photo" multipart file and returns its URL.
// A missing photo field is not an error.
func (sc *StudentController) uploadPhoto(c *fiber.Ctx, ownerID uint) (string, error) {
	file, err := c.FormFile("photo")
	if err != nil || file == nil {
		return "", nil
	}
	if err := storage.ValidatePhoto(file); err != nil {
		return "", err
	}
	if sc.storage == nil {
		logrus.Warn("Photo received but storage is not configured, skipping upload")
		return "", nil
	}
	return sc.storage.UploadFile(file, "students", ownerID)
}

// mapError converts service errors into consistent HTTP responses.
func (sc *StudentController) mapError(c *fiber.Ctx, err error) error {
	var verr validator.ValidationErrors
	switch {
	case errors.Is(err, students.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	case errors.Is(err, students.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, students.ErrCodeTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, students.ErrEmptyReason),
		errors.Is(err, students.ErrInvalidCode),
		errors.Is(err, students.ErrBadDate):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &verr):
		fields := make(map[string]string, len(verr))
		for _, fe := range verr {
			fields[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": fields,
		})
	default:
		logrus.WithError(err).Error("Student operation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}
