// Package students implements the student lifecycle: create, edit with
// optimistic concurrency, deactivate with a required reason, restore, and
// permanent removal. The database is the source of truth; WebSocket events
// are fired best-effort after each committed change.
package students

import (
	"errors"
	"fmt"
	"madrese_go/models"
	ws "madrese_go/services/websocket"
	"madrese_go/utils"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("student not found")
	ErrConflict    = errors.New("student was modified by another user, reload and try again")
	ErrCodeTaken   = errors.New("national code already belongs to an active student")
	ErrEmptyReason = errors.New("a non-empty reason is required to deactivate a student")
	ErrInvalidCode = errors.New("invalid national code")
	ErrBadDate     = errors.New("invalid birth date")
)

// Broadcaster is the slice of the WebSocket hub the service needs.
type Broadcaster interface {
	BroadcastEvent(eventType string, data interface{})
}

type Service struct {
	db       *gorm.DB
	hub      Broadcaster
	validate *validator.Validate
}

func NewService(db *gorm.DB, hub Broadcaster) *Service {
	return &Service{
		db:       db,
		hub:      hub,
		validate: validator.New(),
	}
}

// CreateInput carries the fields accepted from the create form. BirthDate is
// a Jalali date string; PhotoURL is filled in by the controller after upload.
type CreateInput struct {
	FirstName     string `form:"first_name" json:"first_name" validate:"required,max=100"`
	LastName      string `form:"last_name" json:"last_name" validate:"required,max=100"`
	FatherName    string `form:"father_name" json:"father_name" validate:"max=100"`
	NationalCode  string `form:"national_code" json:"national_code" validate:"max=20"`
	BirthDate     string `form:"birth_date" json:"birth_date"`
	School        string `form:"school" json:"school" validate:"max=200"`
	Grade         string `form:"grade" json:"grade" validate:"max=50"`
	CoachName     string `form:"coach_name" json:"coach_name" validate:"max=200"`
	Phone         string `form:"phone" json:"phone" validate:"max=20"`
	ParentPhone   string `form:"parent_phone" json:"parent_phone" validate:"max=20"`
	HomePhone     string `form:"home_phone" json:"home_phone" validate:"max=20"`
	Address       string `form:"address" json:"address" validate:"max=500"`
	TuitionAmount int64  `form:"tuition_amount" json:"tuition_amount" validate:"min=0"`
	PaidAmount    int64  `form:"paid_amount" json:"paid_amount" validate:"min=0"`
	FormCompleted bool   `form:"form_completed" json:"form_completed"`
	Notes         string `form:"notes" json:"notes"`
	ClassID       *uint  `form:"class_id" json:"class_id"`
	PhotoURL      string `json:"-"`
}

// UpdateInput mirrors CreateInput plus the caller's concurrency token. A nil
// RowVersion skips the stale-write check (legacy forms without the token).
type UpdateInput struct {
	CreateInput
	RowVersion *uint `form:"row_version" json:"row_version"`
}

// ListParams are the paging/filter knobs of the index table.
type ListParams struct {
	Page         int
	PageSize     int
	Search       string
	ShowInactive bool
}

// ListResult matches the paged-table contract of the admin UI.
type ListResult struct {
	Students      []models.Student `json:"students"`
	TotalCount    int64            `json:"total_count"`
	InactiveCount int64            `json:"inactive_count"`
	CurrentPage   int              `json:"current_page"`
	TotalPages    int              `json:"total_pages"`
}

// Counts are attached to deactivation events so open tables can refresh
// their badges without a reload.
type Counts struct {
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
	Total    int64 `json:"total"`
}

// EventPayload is the DTO carried by every student lifecycle event.
type EventPayload struct {
	Student *models.Student `json:"student,omitempty"`
	ID      uint            `json:"id"`
	Counts  *Counts         `json:"counts,omitempty"`
}

// Create validates and persists a new active student.
func (s *Service) Create(in CreateInput, actorID uint) (*models.Student, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	in.NationalCode = utils.NormalizeDigits(utils.SanitizeString(in.NationalCode))
	if in.NationalCode != "" && !utils.IsValidNationalCode(in.NationalCode) {
		return nil, ErrInvalidCode
	}

	birthDate, err := utils.ParseJalaliDate(in.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDate, err)
	}

	if in.NationalCode != "" {
		taken, err := s.codeTakenByActive(in.NationalCode, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrCodeTaken
		}
	}

	student := models.Student{
		SoftDelete:    models.SoftDelete{IsActive: true},
		FirstName:     utils.SanitizeString(in.FirstName),
		LastName:      utils.SanitizeString(in.LastName),
		FatherName:    utils.SanitizeString(in.FatherName),
		NationalCode:  in.NationalCode,
		BirthDate:     birthDate,
		School:        utils.SanitizeString(in.School),
		Grade:         utils.SanitizeString(in.Grade),
		CoachName:     utils.SanitizeString(in.CoachName),
		PhotoURL:      in.PhotoURL,
		Phone:         utils.SanitizeString(in.Phone),
		ParentPhone:   utils.SanitizeString(in.ParentPhone),
		HomePhone:     utils.SanitizeString(in.HomePhone),
		Address:       utils.SanitizeString(in.Address),
		TuitionAmount: in.TuitionAmount,
		PaidAmount:    in.PaidAmount,
		FormCompleted: in.FormCompleted,
		Notes:         in.Notes,
		ClassID:       in.ClassID,
		RowVersion:    1,
	}

	if err := s.db.Create(&student).Error; err != nil {
		if isDuplicateErr(err) {
			// Unique shadow index caught a race the pre-check missed
			return nil, ErrCodeTaken
		}
		logrus.WithError(err).Error("Failed to create student")
		return nil, err
	}

	s.broadcast(ws.EventStudentCreated, EventPayload{Student: &student, ID: student.ID})
	return &student, nil
}

// Update applies field changes to an active or inactive student. When a
// row-version token is supplied the update only succeeds if nobody else has
// written the row since the caller read it.
func (s *Service) Update(id uint, in UpdateInput, actorID uint) (*models.Student, error) {
	if err := s.validate.Struct(in.CreateInput); err != nil {
		return nil, err
	}

	var current models.Student
	if err := s.db.First(&current, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	in.NationalCode = utils.NormalizeDigits(utils.SanitizeString(in.NationalCode))
	if in.NationalCode != "" && !utils.IsValidNationalCode(in.NationalCode) {
		return nil, ErrInvalidCode
	}

	birthDate, err := utils.ParseJalaliDate(in.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDate, err)
	}

	if in.NationalCode != "" && current.IsActive && in.NationalCode != current.NationalCode {
		taken, err := s.codeTakenByActive(in.NationalCode, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrCodeTaken
		}
	}

	updates := map[string]interface{}{
		"first_name":     utils.SanitizeString(in.FirstName),
		"last_name":      utils.SanitizeString(in.LastName),
		"father_name":    utils.SanitizeString(in.FatherName),
		"national_code":  in.NationalCode,
		"birth_date":     birthDate,
		"school":         utils.SanitizeString(in.School),
		"grade":          utils.SanitizeString(in.Grade),
		"coach_name":     utils.SanitizeString(in.CoachName),
		"phone":          utils.SanitizeString(in.Phone),
		"parent_phone":   utils.SanitizeString(in.ParentPhone),
		"home_phone":     utils.SanitizeString(in.HomePhone),
		"address":        utils.SanitizeString(in.Address),
		"tuition_amount": in.TuitionAmount,
		"paid_amount":    in.PaidAmount,
		"form_completed": in.FormCompleted,
		"notes":          in.Notes,
		"class_id":       in.ClassID,
		"row_version":    gorm.Expr("row_version + 1"),
	}
	if in.PhotoURL != "" {
		updates["photo_url"] = in.PhotoURL
	}
	// The shadow column follows the (possibly changed) code; map updates skip
	// the BeforeSave hook, so it is maintained here explicitly.
	if current.IsActive && in.NationalCode != "" {
		updates["active_national_code"] = in.NationalCode
	} else {
		updates["active_national_code"] = nil
	}

	query := s.db.Model(&models.Student{}).Where("id = ?", id)
	if in.RowVersion != nil {
		query = query.Where("row_version = ?", *in.RowVersion)
	}

	res := query.Updates(updates)
	if res.Error != nil {
		if isDuplicateErr(res.Error) {
			return nil, ErrCodeTaken
		}
		logrus.WithError(res.Error).WithField("student_id", id).Error("Failed to update student")
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// The row exists (loaded above), so a guarded update that matched
		// nothing means the token went stale in between.
		return nil, ErrConflict
	}

	var updated models.Student
	if err := s.db.Preload("Class").First(&updated, id).Error; err != nil {
		return nil, err
	}

	s.broadcast(ws.EventStudentUpdated, EventPayload{Student: &updated, ID: updated.ID})
	return &updated, nil
}

// Deactivate soft-deletes a student. Returns changed=false when the student
// was already inactive (informational no-op, storage untouched).
func (s *Service) Deactivate(id uint, reason string, actorID uint) (*models.Student, bool, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, false, ErrEmptyReason
	}

	var student models.Student
	if err := s.db.First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}

	if !student.IsActive {
		return &student, false, nil
	}

	now := time.Now()
	actor := actorID
	updates := map[string]interface{}{
		"is_active":            false,
		"deleted_at":           &now,
		"deleted_by":           &actor,
		"inactive_reason":      strings.TrimSpace(reason),
		"active_national_code": nil,
		"row_version":          gorm.Expr("row_version + 1"),
	}
	if err := s.db.Model(&student).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("student_id", id).Error("Failed to deactivate student")
		return nil, false, err
	}

	if err := s.db.First(&student, id).Error; err != nil {
		return nil, false, err
	}

	counts, err := s.CurrentCounts()
	if err != nil {
		logrus.WithError(err).Warn("Failed to compute counts after deactivation")
	}
	logrus.WithFields(logrus.Fields{
		"student_id": student.ID,
		"counts":     counts.String(),
	}).Info("Student deactivated")
	s.broadcast(ws.EventStudentDeactivated, EventPayload{Student: &student, ID: student.ID, Counts: counts})
	return &student, true, nil
}

// Restore re-activates a soft-deleted student. The national code is
// re-checked against currently active rows so a restore cannot produce two
// active students sharing one code.
func (s *Service) Restore(id uint, actorID uint) (*models.Student, error) {
	var student models.Student
	if err := s.db.First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if student.IsActive {
		return &student, nil
	}

	if student.NationalCode != "" {
		taken, err := s.codeTakenByActive(student.NationalCode, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrCodeTaken
		}
	}

	updates := map[string]interface{}{
		"is_active":       true,
		"deleted_at":      nil,
		"deleted_by":      nil,
		"inactive_reason": "",
		"row_version":     gorm.Expr("row_version + 1"),
	}
	if student.NationalCode != "" {
		updates["active_national_code"] = student.NationalCode
	}
	if err := s.db.Model(&student).Updates(updates).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, ErrCodeTaken
		}
		logrus.WithError(err).WithField("student_id", id).Error("Failed to restore student")
		return nil, err
	}

	if err := s.db.First(&student, id).Error; err != nil {
		return nil, err
	}

	s.broadcast(ws.EventStudentRestored, EventPayload{Student: &student, ID: student.ID})
	return &student, nil
}

// HardDelete permanently removes a student row. Irreversible.
func (s *Service) HardDelete(id uint, actorID uint) error {
	var student models.Student
	if err := s.db.First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.db.Delete(&models.Student{}, id).Error; err != nil {
		logrus.WithError(err).WithField("student_id", id).Error("Failed to hard-delete student")
		return err
	}

	counts, err := s.CurrentCounts()
	if err != nil {
		logrus.WithError(err).Warn("Failed to compute counts after hard delete")
	}
	logrus.WithFields(logrus.Fields{
		"student_id": id,
		"counts":     counts.String(),
	}).Info("Student permanently deleted")
	s.broadcast(ws.EventStudentHardDeleted, EventPayload{ID: id, Counts: counts})
	return nil
}

// Get loads one student, active or not.
func (s *Service) Get(id uint) (*models.Student, error) {
	var student models.Student
	if err := s.db.Preload("Class").First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &student, nil
}

// List returns a page of students filtered by visibility and substring search
// on name and national code, plus the counts the pagination UI needs.
func (s *Service) List(p ListParams) (*ListResult, error) {
	p = normalizeListParams(p)

	query := s.db.Model(&models.Student{})
	if !p.ShowInactive {
		query = query.Where("is_active = ?", true)
	}
	if search := utils.NormalizeDigits(strings.TrimSpace(p.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"first_name LIKE ? OR last_name LIKE ? OR father_name LIKE ? OR national_code LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var inactive int64
	if err := s.db.Model(&models.Student{}).Where("is_active = ?", false).Count(&inactive).Error; err != nil {
		return nil, err
	}

	var rows []models.Student
	offset := (p.Page - 1) * p.PageSize
	if err := query.Preload("Class").
		Order("last_name, first_name").
		Offset(offset).Limit(p.PageSize).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return &ListResult{
		Students:      rows,
		TotalCount:    total,
		InactiveCount: inactive,
		CurrentPage:   p.Page,
		TotalPages:    TotalPages(total, p.PageSize),
	}, nil
}

// ActiveByClass returns the active roster of one class, used when
// pre-populating attendance sessions and building exports.
func (s *Service) ActiveByClass(classID uint) ([]models.Student, error) {
	var rows []models.Student
	err := s.db.Where("class_id = ? AND is_active = ?", classID, true).
		Order("last_name, first_name").
		Find(&rows).Error
	return rows, err
}

// CurrentCounts returns the active/inactive/total student counts.
func (s *Service) CurrentCounts() (*Counts, error) {
	var active, inactive int64
	if err := s.db.Model(&models.Student{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Student{}).Where("is_active = ?", false).Count(&inactive).Error; err != nil {
		return nil, err
	}
	return &Counts{Active: active, Inactive: inactive, Total: active + inactive}, nil
}

func (s *Service) codeTakenByActive(code string, excludeID uint) (bool, error) {
	var count int64
	q := s.db.Model(&models.Student{}).Where("active_national_code = ?", code)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) broadcast(eventType string, payload EventPayload) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(eventType, payload)
}

func normalizeListParams(p ListParams) ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// TotalPages computes the page count for a filtered total; zero rows still
// render one (empty) page.
func TotalPages(total int64, pageSize int) int {
	if total == 0 {
		return 1
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "1062")
}

// String implements a compact description for log lines.
func (c *Counts) String() string {
	if c == nil {
		return "counts unavailable"
	}
	return fmt.Sprintf("active=%d inactive=%d total=%d", c.Active, c.Inactive, c.Total)
}
