package services

import (
	"errors"
	"fmt"
	"madrese_go/models"
	ws "madrese_go/services/websocket"
	"madrese_go/utils"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound  = errors.New("attendance session not found")
	ErrSessionExists    = errors.New("attendance session already exists for this class and date")
	ErrClassUnavailable = errors.New("class not found or inactive")
	ErrEmptyRoster      = errors.New("class has no active students")
)

var validMarkStatuses = map[string]bool{
	"present": true,
	"absent":  true,
	"late":    true,
	"excused": true,
}

// AttendanceService creates check-in sessions and applies bulk marks.
type AttendanceService struct {
	db  *gorm.DB
	hub *ws.Hub
}

func NewAttendanceService(db *gorm.DB, hub *ws.Hub) *AttendanceService {
	return &AttendanceService{db: db, hub: hub}
}

// Mark is one student's status inside a bulk update.
type Mark struct {
	StudentID uint   `json:"student_id"`
	Status    string `json:"status"`
	Note      string `json:"note"`
}

// CreateSession opens a check-in event for a class on a Jalali date and
// pre-populates one absent record per active student, atomically.
func (as *AttendanceService) CreateSession(classID uint, jalaliDate string, actorID uint) (*models.AttendanceSession, error) {
	date, err := utils.ParseJalaliDate(jalaliDate)
	if err != nil {
		return nil, err
	}
	if date == nil {
		return nil, fmt.Errorf("session date is required")
	}

	var class models.Class
	if err := as.db.Where("id = ? AND is_active = ?", classID, true).First(&class).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassUnavailable
		}
		return nil, err
	}

	var roster []models.Student
	if err := as.db.Where("class_id = ? AND is_active = ?", classID, true).
		Order("last_name, first_name").Find(&roster).Error; err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, ErrEmptyRoster
	}

	session := models.AttendanceSession{
		ClassID:     classID,
		SessionDate: *date,
		CreatedBy:   actorID,
		AbsentCount: len(roster),
	}

	err = as.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.AttendanceSession{}).
			Where("class_id = ? AND session_date = ?", classID, *date).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrSessionExists
		}

		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		records := make([]models.AttendanceRecord, 0, len(roster))
		for _, st := range roster {
			records = append(records, models.AttendanceRecord{
				SessionID: session.ID,
				StudentID: st.ID,
				Status:    "absent",
			})
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		if !errors.Is(err, ErrSessionExists) {
			logrus.WithError(err).WithField("class_id", classID).Error("Failed to create attendance session")
		}
		return nil, err
	}

	full, err := as.GetSession(session.ID)
	if err != nil {
		return nil, err
	}

	if as.hub != nil {
		as.hub.BroadcastEvent(ws.EventAttendanceSessionCreated, full)
	}
	return full, nil
}

// BulkMark applies status changes to a session's records in one transaction
// and recomputes the session counters.
func (as *AttendanceService) BulkMark(sessionID uint, marks []Mark) (*models.AttendanceSession, error) {
	if len(marks) == 0 {
		return nil, fmt.Errorf("no marks supplied")
	}
	for _, m := range marks {
		if !validMarkStatuses[m.Status] {
			return nil, fmt.Errorf("invalid attendance status %q", m.Status)
		}
	}

	var session models.AttendanceSession
	if err := as.db.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	err := as.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range marks {
			res := tx.Model(&models.AttendanceRecord{}).
				Where("session_id = ? AND student_id = ?", sessionID, m.StudentID).
				Updates(map[string]interface{}{
					"status": m.Status,
					"note":   strings.TrimSpace(m.Note),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("student %d has no record in session %d", m.StudentID, sessionID)
			}
		}

		counters := map[string]interface{}{}
		for _, status := range []string{"present", "absent", "late", "excused"} {
			var n int64
			if err := tx.Model(&models.AttendanceRecord{}).
				Where("session_id = ? AND status = ?", sessionID, status).
				Count(&n).Error; err != nil {
				return err
			}
			counters[status+"_count"] = n
		}
		return tx.Model(&models.AttendanceSession{}).Where("id = ?", sessionID).Updates(counters).Error
	})
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to apply attendance marks")
		return nil, err
	}

	full, err := as.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	if as.hub != nil {
		as.hub.BroadcastEvent(ws.EventAttendanceSessionUpdated, full)
	}
	return full, nil
}

// GetSession loads a session with its class and per-student records.
func (as *AttendanceService) GetSession(id uint) (*models.AttendanceSession, error) {
	var session models.AttendanceSession
	err := as.db.Preload("Class").
		Preload("Records", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Records.Student").
		First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// ListSessions returns sessions filtered by class and Jalali date range.
func (as *AttendanceService) ListSessions(classID uint, fromJalali, toJalali string) ([]models.AttendanceSession, error) {
	query := as.db.Model(&models.AttendanceSession{}).Preload("Class")

	if classID != 0 {
		query = query.Where("class_id = ?", classID)
	}
	if from, err := utils.ParseJalaliDate(fromJalali); err != nil {
		return nil, err
	} else if from != nil {
		query = query.Where("session_date >= ?", *from)
	}
	if to, err := utils.ParseJalaliDate(toJalali); err != nil {
		return nil, err
	} else if to != nil {
		query = query.Where("session_date <= ?", (*to).Add(24*time.Hour-time.Nanosecond))
	}

	var sessions []models.AttendanceSession
	if err := query.Order("session_date DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// LegacyByStudent reads the old per-row attendance table for one student.
func (as *AttendanceService) LegacyByStudent(studentID uint) ([]models.AttendanceTable, error) {
	var rows []models.AttendanceTable
	err := as.db.Where("student_id = ?", studentID).Order("date DESC").Find(&rows).Error
	return rows, err
}
