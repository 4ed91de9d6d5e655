package services

import (
	"fmt"
	"madrese_go/database"
	"madrese_go/models"
	"madrese_go/services/notifications"
	"madrese_go/utils"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DailySummaryService sends admins an end-of-day attendance digest.
type DailySummaryService struct {
	cron *cron.Cron
}

func NewDailySummaryService() *DailySummaryService {
	return &DailySummaryService{}
}

// Start schedules the nightly digest (18:00 server time).
func (ds *DailySummaryService) Start() {
	ds.cron = cron.New()
	if _, err := ds.cron.AddFunc("0 18 * * *", ds.SendDailySummary); err != nil {
		logrus.WithError(err).Error("Failed to schedule daily attendance summary")
		return
	}
	ds.cron.Start()
	logrus.Info("Daily attendance summary scheduler started")
}

// Stop halts the scheduler.
func (ds *DailySummaryService) Stop() {
	if ds.cron != nil {
		ds.cron.Stop()
	}
}

// SendDailySummary aggregates the current Jalali day's sessions and notifies
// admins. Sessions are stored at Tehran midnight, so the window comes from the
// Jalali day bounds, not from UTC truncation.
func (ds *DailySummaryService) SendDailySummary() {
	dayStart, dayEnd := utils.JalaliDayRange(time.Now())

	var sessions []models.AttendanceSession
	if err := database.DB.Preload("Class").
		Where("session_date >= ? AND session_date < ?", dayStart, dayEnd).
		Find(&sessions).Error; err != nil {
		logrus.WithError(err).Error("Failed to load today's attendance sessions")
		return
	}
	if len(sessions) == 0 {
		return
	}

	var present, absent, late, excused int
	for _, s := range sessions {
		present += s.PresentCount
		absent += s.AbsentCount
		late += s.LateCount
		excused += s.ExcusedCount
	}

	now := time.Now()
	jalaliDay := utils.FormatJalaliDate(&now)
	msg := fmt.Sprintf("Attendance summary for %s: %d sessions, %d present, %d absent, %d late, %d excused",
		jalaliDay, len(sessions), present, absent, late, excused)
	msgFa := fmt.Sprintf("خلاصه حضور و غیاب %s: %d جلسه، %d حاضر، %d غایب، %d تاخیر، %d موجه",
		jalaliDay, len(sessions), present, absent, late, excused)

	notifService := notifications.NewService()
	n := notifications.Queued("Daily attendance summary", "خلاصه روزانه حضور و غیاب", msg, msgFa, "info")
	if err := notifService.NotifyAdmins(n); err != nil {
		logrus.WithError(err).Error("Failed to send daily attendance summary")
	}
}
