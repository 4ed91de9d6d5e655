package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SoftDelete carries the shared deactivate/restore lifecycle state.
// IsActive=false always pairs with a non-nil DeletedAt; restoring clears both.
// This is an explicit flag, not gorm.DeletedAt, because inactive rows stay
// readable and editable.
type SoftDelete struct {
	IsActive       bool       `json:"is_active" gorm:"default:true;index"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	DeletedBy      *uint      `json:"deleted_by,omitempty"`
	InactiveReason string     `json:"inactive_reason,omitempty" gorm:"size:500"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// User model (admin panel accounts)
type User struct {
	BaseModel
	Username string `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
	FullName string `json:"full_name" gorm:"size:200"`
	Phone    string `json:"phone" gorm:"size:20"`
	Role     string `json:"role" gorm:"size:50;not null;default:'staff';type:enum('admin','staff')"` // admin, staff
	Status   string `json:"status" gorm:"size:50;not null;default:'active';type:enum('active','inactive','suspended')"`
	Avatar   string `json:"avatar" gorm:"size:500"`
}

// Student model
type Student struct {
	BaseModel
	SoftDelete
	FirstName  string `json:"first_name" gorm:"size:100;not null"`
	LastName   string `json:"last_name" gorm:"size:100;not null"`
	FatherName string `json:"father_name" gorm:"size:100"`
	// NationalCode keeps its historical value on inactive rows; uniqueness is
	// enforced through ActiveNationalCode below.
	NationalCode string `json:"national_code" gorm:"size:20;index"`
	// ActiveNationalCode mirrors NationalCode while the row is active and is
	// NULL while inactive. MySQL unique indexes skip NULLs, so the index only
	// guards active-active collisions (filtered-index semantics).
	ActiveNationalCode *string    `json:"-" gorm:"size:20;uniqueIndex"`
	BirthDate          *time.Time `json:"birth_date"`
	School             string     `json:"school" gorm:"size:200"`
	Grade              string     `json:"grade" gorm:"size:50"`
	CoachName          string     `json:"coach_name" gorm:"size:200"`
	PhotoURL           string     `json:"photo_url" gorm:"size:500"`
	Phone              string     `json:"phone" gorm:"size:20"`
	ParentPhone        string     `json:"parent_phone" gorm:"size:20"`
	HomePhone          string     `json:"home_phone" gorm:"size:20"`
	Address            string     `json:"address" gorm:"size:500"`
	TuitionAmount      int64      `json:"tuition_amount"`
	PaidAmount         int64      `json:"paid_amount"`
	FormCompleted      bool       `json:"form_completed" gorm:"default:false"`
	Notes              string     `json:"notes" gorm:"type:text"`
	ClassID            *uint      `json:"class_id"`

	// RowVersion is the optimistic-concurrency token: bumped on every
	// successful update, compared against the caller's copy on edit.
	RowVersion uint `json:"row_version" gorm:"not null;default:1"`

	// Relationships
	Class             *Class             `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	AttendanceRecords []AttendanceRecord `json:"attendance_records,omitempty" gorm:"foreignKey:StudentID"`
	LegacyAttendance  []AttendanceTable  `json:"legacy_attendance,omitempty" gorm:"foreignKey:StudentID"`
}

// Teacher model
type Teacher struct {
	BaseModel
	SoftDelete
	FirstName    string `json:"first_name" gorm:"size:100;not null"`
	LastName     string `json:"last_name" gorm:"size:100;not null"`
	NationalCode string `json:"national_code" gorm:"size:20;index"`
	Phone        string `json:"phone" gorm:"size:20"`
	Subject      string `json:"subject" gorm:"size:100"`
	HourlyRate   int64  `json:"hourly_rate"`
	PhotoURL     string `json:"photo_url" gorm:"size:500"`
	RowVersion   uint   `json:"row_version" gorm:"not null;default:1"`

	Classes []Class `json:"classes,omitempty" gorm:"foreignKey:TeacherID"`
}

// Class model
type Class struct {
	BaseModel
	SoftDelete
	Name      string `json:"name" gorm:"size:100;not null"`
	Grade     string `json:"grade" gorm:"size:50"`
	Room      string `json:"room" gorm:"size:50"`
	Capacity  int    `json:"capacity"`
	TeacherID *uint  `json:"teacher_id"`

	Teacher  *Teacher  `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	Students []Student `json:"students,omitempty" gorm:"foreignKey:ClassID"`
}

// AttendanceSession groups the per-student marks of one check-in event.
// Sessions are created together with a pre-populated record per active student
// of the class and have no soft-delete lifecycle of their own.
type AttendanceSession struct {
	BaseModel
	ClassID     uint      `json:"class_id" gorm:"not null;uniqueIndex:idx_class_session_date"`
	SessionDate time.Time `json:"session_date" gorm:"not null;uniqueIndex:idx_class_session_date"`
	CreatedBy   uint      `json:"created_by"`
	// Denormalized counters, recomputed on every bulk mark.
	PresentCount int    `json:"present_count"`
	AbsentCount  int    `json:"absent_count"`
	LateCount    int    `json:"late_count"`
	ExcusedCount int    `json:"excused_count"`
	Notes        string `json:"notes" gorm:"type:text"`

	Class   Class              `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	Records []AttendanceRecord `json:"records,omitempty" gorm:"foreignKey:SessionID"`
}

// AttendanceRecord is one student's mark inside a session.
type AttendanceRecord struct {
	BaseModel
	SessionID uint   `json:"session_id" gorm:"not null;uniqueIndex:idx_session_student"`
	StudentID uint   `json:"student_id" gorm:"not null;uniqueIndex:idx_session_student"`
	Status    string `json:"status" gorm:"size:20;not null;default:'absent';type:enum('present','absent','late','excused')"`
	Note      string `json:"note" gorm:"size:255"`

	Session AttendanceSession `json:"session,omitempty" gorm:"foreignKey:SessionID"`
	Student Student           `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// AttendanceTable is the legacy per-row attendance storage. Migrated and
// readable; new marks go through AttendanceSession/AttendanceRecord.
type AttendanceTable struct {
	BaseModel
	StudentID uint      `json:"student_id" gorm:"not null;index"`
	Date      time.Time `json:"date" gorm:"not null"`
	Present   bool      `json:"present"`
	Note      string    `json:"note" gorm:"size:255"`
}

func (AttendanceTable) TableName() string { return "attendance_table" }

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Notification model
type Notification struct {
	BaseModel
	UserID    uint       `json:"user_id" gorm:"not null"`
	Title     string     `json:"title" gorm:"size:255;not null"`
	TitleFa   string     `json:"title_fa" gorm:"size:255"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	MessageFa string     `json:"message_fa" gorm:"type:text"`
	Type      string     `json:"type" gorm:"size:50;not null;type:enum('info','warning','error','success')"`
	Read      bool       `json:"read" gorm:"default:false"`
	ReadAt    *time.Time `json:"read_at"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// LogArchive model for tracking archived logs
type LogArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','completed','failed')"`
	Error       string    `json:"error" gorm:"type:text"`
}

// Deactivate flips the lifecycle state in memory; callers persist it.
func (sd *SoftDelete) Deactivate(reason string, actorID *uint) {
	now := time.Now()
	sd.IsActive = false
	sd.DeletedAt = &now
	sd.DeletedBy = actorID
	sd.InactiveReason = reason
}

// Restore reverses a deactivation in memory; callers persist it.
func (sd *SoftDelete) Restore() {
	sd.IsActive = true
	sd.DeletedAt = nil
	sd.DeletedBy = nil
	sd.InactiveReason = ""
}

// FullName returns the display name used in rosters and event payloads.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

func (t *Teacher) FullName() string {
	return t.FirstName + " " + t.LastName
}

// BeforeSave keeps the shadow uniqueness column in sync with the lifecycle
// state so no code path can produce an active row without the guard value.
func (s *Student) BeforeSave(tx *gorm.DB) error {
	if s.IsActive && s.NationalCode != "" {
		code := s.NationalCode
		s.ActiveNationalCode = &code
	} else {
		s.ActiveNationalCode = nil
	}
	return nil
}
