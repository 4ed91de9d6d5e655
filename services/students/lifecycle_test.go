package students

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockService backs the service with a driver-level fake so lifecycle
// storage semantics are testable without a MySQL instance.
func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}

	return NewService(db, nil), mock
}

// A deactivated student whose national code was meanwhile taken by a newly
// created active student must not restore into a second active holder of
// that code.
func TestRestoreRejectsActiveCodeCollision(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT \\* FROM `students` WHERE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "national_code", "row_version"}).
			AddRow(1, false, "0499370899", 2))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `students`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	if _, err := svc.Restore(1, 9); !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("row must stay untouched on a rejected restore: %v", err)
	}
}

func TestUpdateStaleRowVersionConflicts(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT \\* FROM `students` WHERE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "national_code", "row_version"}).
			AddRow(1, true, "", 5))
	// Guarded update matches zero rows: the caller's token went stale.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `students` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	stale := uint(4)
	in := UpdateInput{
		CreateInput: CreateInput{FirstName: "امیر", LastName: "حسینی"},
		RowVersion:  &stale,
	}
	if _, err := svc.Update(1, in, 9); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("row must not be reloaded or rewritten after a conflict: %v", err)
	}
}

func TestUpdateFreshRowVersionBumpsToken(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT \\* FROM `students` WHERE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "national_code", "row_version"}).
			AddRow(1, true, "", 5))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `students` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM `students` WHERE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "first_name", "row_version"}).
			AddRow(1, true, "امیر", 6))

	fresh := uint(5)
	in := UpdateInput{
		CreateInput: CreateInput{FirstName: "امیر", LastName: "حسینی"},
		RowVersion:  &fresh,
	}
	updated, err := svc.Update(1, in, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.RowVersion != 6 {
		t.Fatalf("expected row version 6 after the write, got %d", updated.RowVersion)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected storage activity: %v", err)
	}
}

func TestDeactivateAlreadyInactiveIsNoOp(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT \\* FROM `students` WHERE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "inactive_reason", "row_version"}).
			AddRow(1, false, "moved away", 2))

	student, changed, err := svc.Deactivate(1, "a different reason", 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatalf("expected an informational no-op on an already inactive student")
	}
	if student.InactiveReason != "moved away" {
		t.Fatalf("original reason must be preserved, got %q", student.InactiveReason)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("storage must stay untouched: %v", err)
	}
}
