package store

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type dbRecord struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy *string
	DeletedAt gorm.DeletedAt
}

func (dbRecord) TableName() string { return "db_records" }

// newDBStore backs a store with an in-memory database so the write
// paths run against real SQL.
func newDBStore(t *testing.T) (*Store[dbRecord], *gorm.DB) {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&dbRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s := New[dbRecord](db, newFakeNotifier(), "db_records", "db_records_changed")
	t.Cleanup(func() { s.Close() })
	return s, db
}

func TestCreateRefreshesCursor(t *testing.T) {
	s, _ := newDBStore(t)

	rec := dbRecord{ID: "r1", Name: "first", CreatedBy: "ops@salama"}
	if err := s.Create(&rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The eagerly refreshed cursor sees the row without a subscription.
	items := s.CurrentItems()
	if len(items) != 1 || items[0].Name != "first" {
		t.Fatalf("CurrentItems after create = %+v", items)
	}
}

func TestUpdateStampsPerformerMetadata(t *testing.T) {
	s, db := newDBStore(t)

	if err := s.Create(&dbRecord{ID: "r1", Name: "first"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := s.Update("r1", map[string]interface{}{"name": "renamed", "dropped": nil}, "ops@salama")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	var row dbRecord
	if err := db.Where("id = ?", "r1").Take(&row).Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if row.Name != "renamed" {
		t.Errorf("name = %q, expected renamed", row.Name)
	}
	if row.UpdatedBy == nil || *row.UpdatedBy != "ops@salama" {
		t.Errorf("updated_by = %v, expected ops@salama", row.UpdatedBy)
	}
	if row.UpdatedAt.IsZero() {
		t.Error("updated_at not stamped")
	}

	if err := s.Update("missing", map[string]interface{}{"name": "x"}, "ops@salama"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update on missing id = %v, expected ErrNotFound", err)
	}
}

func TestDeleteIsSoftAndStampsPerformer(t *testing.T) {
	s, db := newDBStore(t)

	if err := s.Create(&dbRecord{ID: "r1", Name: "first"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(&dbRecord{ID: "r2", Name: "second"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Delete("r1", "ops@salama"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// The row survives as a soft delete with the performer recorded.
	var row dbRecord
	if err := db.Unscoped().Where("id = ?", "r1").Take(&row).Error; err != nil {
		t.Fatalf("read back deleted row: %v", err)
	}
	if !row.DeletedAt.Valid {
		t.Error("deleted_at not set; row was not soft deleted")
	}
	if row.UpdatedBy == nil || *row.UpdatedBy != "ops@salama" {
		t.Errorf("updated_by = %v, expected ops@salama", row.UpdatedBy)
	}

	// Deleted rows drop out of the mirror immediately.
	items := s.CurrentItems()
	if len(items) != 1 || items[0].ID != "r2" {
		t.Errorf("CurrentItems after delete = %+v", items)
	}

	if err := s.Delete("missing", "ops@salama"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete on missing id = %v, expected ErrNotFound", err)
	}
}
