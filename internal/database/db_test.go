package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"qrmenu-backend/internal/models"

	"gorm.io/gorm"
)

func TestOpenMemoryMigrates(t *testing.T) {
	db, err := OpenMemory(t.Name())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	for _, m := range []any{&models.Restaurant{}, &models.Order{}, &models.Counter{}, &models.AuditLog{}} {
		if !db.Migrator().HasTable(m) {
			t.Fatalf("table for %T not migrated", m)
		}
	}

	r := models.Restaurant{Name: "Blue Orchid", Slug: "blue-orchid"}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("create restaurant: %v", err)
	}
	if len(r.ID) != 36 {
		t.Fatalf("expected uuid id, got %q", r.ID)
	}
}

func TestPing(t *testing.T) {
	prev := DB
	defer func() { DB = prev }()

	DB = nil
	if err := Ping(context.Background()); err == nil {
		t.Fatal("expected error for uninitialised database")
	}

	db, err := OpenMemory(t.Name())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	DB = db
	if err := Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "", 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestUniqueViolationIsTranslated(t *testing.T) {
	db, err := OpenMemory(t.Name())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := db.Create(&models.Restaurant{Name: "Blue Orchid", Slug: "blue-orchid"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	err = db.Create(&models.Restaurant{Name: "Blue Orchid Too", Slug: "blue-orchid"}).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey, got %v", err)
	}
}

func TestOpenFileAllowsSeveralConnections(t *testing.T) {
	db, err := OpenFile(filepath.Join(t.TempDir(), "qrmenu.db"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if n := sqlDB.Stats().MaxOpenConnections; n < 2 {
		t.Fatalf("expected a multi-connection pool, got %d", n)
	}
	var mode string
	db.Raw("PRAGMA journal_mode").Scan(&mode)
	if mode != "wal" {
		t.Fatalf("expected wal journal, got %q", mode)
	}
}
