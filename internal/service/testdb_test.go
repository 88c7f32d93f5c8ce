package service

import (
	"path/filepath"
	"testing"

	"linkchat/internal/db"

	"gorm.io/gorm"
)

// newTestDB opens a throwaway sqlite database under t.TempDir().
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("connect test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

// mustRegister creates a user and fails the test on error.
func mustRegister(t *testing.T, svc *UserService, username, password string) uint {
	t.Helper()
	res, err := svc.Register(username, password)
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return res.ID
}

// mustCreateRoom creates a room and fails the test on error.
func mustCreateRoom(t *testing.T, svc *RoomService, name, password string, creator uint) string {
	t.Helper()
	room, err := svc.Create(name, password, creator)
	if err != nil {
		t.Fatalf("create room %s: %v", name, err)
	}
	return room.Link
}
