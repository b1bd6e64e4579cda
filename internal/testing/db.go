// Package testing holds helpers shared by package tests.
package testing

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/aristath/portfolio-manager/internal/database"
)

// NewTestDB opens a migrated database named name in a per-test directory.
// "portfolio" and "client_data" get their schemas, other names start empty.
//
// The returned func closes the database. Calling it is optional and safe to
// repeat; it also runs when the test finishes.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	profile := database.ProfileStandard
	if name == database.NameClientData {
		profile = database.ProfileCache
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}

	var once sync.Once
	closeDB := func() {
		once.Do(func() {
			if err := db.Close(); err != nil {
				t.Logf("close %s: %v", name, err)
			}
		})
	}
	t.Cleanup(closeDB)

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate %s: %v", name, err)
	}
	return db, closeDB
}
