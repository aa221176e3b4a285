package db

import (
	"path/filepath"
	"testing"
)

func TestInitDB_CreatesSchemaIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.db")

	for i := 0; i < 2; i++ {
		db, err := InitDB(path)
		if err != nil {
			t.Fatalf("InitDB run %d: %v", i+1, err)
		}
		for _, table := range []string{"instances", "instance_cursors", "player_locations", "purchases", "operators"} {
			var name string
			err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
			if err != nil {
				t.Fatalf("table %s missing: %v", table, err)
			}
		}
		_ = db.Close()
	}
}
