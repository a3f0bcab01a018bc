package db

import (
	"testing"
	"testing/fstest"
)

func TestMigratorLoad_SortsAndSkips(t *testing.T) {
	files := fstest.MapFS{
		"002_patients.sql": {Data: []byte("CREATE TABLE patients (id INT);")},
		"001_core.sql":     {Data: []byte("CREATE TABLE clinics (id INT);")},
		"README.md":        {Data: []byte("docs")},
		"seed.sql":         {Data: []byte("SELECT 1;")},
		"abc_bad.sql":      {Data: []byte("SELECT 1;")},
	}

	migrations, err := NewMigrator(nil, files).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "001_core.sql" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].SQL != "CREATE TABLE patients (id INT);" {
		t.Fatalf("unexpected SQL: %q", migrations[1].SQL)
	}
}

func TestMigratorLoad_DuplicateVersion(t *testing.T) {
	files := fstest.MapFS{
		"001_core.sql":  {Data: []byte("SELECT 1;")},
		"001_other.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := NewMigrator(nil, files).Load(); err == nil {
		t.Fatal("expected duplicate version error")
	}
}
