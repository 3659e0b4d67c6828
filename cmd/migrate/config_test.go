package main

import (
	"testing"

	"socialapi/db"
)

func TestMigrationsSource_EnvOverride(t *testing.T) {
	t.Setenv("MIGRATIONS_DIR", "/custom/migrations")

	fsys, dir := migrationsSource()
	if fsys != nil {
		t.Fatalf("expected disk source when MIGRATIONS_DIR is set")
	}
	if dir != "/custom/migrations" {
		t.Fatalf("expected MIGRATIONS_DIR override, got %q", dir)
	}
	if got := sourceDir(); got != "/custom/migrations" {
		t.Fatalf("expected create dir override, got %q", got)
	}
}

func TestMigrationsSource_DefaultIsEmbedded(t *testing.T) {
	t.Setenv("MIGRATIONS_DIR", "")

	fsys, dir := migrationsSource()
	if fsys == nil {
		t.Fatalf("expected embedded migrations")
	}
	if dir != db.MigrationsDir {
		t.Fatalf("expected %q, got %q", db.MigrationsDir, dir)
	}
	if got := sourceDir(); got != "db/migrations" {
		t.Fatalf("expected default create dir, got %q", got)
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()

	for _, name := range []string{"up", "down", "status", "create"} {
		if app.Command(name) == nil {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestCreate_RequiresName(t *testing.T) {
	err := newApp().Run([]string{"migrate", "create"})
	if err == nil {
		t.Fatal("expected an error without a name")
	}
}
