package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashwinyue/next-dataset/internal/config"
	"github.com/ashwinyue/next-dataset/internal/model"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Storage.Dir = t.TempDir()
	return cfg
}

func TestStoreName(t *testing.T) {
	date := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

	if got := StoreName(date, false); got != "10-18-2026-dataset" {
		t.Errorf("StoreName() = %q", got)
	}
	if got := StoreName(date, true); got != "10-18-2026-dataset-test" {
		t.Errorf("StoreName(testing) = %q", got)
	}
}

func TestSchemaName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "10-18-2026-dataset", want: "dataset_10_18_2026_dataset"},
		{in: "base_dataset", want: "base_dataset"},
		{in: "Base.Dataset", want: "base_dataset"},
	}
	for _, tt := range tests {
		if got := SchemaName(tt.in); got != tt.want {
			t.Errorf("SchemaName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpener_OpenSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	opener := NewOpener(cfg)

	db, err := opener.Open(ctx, "10-18-2026-dataset")
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(cfg.Storage.Dir, "10-18-2026-dataset.db")); err != nil {
		t.Errorf("store file not created: %v", err)
	}
	if !db.Migrator().HasTable(&model.Subtopic{}) {
		t.Error("subtopics table missing")
	}
	if !db.Migrator().HasTable("questions_answers") {
		t.Error("questions_answers table missing")
	}
	if err := db.Ping(ctx); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestOpener_ReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	opener := NewOpener(newTestConfig(t))

	db, err := opener.Open(ctx, "store")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&model.Subtopic{Topic: "Agentic AI", Text: "Tool use"}).Error; err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = opener.Open(ctx, "store")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int64
	db.Model(&model.Subtopic{}).Count(&count)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
