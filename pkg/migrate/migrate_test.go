package migrate

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/paybridge/pkg/config"
)

func TestEmbeddedMigrationsValidate(t *testing.T) {
	if err := ValidateDir(DefaultDir); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestStatusFunctionsGuardPendingRows(t *testing.T) {
	matches, err := fs.Glob(Embedded(), DefaultDir+"/*_create_transaction_status_functions.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one status function migration, got %v", matches)
	}
	data, err := fs.ReadFile(Embedded(), matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE OR REPLACE FUNCTION update_amount_transactions(trid TEXT)",
		"CREATE OR REPLACE FUNCTION update_status_failed(trid TEXT)",
		"SET status      = 'successful'",
		"SET status     = 'failed'",
		"DROP FUNCTION IF EXISTS update_status_failed(TEXT)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
	if got := strings.Count(content, "AND status = 'pending'"); got != 2 {
		t.Errorf("expected both functions to guard on pending, found %d guards", got)
	}
}

func TestTransactionsTableConstrainsStatus(t *testing.T) {
	data, err := fs.ReadFile(Embedded(), DefaultDir+"/20260301090000_create_transactions.sql")
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	if !strings.Contains(string(data), "CHECK (status IN ('pending', 'successful', 'failed'))") {
		t.Fatal("expected status check constraint")
	}
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {
			"m/create.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {
			"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n")},
		},
		"duplicate version": {
			"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"m/20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if err := ValidateFS(fsys, "m"); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestMaybeRunDevSkipsOutsideSQLDev(t *testing.T) {
	cfg := &config.Config{
		App:   config.AppConfig{Env: "prod"},
		Store: config.StoreConfig{Driver: config.StoreDriverPostgres},
		DB:    config.DBConfig{AutoMigrate: true},
	}
	if err := MaybeRunDev(context.Background(), cfg, nil, nil); err != nil {
		t.Fatalf("expected prod to skip, got %v", err)
	}

	cfg.App.Env = "dev"
	cfg.Store.Driver = config.StoreDriverPostgREST
	if err := MaybeRunDev(context.Background(), cfg, nil, nil); err != nil {
		t.Fatalf("expected postgrest to skip, got %v", err)
	}
}
