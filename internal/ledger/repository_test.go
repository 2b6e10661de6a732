package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/microbit-carlos/codalcfg/internal/infrastructure/database"
	"github.com/microbit-carlos/codalcfg/internal/target"
	"github.com/microbit-carlos/codalcfg/internal/target/profile"
	_ "github.com/microbit-carlos/codalcfg/migrations"
)

// setupTestRepo opens a migrated ledger database in a temporary directory.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "ledger.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

// at returns a fixed UTC timestamp offset by the given number of seconds.
func at(sec int) time.Time {
	return time.Date(2026, 10, 15, 9, 0, sec, 0, time.UTC)
}

func successRecord(t *testing.T, name string, created time.Time) *Record {
	t.Helper()
	resolved, err := target.Resolve(profile.Base(), profile.CodalWASM())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	rec := FromResult(name, resolved, nil)
	rec.Base, rec.Override = "framework", "codal-wasm"
	rec.Duration = 1500 * time.Microsecond
	rec.CreatedAt = created
	return rec
}

func failureRecord(t *testing.T, name string, created time.Time) *Record {
	t.Helper()
	override := target.NewSet().Put(target.KeyStackSize, target.Uint32(200000))
	_, err := target.Resolve(profile.Base(), override)
	rec := FromResult(name, nil, err)
	rec.Base, rec.Override = "framework", "big-stack.yaml"
	rec.CreatedAt = created
	return rec
}

func TestSQLiteRepository_RecordAndGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	t.Run("success round trip", func(t *testing.T) {
		rec := successRecord(t, "codal-wasm", at(0))
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if !strings.HasPrefix(rec.ID, "res-") {
			t.Errorf("ID = %q, want res- prefix", rec.ID)
		}

		got, err := repo.GetByID(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if diff := cmp.Diff(rec, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("record mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("failure round trip", func(t *testing.T) {
		rec := failureRecord(t, "codal-wasm", at(1))
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("Record() error = %v", err)
		}

		got, err := repo.GetByID(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Invariant != string(target.InvariantStackWithinSRAM) {
			t.Errorf("Invariant = %q", got.Invariant)
		}
		if diff := cmp.Diff(rec.ErrorKeys, got.ErrorKeys); diff != "" {
			t.Errorf("ErrorKeys mismatch (-want +got):\n%s", diff)
		}
		if got.Fingerprint != "" || len(got.Entries) != 0 {
			t.Errorf("failure record has success fields: %+v", got)
		}
	})

	t.Run("fills CreatedAt", func(t *testing.T) {
		rec := &Record{Target: "t", Outcome: OutcomeError, Message: "boom"}
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if rec.CreatedAt.IsZero() {
			t.Error("CreatedAt not set")
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := repo.GetByID(ctx, "res-missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByID() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteRepository_RecordInvalid(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rec  *Record
	}{
		{"missing target", &Record{Outcome: OutcomeOK}},
		{"unknown outcome", &Record{Target: "t", Outcome: "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Record(ctx, tt.rec); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("Record() error = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	seed := []*Record{
		successRecord(t, "codal-wasm", at(0)),
		failureRecord(t, "codal-wasm", at(1)),
		successRecord(t, "codal-wasm", at(2)),
		successRecord(t, "nrf52-sim", at(3)),
	}
	for _, rec := range seed {
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantIDs   []string
		wantTotal int
		wantLimit int
	}{
		{
			name:      "all newest first",
			filter:    Filter{},
			wantIDs:   []string{seed[3].ID, seed[2].ID, seed[1].ID, seed[0].ID},
			wantTotal: 4,
			wantLimit: defaultListLimit,
		},
		{
			name:      "by target",
			filter:    Filter{Target: "codal-wasm"},
			wantIDs:   []string{seed[2].ID, seed[1].ID, seed[0].ID},
			wantTotal: 3,
			wantLimit: defaultListLimit,
		},
		{
			name:      "by outcome",
			filter:    Filter{Outcome: OutcomeInvariantViolation},
			wantIDs:   []string{seed[1].ID},
			wantTotal: 1,
			wantLimit: defaultListLimit,
		},
		{
			name:      "paged",
			filter:    Filter{Limit: 2, Offset: 1},
			wantIDs:   []string{seed[2].ID, seed[1].ID},
			wantTotal: 4,
			wantLimit: 2,
		},
		{
			name:      "limit clamped",
			filter:    Filter{Limit: 5000, Target: "nobody"},
			wantIDs:   []string{},
			wantTotal: 0,
			wantLimit: maxListLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			ids := make([]string, len(res.Records))
			for i, r := range res.Records {
				ids[i] = r.ID
				if r.Entries != nil {
					t.Errorf("record %s carries entries in a listing", r.ID)
				}
			}
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Errorf("IDs mismatch (-want +got):\n%s", diff)
			}
			if res.Total != tt.wantTotal || res.Limit != tt.wantLimit {
				t.Errorf("Total = %d, Limit = %d, want %d and %d", res.Total, res.Limit, tt.wantTotal, tt.wantLimit)
			}
		})
	}
}

func TestSQLiteRepository_Latest(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Latest(ctx, "codal-wasm"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest() on empty ledger error = %v, want ErrNotFound", err)
	}

	ok := successRecord(t, "codal-wasm", at(0))
	bad := failureRecord(t, "codal-wasm", at(5))
	other := successRecord(t, "nrf52-sim", at(9))
	for _, rec := range []*Record{ok, bad, other} {
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := repo.Latest(ctx, "codal-wasm")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.ID != ok.ID {
		t.Errorf("Latest() = %s, want the last successful run %s", got.ID, ok.ID)
	}
	if len(got.Entries) != got.KeyCount {
		t.Errorf("Latest() returned %d entries, want %d", len(got.Entries), got.KeyCount)
	}
}

var _ Repository = (*SQLiteRepository)(nil)
