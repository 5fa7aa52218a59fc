package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func services(t *testing.T) map[string]Service {
	out := map[string]Service{
		ModeMemory: NewMemoryService(3),
	}
	s, err := NewSQLiteService(filepath.Join(t.TempDir(), "ledger.db"), 3)
	if err != nil {
		t.Fatalf("open sqlite ledger: %v", err)
	}
	out[ModeSQLite] = s
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		pg, err := NewPostgresService(dsn, 3)
		if err != nil {
			t.Fatalf("open postgres ledger: %v", err)
		}
		_ = pg.Clear(context.Background())
		out[ModePostgres] = pg
	}
	return out
}

func TestLedger_AppendListAndRetention(t *testing.T) {
	for mode, svc := range services(t) {
		t.Run(mode, func(t *testing.T) {
			defer svc.Close()
			ctx := context.Background()
			for i := 1; i <= 5; i++ {
				if err := svc.Append(ctx, Entry{Profile: "Bob", ActionID: "mine-stone-button", Skill: "mining", XP: float64(i), Level: i}); err != nil {
					t.Fatalf("append: %v", err)
				}
			}
			if err := svc.Append(ctx, Entry{Profile: "Amy", ActionID: "forage-herbs-button", Skill: "foraging", XP: 5}); err != nil {
				t.Fatalf("append: %v", err)
			}

			items, err := svc.ListRecent(ctx, "Bob", 10)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(items) != 3 {
				t.Fatalf("expected retention of 3, got %d", len(items))
			}
			if items[0].XP != 5 || items[2].XP != 3 {
				t.Fatalf("expected newest first, got %+v", items)
			}
			if items[0].At.IsZero() {
				t.Fatalf("expected timestamp to be filled in")
			}
		})
	}
}

func TestLedger_RenameAndDelete(t *testing.T) {
	for mode, svc := range services(t) {
		t.Run(mode, func(t *testing.T) {
			defer svc.Close()
			ctx := context.Background()
			if err := svc.Append(ctx, Entry{Profile: "Bob", ActionID: "a", Skill: "mining", XP: 1}); err != nil {
				t.Fatalf("append: %v", err)
			}
			if err := svc.RenameProfile(ctx, "Bob", "Robert"); err != nil {
				t.Fatalf("rename: %v", err)
			}
			items, _ := svc.ListRecent(ctx, "Robert", 0)
			if len(items) != 1 || items[0].Profile != "Robert" {
				t.Fatalf("expected history to follow rename, got %+v", items)
			}
			if err := svc.DeleteProfile(ctx, "Robert"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			items, _ = svc.ListRecent(ctx, "Robert", 0)
			if len(items) != 0 {
				t.Fatalf("expected history removed, got %+v", items)
			}
		})
	}
}

type fixedSelection string

func (f fixedSelection) ResolveSelectedName(context.Context) (string, error) { return string(f), nil }

func TestHTTPHandler_ServesSelectedProfileHistory(t *testing.T) {
	svc := NewMemoryService(10)
	ctx := context.Background()
	_ = svc.Append(ctx, Entry{Profile: "Bob", ActionID: "gather-wood-button", Skill: "woodcutting", XP: 10, Item: "wood", Quantity: 1})
	_ = svc.Append(ctx, Entry{Profile: "Amy", ActionID: "mine-stone-button", Skill: "mining", XP: 15})

	mux := http.NewServeMux()
	NewHTTPHandler(fixedSelection("Bob"), svc).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Profile string  `json:"profile"`
		Items   []Entry `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Profile != "Bob" || len(body.Items) != 1 || body.Items[0].ActionID != "gather-wood-button" {
		t.Fatalf("unexpected body: %+v", body)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/history", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestOpen_Modes(t *testing.T) {
	svc, mode, err := Open(Options{})
	if err != nil || mode != "noop" {
		t.Fatalf("expected noop ledger, got %s err=%v", mode, err)
	}
	if items, _ := svc.ListRecent(context.Background(), "x", 5); len(items) != 0 {
		t.Fatalf("noop ledger returned entries")
	}
	if _, _, err := Open(Options{Mode: "kafka"}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
