package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_player/internal/backend"
	"github.com/friendsincode/muninn_player/internal/buttons"
	"github.com/friendsincode/muninn_player/internal/events"
	"github.com/friendsincode/muninn_player/internal/logbuffer"
	"github.com/friendsincode/muninn_player/internal/models"
	"github.com/friendsincode/muninn_player/internal/player"
	"github.com/friendsincode/muninn_player/internal/sources"
)

type nopStore struct{}

func (nopStore) Load() *models.ResumeRecord               { return nil }
func (nopStore) Save(sourceIndex int, marker string) error { return nil }

type nopHistory struct{}

func (nopHistory) Append(sourceLabel, itemTitle string, event models.HistoryEvent, detail string) {}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	specs := []sources.SourceSpec{
		{ID: "news", Kind: sources.KindChannel, Label: "News", Identifier: "UCxxxxxxxxxxxxxxxxxxxxxx", OrderIndex: 0},
		{ID: "oldies", Kind: sources.KindPlaylistVideo, Label: "Oldies", Identifier: "PLxxxxxxxxxxxxxxxxxx", OrderIndex: 1},
	}
	registry, err := sources.NewRegistry(specs)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	controller := player.New(
		registry,
		map[sources.Kind]backend.Backend{},
		nopStore{},
		nopHistory{},
		events.NewBus(),
		make(chan buttons.Event),
		player.DefaultOptions(),
		zerolog.Nop(),
	)

	logs := logbuffer.New(16)
	logs.Add(logbuffer.LogEntry{Level: "info", Message: "hello", Component: "player"})

	return New("127.0.0.1", 0, controller, registry, nil, logs, zerolog.Nop())
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return rec, body
}

func TestHealthz(t *testing.T) {
	rec, body := get(t, newTestServer(t), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["version"] == "" {
		t.Error("version missing")
	}
}

func TestStatusReportsIdlePhase(t *testing.T) {
	rec, body := get(t, newTestServer(t), "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["phase"] != "idle" {
		t.Errorf("phase = %v, want idle", body["phase"])
	}
	if body["source_label"] != "News" {
		t.Errorf("source_label = %v, want News", body["source_label"])
	}
}

func TestSourcesListsRegistry(t *testing.T) {
	rec, body := get(t, newTestServer(t), "/sources")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	list, ok := body["sources"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("sources = %v, want 2 entries", body["sources"])
	}
	if body["active_index"] != float64(0) {
		t.Errorf("active_index = %v, want 0", body["active_index"])
	}
}

func TestLogsFilterAndLimit(t *testing.T) {
	rec, body := get(t, newTestServer(t), "/logs?component=player&limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestLogsRejectsBadLimit(t *testing.T) {
	rec, _ := get(t, newTestServer(t), "/logs?limit=banana")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	rec, _ := get(t, newTestServer(t), "/history?limit=0")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
