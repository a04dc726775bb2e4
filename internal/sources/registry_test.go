package sources

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testSpecs() []SourceSpec {
	return []SourceSpec{
		{ID: "spotify-morning", Kind: KindPlaylistService, Label: "Morning Mix", Identifier: "37i9dQZF1DXcBWIGoYBM5M", OrderIndex: 0},
		{ID: "news-channel", Kind: KindChannel, Label: "News", Identifier: "UCupvZG-5ko_eiXAupbDfxWw", OrderIndex: 1},
		{ID: "oldies", Kind: KindPlaylistVideo, Label: "Oldies", Identifier: "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", OrderIndex: 2},
	}
}

func TestRegistryAdvanceIsCyclic(t *testing.T) {
	reg, err := NewRegistry(testSpecs())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	start := reg.Current()
	for i := 0; i < reg.Len(); i++ {
		reg.Advance()
	}
	if got := reg.Current(); got.ID != start.ID {
		t.Fatalf("advancing %d times should return to %q, got %q", reg.Len(), start.ID, got.ID)
	}
}

func TestRegistrySelectOutOfRange(t *testing.T) {
	reg, err := NewRegistry(testSpecs())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if _, err := reg.Select(99); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := reg.Select(-1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for negative index, got %v", err)
	}

	spec, err := reg.Select(1)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if spec.ID != "news-channel" {
		t.Fatalf("unexpected selection: %q", spec.ID)
	}
	if reg.Index() != 1 {
		t.Fatalf("cursor not moved: %d", reg.Index())
	}
}

func TestNewRegistryRejectsEmptyList(t *testing.T) {
	if _, err := NewRegistry(nil); !errors.Is(err, ErrEmptyRegistry) {
		t.Fatalf("expected ErrEmptyRegistry, got %v", err)
	}
}

func TestValidateRejectsMismatchedIdentifiers(t *testing.T) {
	cases := []struct {
		name string
		spec SourceSpec
	}{
		{"playlist id on channel kind", SourceSpec{ID: "a", Kind: KindChannel, Label: "x", Identifier: "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI"}},
		{"channel id on playlist kind", SourceSpec{ID: "b", Kind: KindPlaylistVideo, Label: "x", Identifier: "UCupvZG-5ko_eiXAupbDfxWw"}},
		{"short service id", SourceSpec{ID: "c", Kind: KindPlaylistService, Label: "x", Identifier: "abc123"}},
		{"unknown kind", SourceSpec{ID: "d", Kind: "webradio", Label: "x", Identifier: "whatever"}},
	}

	for _, tc := range cases {
		if err := Validate([]SourceSpec{tc.spec}); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	specs := testSpecs()
	specs[2].ID = specs[0].ID
	if err := Validate(specs); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestLoadFileAssignsOrderIndexes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	content := `
- id: spotify-morning
  kind: playlist_service
  label: Morning Mix
  identifier: 37i9dQZF1DXcBWIGoYBM5M
- id: news-channel
  kind: channel
  label: News
  identifier: UCupvZG-5ko_eiXAupbDfxWw
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	specs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(specs))
	}
	for i, spec := range specs {
		if spec.OrderIndex != i {
			t.Fatalf("source %d has order index %d", i, spec.OrderIndex)
		}
	}
}

func TestLoadFileFailsOnEmptyList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(path, []byte("[]\n"), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	if _, err := LoadFile(path); !errors.Is(err, ErrEmptyRegistry) {
		t.Fatalf("expected ErrEmptyRegistry, got %v", err)
	}
}
