package ytplaylist

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_player/internal/backend"
	"github.com/friendsincode/muninn_player/internal/sources"
)

func TestParseResolverOutput(t *testing.T) {
	output := "dQw4w9WgXcQ\tFirst video\n" +
		"\n" +
		"abc123def45\tSecond video\n" +
		"\tmissing id line\n"

	items, err := parseResolverOutput(strings.NewReader(output))
	if err != nil {
		t.Fatalf("parseResolverOutput: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].VideoID != "dQw4w9WgXcQ" || items[0].Title != "First video" {
		t.Errorf("first item = %+v", items[0])
	}
	if got, want := items[1].URI(), "https://www.youtube.com/watch?v=abc123def45"; got != want {
		t.Errorf("URI = %q, want %q", got, want)
	}
}

func TestParseResolverOutputTitleWithTabs(t *testing.T) {
	items, err := parseResolverOutput(strings.NewReader("vid00000001\tTitle\twith\ttabs\n"))
	if err != nil {
		t.Fatalf("parseResolverOutput: %v", err)
	}
	if items[0].Title != "Title\twith\ttabs" {
		t.Errorf("title = %q, tabs after the first must survive", items[0].Title)
	}
}

func TestStartIndexPrefersResumeMarker(t *testing.T) {
	b := New(Options{PlayerBin: "mpv"}, zerolog.Nop())
	items := []Item{{VideoID: "aaa"}, {VideoID: "bbb"}, {VideoID: "ccc"}}
	spec := sources.SourceSpec{ID: "mix", Kind: sources.KindPlaylistVideo}

	hint := backend.StartHint{Source: spec, ItemMarker: "bbb"}
	if got := b.startIndex(hint, items); got != 1 {
		t.Errorf("startIndex = %d, want 1 for resume marker", got)
	}

	// Unknown marker falls through to the cursor, then to zero.
	hint.ItemMarker = "zzz"
	if got := b.startIndex(hint, items); got != 0 {
		t.Errorf("startIndex = %d, want 0 for unknown marker", got)
	}

	b.cursors["mix"] = 2
	if got := b.startIndex(hint, items); got != 2 {
		t.Errorf("startIndex = %d, want stored cursor", got)
	}

	// A cursor beyond the freshly-resolved list restarts at the top.
	b.cursors["mix"] = 9
	if got := b.startIndex(hint, items); got != 0 {
		t.Errorf("startIndex = %d, want 0 for out-of-range cursor", got)
	}
}
