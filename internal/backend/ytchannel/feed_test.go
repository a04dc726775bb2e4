package ytchannel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
  <title>Channel uploads</title>
  <entry>
    <id>yt:video:dQw4w9WgXcQ</id>
    <yt:videoId>dQw4w9WgXcQ</yt:videoId>
    <title>First upload</title>
  </entry>
  <entry>
    <id>yt:video:abc123def45</id>
    <yt:videoId>abc123def45</yt:videoId>
    <title>Second upload</title>
  </entry>
</feed>`

func withTestEndpoints(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	origFeed, origLive := feedURLFormat, liveURLFormat
	feedURLFormat = srv.URL + "/feeds/videos.xml?channel_id=%s"
	liveURLFormat = srv.URL + "/channel/%s/live"
	t.Cleanup(func() {
		feedURLFormat = origFeed
		liveURLFormat = origLive
	})
	return srv
}

func TestFetchFeedParsesEntries(t *testing.T) {
	withTestEndpoints(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("channel_id"); got != "UCtest" {
			t.Errorf("channel_id = %q, want UCtest", got)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(sampleFeed))
	}))

	items, err := fetchFeed(context.Background(), http.DefaultClient, "UCtest")
	if err != nil {
		t.Fatalf("fetchFeed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].VideoID != "dQw4w9WgXcQ" || items[0].Title != "First upload" {
		t.Errorf("first item = %+v", items[0])
	}
	if got, want := items[1].URI(), "https://www.youtube.com/watch?v=abc123def45"; got != want {
		t.Errorf("URI = %q, want %q", got, want)
	}
}

func TestFetchFeedRejectsEmptyFeed(t *testing.T) {
	withTestEndpoints(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))

	if _, err := fetchFeed(context.Background(), http.DefaultClient, "UCempty"); err == nil {
		t.Fatal("expected error for feed with no entries")
	}
}

func TestFetchFeedSurfacesServerError(t *testing.T) {
	withTestEndpoints(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))

	if _, err := fetchFeed(context.Background(), http.DefaultClient, "UCdown"); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestProbeLiveDetectsRedirectToWatch(t *testing.T) {
	withTestEndpoints(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://www.youtube.com/watch?v=livevideo01")
		w.WriteHeader(http.StatusFound)
	}))

	live, uri, err := probeLive(context.Background(), noRedirectClient(2*time.Second), "UClive")
	if err != nil {
		t.Fatalf("probeLive: %v", err)
	}
	if !live {
		t.Fatal("live = false, want true")
	}
	if want := "https://www.youtube.com/watch?v=livevideo01"; uri != want {
		t.Errorf("uri = %q, want %q", uri, want)
	}
}

func TestProbeLiveDetectsMarkerInBody(t *testing.T) {
	withTestEndpoints(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><link rel="canonical" href="https://www.youtube.com/watch?v=livevideo02"></head>` +
			`<body><script>{"isLiveNow":true}</script></body></html>`))
	}))

	live, uri, err := probeLive(context.Background(), noRedirectClient(2*time.Second), "UClive")
	if err != nil {
		t.Fatalf("probeLive: %v", err)
	}
	if !live {
		t.Fatal("live = false, want true")
	}
	if want := "https://www.youtube.com/watch?v=livevideo02"; uri != want {
		t.Errorf("uri = %q, want %q", uri, want)
	}
}

func TestProbeLiveNoBroadcast(t *testing.T) {
	withTestEndpoints(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>channel page, nothing live</body></html>`))
	}))

	live, _, err := probeLive(context.Background(), noRedirectClient(2*time.Second), "UCquiet")
	if err != nil {
		t.Fatalf("probeLive: %v", err)
	}
	if live {
		t.Fatal("live = true, want false")
	}
}

func TestWatchIDFromURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/channel/UCx/live", ""},
		{"", ""},
		{"://bad url", ""},
	}
	for _, tt := range tests {
		if got := watchIDFromURL(tt.raw); got != tt.want {
			t.Errorf("watchIDFromURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
