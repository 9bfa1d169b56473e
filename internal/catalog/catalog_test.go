package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestBuildValuePattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{"single span", "kill %entities%", "kill ${1:%entities%}"},
		{"span first", "%player% is online", "${1:%player%} is online"},
		{"only first of two", "teleport %entities% to %location%", "teleport ${1:%entities%} to %location%"},
		{"only first of three", "%a% %b% %c%", "${1:%a%} %b% %c%"},
		{"no span", "on join", "on join"},
		{"lone percent", "50% chance", "50% chance"},
		{"escaped percent inside", `%a\%b% rest`, `${1:%a\%b%} rest`},
		{"non ascii offsets", "défi %número% ü", "défi ${1:%número%} ü"},
		{"empty span", "x %% y", "x ${1:%%} y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildValuePattern(tt.pattern); got != tt.want {
				t.Fatalf("BuildValuePattern(%q) = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestProject(t *testing.T) {
	entries := []SyntaxEntry{
		{Title: "Join", SyntaxType: "event", SyntaxPattern: "on join", Description: "When a player joins.", AddonName: "Skript"},
		{Title: "Kill", SyntaxType: "effect", SyntaxPattern: "kill %entities%\r\n\ndestroy %entities%\n", Description: "Kills.", AddonName: "Skript"},
	}
	got := Project(entries)
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(got), got)
	}

	ev := got[0]
	if !strings.HasSuffix(ev.InsertText, "\n\t") {
		t.Fatalf("event insert text %q does not open a block", ev.InsertText)
	}
	if ev.InsertText != "on join:\n\t" {
		t.Fatalf("event insert text = %q", ev.InsertText)
	}
	if ev.Detail != "Join - event - Skript" || ev.Documentation != "When a player joins." {
		t.Fatalf("unexpected event entry %+v", ev)
	}

	if got[1].Label != "kill %entities%" || got[1].InsertText != "kill ${1:%entities%}" {
		t.Fatalf("unexpected first effect entry %+v", got[1])
	}
	if got[2].Label != "destroy %entities%" || got[2].Detail != "Kill - effect - Skript" {
		t.Fatalf("unexpected second effect entry %+v", got[2])
	}
}

func TestSyntaxEntryJSON(t *testing.T) {
	raw := `[{"id":1,"title":"Join","syntax_type":"event","syntax_pattern":"on join","description":null,"addon":{"name":"Skript","id":3}}]`
	var entries []SyntaxEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := SyntaxEntry{Title: "Join", SyntaxType: "event", SyntaxPattern: "on join", AddonName: "Skript"}
	if len(entries) != 1 || entries[0] != want {
		t.Fatalf("entries = %+v", entries)
	}
	out, err := json.Marshal(entries[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"addon":{"name":"Skript"}`) {
		t.Fatalf("addon not nested: %s", out)
	}
}

func TestStoreReplaceIsWholesale(t *testing.T) {
	s := NewStore()
	if len(s.Completions()) != 0 {
		t.Fatal("new store not empty")
	}
	s.Replace([]SyntaxEntry{{Title: "A", SyntaxType: "effect", SyntaxPattern: "a\nb"}})
	if len(s.Completions()) != 2 {
		t.Fatalf("completions = %+v", s.Completions())
	}
	s.Replace([]SyntaxEntry{{Title: "C", SyntaxType: "effect", SyntaxPattern: "c"}})
	c := s.Completions()
	if len(c) != 1 || c[0].Label != "c" || s.Len() != 1 {
		t.Fatalf("old completions survived: %+v", c)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	if _, ok, err := c.Get(); ok || err != nil {
		t.Fatalf("empty cache Get = %v, %v", ok, err)
	}
	entries := []SyntaxEntry{{Title: "Join", SyntaxType: "event", SyntaxPattern: "on join", Description: "d", AddonName: "Skript"}}
	if err := c.Put("https://example.test/catalog", entries); err != nil {
		t.Fatalf("Put: %v", err)
	}
	payload, ok, err := c.Get()
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if payload.Source != "https://example.test/catalog" || len(payload.Entries) != 1 || payload.Entries[0] != entries[0] {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.FetchedAt.IsZero() {
		t.Fatal("fetch time not recorded")
	}
}

type fetcherFunc func(ctx context.Context) ([]SyntaxEntry, error)

func (f fetcherFunc) FetchCatalog(ctx context.Context) ([]SyntaxEntry, error) { return f(ctx) }

func TestLoaderFallsBackToCache(t *testing.T) {
	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	entries := []SyntaxEntry{{Title: "Join", SyntaxType: "event", SyntaxPattern: "on join", AddonName: "Skript"}}

	online := NewLoader(fetcherFunc(func(context.Context) ([]SyntaxEntry, error) { return entries, nil }),
		NewStore(), cache, "test", zaptest.NewLogger(t))
	if n, err := online.Load(context.Background()); err != nil || n != 1 {
		t.Fatalf("Load = %d, %v", n, err)
	}

	offlineErr := errors.New("offline")
	store := NewStore()
	offline := NewLoader(fetcherFunc(func(context.Context) ([]SyntaxEntry, error) { return nil, offlineErr }),
		store, cache, "test", zaptest.NewLogger(t))
	n, err := offline.Load(context.Background())
	if !errors.Is(err, offlineErr) {
		t.Fatalf("Load error = %v, want wrapped offline error", err)
	}
	if n != 1 || len(store.Completions()) != 1 {
		t.Fatalf("cache fallback not used: n=%d completions=%+v", n, store.Completions())
	}
}

func TestLoaderKeepsCatalogOnFailure(t *testing.T) {
	store := NewStore()
	store.Replace([]SyntaxEntry{{Title: "A", SyntaxType: "effect", SyntaxPattern: "a"}})
	l := NewLoader(fetcherFunc(func(context.Context) ([]SyntaxEntry, error) { return nil, errors.New("down") }),
		store, nil, "test", nil)
	if _, err := l.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if store.Len() != 1 {
		t.Fatal("catalog dropped after failed refresh")
	}
}
