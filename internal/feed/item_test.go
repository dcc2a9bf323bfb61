package feed

import (
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func loadDocument(t *testing.T, path string) *Document {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("parse fixture %s: %v", path, err)
	}
	return doc
}

func TestParse(t *testing.T) {
	doc := loadDocument(t, "../../testdata/torznab.xml")

	if diff := cmp.Diff("Indexer Releases", doc.Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(5, len(doc.Items)); diff != "" {
		t.Errorf("item count mismatch (-want +got):\n%s", diff)
	}
}

func TestItemID(t *testing.T) {
	doc := loadDocument(t, "../../testdata/torznab.xml")

	// GUID query strings are reduced to the id parameter.
	if diff := cmp.Diff("https://indexer.example.com/details?id=1001", doc.Items[0].ID()); diff != "" {
		t.Errorf("cleaned GUID mismatch (-want +got):\n%s", diff)
	}

	// Item without a GUID falls back to a content hash.
	id := doc.Items[3].ID()
	if !strings.HasPrefix(id, "sha256:") {
		t.Errorf("expected sha256 prefix for GUID-less item, got %q", id)
	}
	if diff := cmp.Diff(id, doc.Items[3].ID()); diff != "" {
		t.Errorf("identity not deterministic (-want +got):\n%s", diff)
	}
}

func TestCleanGUID(t *testing.T) {
	tests := []struct {
		name string
		guid string
		want string
	}{
		{
			name: "id kept, tracking params dropped",
			guid: "https://example.com/details?id=42&hit=1",
			want: "https://example.com/details?id=42",
		},
		{
			name: "no query string",
			guid: "https://example.com/details/42",
			want: "https://example.com/details/42",
		},
		{
			name: "query without id param",
			guid: "https://example.com/details?session=abc",
			want: "https://example.com/details",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, cleanGUID(tt.guid)); diff != "" {
				t.Errorf("cleanGUID mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestItemCategories(t *testing.T) {
	doc := loadDocument(t, "../../testdata/torznab.xml")

	var got []string
	for cat := range doc.Items[0].Categories() {
		got = append(got, cat)
	}
	sort.Strings(got)

	if diff := cmp.Diff([]string{"3000", "3040"}, got); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestItemAttrValues(t *testing.T) {
	doc := loadDocument(t, "../../testdata/torznab.xml")
	item := doc.Items[0]

	want := []string{
		"https://img.example.com/1001-front.jpg",
		"https://img.example.com/1001-back.jpg",
	}
	if diff := cmp.Diff(want, item.AttrValues("coverurl")); diff != "" {
		t.Errorf("coverurl values mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"524288000"}, item.AttrValues("size")); diff != "" {
		t.Errorf("size values mismatch (-want +got):\n%s", diff)
	}

	if got := item.AttrValues("missing"); got != nil {
		t.Errorf("expected no values for missing attr, got %v", got)
	}
}

func TestItemTag(t *testing.T) {
	doc := loadDocument(t, "../../testdata/torznab.xml")
	item := doc.Items[0]

	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{path: "title", want: "Artist - First Album (2024) FLAC", wantOK: true},
		{path: "comments", want: "https://indexer.example.com/details?id=1001#comments", wantOK: true},
		{path: "pubDate", want: "Mon, 02 Jun 2025 10:00:00 +0000", wantOK: true},
		{path: "releasename", want: "Artist.First.Album.2024.FLAC", wantOK: true},
		{path: "nonexistent", want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := item.Tag(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Tag(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tag(%q) mismatch (-want +got):\n%s", tt.path, diff)
			}
		})
	}
}
