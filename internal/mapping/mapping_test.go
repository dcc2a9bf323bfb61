package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"torznab_monitor/internal/feed"
)

const itemXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
  <channel>
    <title>Test</title>
    <item>
      <title>  Example  </title>
      <guid>https://indexer.example.com/details?id=7</guid>
      <pubDate>Mon, 02 Jun 2025 10:00:00 +0000</pubDate>
      <torznab:attr name="coverurl" value="a.jpg"/>
      <torznab:attr name="coverurl" value="b.jpg"/>
    </item>
  </channel>
</rss>`

func testItem(t *testing.T) feed.Item {
	t.Helper()
	doc, err := feed.Parse([]byte(itemXML))
	if err != nil {
		t.Fatalf("parse item xml: %v", err)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(doc.Items))
	}
	return doc.Items[0]
}

func writeMapping(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notification_mapping.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeMapping(t, `{
		"mappings": {
			"music-notifiarr": {
				"title": {"type": "xml_tag", "path": "title"},
				"image": {"type": "torznab_attr", "name": "coverurl", "select": "first"},
				"name":  {"type": "static", "value": "New torrent available"}
			}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rules, ok := cfg.Ruleset("music-notifiarr")
	if !ok {
		t.Fatal("expected music-notifiarr ruleset")
	}
	if diff := cmp.Diff(3, len(rules)); diff != "" {
		t.Errorf("rule count mismatch (-want +got):\n%s", diff)
	}

	if _, ok := cfg.Ruleset("other-notifiarr"); ok {
		t.Error("expected missing ruleset lookup to fail")
	}
}

func TestLoadRejectsBadRules(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown rule type",
			content: `{"mappings": {"m": {"title": {"type": "xml_tga", "path": "title"}}}}`,
		},
		{
			name:    "xml_tag without path",
			content: `{"mappings": {"m": {"title": {"type": "xml_tag"}}}}`,
		},
		{
			name:    "torznab_attr without name",
			content: `{"mappings": {"m": {"image": {"type": "torznab_attr"}}}}`,
		},
		{
			name:    "torznab_attr with bad select",
			content: `{"mappings": {"m": {"image": {"type": "torznab_attr", "name": "coverurl", "select": "last"}}}}`,
		},
		{
			name:    "static without value",
			content: `{"mappings": {"m": {"name": {"type": "static"}}}}`,
		},
		{
			name:    "invalid json",
			content: `{"mappings":`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeMapping(t, tt.content)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestResolve(t *testing.T) {
	item := testItem(t)

	tests := []struct {
		name  string
		rules Ruleset
		want  Record
	}{
		{
			name:  "xml_tag trims text content",
			rules: Ruleset{"title": {Kind: KindXMLTag, Path: "title"}},
			want:  Record{"title": "Example"},
		},
		{
			name:  "xml_tag absent field omitted",
			rules: Ruleset{"summary": {Kind: KindXMLTag, Path: "description"}},
			want:  Record{},
		},
		{
			name:  "torznab_attr first",
			rules: Ruleset{"image": {Kind: KindTorznabAttr, Name: "coverurl", Select: SelectFirst}},
			want:  Record{"image": "a.jpg"},
		},
		{
			name:  "torznab_attr default select is first",
			rules: Ruleset{"image": {Kind: KindTorznabAttr, Name: "coverurl"}},
			want:  Record{"image": "a.jpg"},
		},
		{
			name:  "torznab_attr all joins values",
			rules: Ruleset{"covers": {Kind: KindTorznabAttr, Name: "coverurl", Select: SelectAll}},
			want:  Record{"covers": "a.jpg, b.jpg"},
		},
		{
			name:  "torznab_attr absent field omitted",
			rules: Ruleset{"size": {Kind: KindTorznabAttr, Name: "size"}},
			want:  Record{},
		},
		{
			name:  "static always present",
			rules: Ruleset{"name": {Kind: KindStatic, Value: "New torrent available"}},
			want:  Record{"name": "New torrent available"},
		},
		{
			name: "mixed ruleset",
			rules: Ruleset{
				"title": {Kind: KindXMLTag, Path: "title"},
				"image": {Kind: KindTorznabAttr, Name: "coverurl"},
				"name":  {Kind: KindStatic, Value: "New torrent available"},
				"icon":  {Kind: KindTorznabAttr, Name: "iconurl"},
			},
			want: Record{
				"title": "Example",
				"image": "a.jpg",
				"name":  "New torrent available",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(item, tt.rules)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
