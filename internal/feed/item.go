// Package feed handles Torznab feed downloading, parsing, and item identity.
package feed

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed/rss"
)

// Document is a parsed Torznab feed.
type Document struct {
	Title string
	Items []Item
}

// Item is a single <item> entry from a Torznab feed. It keeps the parsed
// RSS item so mapping rules can reach arbitrary child tags and vendor
// attributes.
type Item struct {
	src *rss.Item
}

// Parse parses raw Torznab XML into a Document.
func Parse(data []byte) (*Document, error) {
	parser := &rss.Parser{}
	rf, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	doc := &Document{Title: rf.Title}
	for _, it := range rf.Items {
		doc.Items = append(doc.Items, Item{src: it})
	}
	return doc, nil
}

// Title returns the item title.
func (it Item) Title() string {
	return it.src.Title
}

// ID returns a stable identifier for the item.
// The feed GUID is used when present, with its URL query reduced to the id
// parameter since indexers append volatile tracking parameters. Items
// without a GUID fall back to a hash of title and publish date.
func (it Item) ID() string {
	if it.src.GUID != nil && it.src.GUID.Value != "" {
		return cleanGUID(it.src.GUID.Value)
	}
	h := sha256.Sum256([]byte(it.src.Title + "|" + it.src.PubDate))
	return fmt.Sprintf("sha256:%x", h[:16])
}

// Categories returns the set of Torznab category codes attached to the item.
func (it Item) Categories() map[string]struct{} {
	cats := make(map[string]struct{})
	for _, v := range it.AttrValues("category") {
		cats[v] = struct{}{}
	}
	return cats
}

// AttrValues returns the values of every vendor attribute element with the
// given name, in document order. Torznab attrs repeat, e.g. multiple
// coverurl entries.
func (it Item) AttrValues(name string) []string {
	var values []string
	for _, byName := range it.src.Extensions {
		for _, attr := range byName["attr"] {
			if attr.Attrs["name"] == name {
				if v, ok := attr.Attrs["value"]; ok {
					values = append(values, v)
				}
			}
		}
	}
	return values
}

// Tag returns the text content of a direct child tag of the item.
// Standard RSS fields are resolved from the parsed item; anything else is
// looked up among the item's custom elements.
func (it Item) Tag(path string) (string, bool) {
	switch path {
	case "title":
		return it.src.Title, it.src.Title != ""
	case "link":
		return it.src.Link, it.src.Link != ""
	case "description":
		return it.src.Description, it.src.Description != ""
	case "comments":
		return it.src.Comments, it.src.Comments != ""
	case "author":
		return it.src.Author, it.src.Author != ""
	case "pubDate", "pubdate":
		return it.src.PubDate, it.src.PubDate != ""
	case "guid":
		if it.src.GUID == nil {
			return "", false
		}
		return it.src.GUID.Value, it.src.GUID.Value != ""
	case "category":
		if len(it.src.Categories) == 0 {
			return "", false
		}
		return it.src.Categories[0].Value, true
	}
	v, ok := it.src.Custom[strings.ToLower(path)]
	return v, ok
}

// cleanGUID strips a GUID URL's query string down to its id parameter.
func cleanGUID(guid string) string {
	base, query, found := strings.Cut(guid, "?")
	if !found {
		return guid
	}
	for _, param := range strings.Split(query, "&") {
		if strings.HasPrefix(param, "id=") {
			return base + "?" + param
		}
	}
	return base
}
