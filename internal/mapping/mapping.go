// Package mapping implements the declarative notification field mapping.
//
// A ruleset turns one feed item into a flat field->value record. Rule kinds
// form a closed set: xml_tag reads a child tag, torznab_attr reads vendor
// attributes, static emits a literal. Unknown kinds are rejected when the
// mapping file is loaded, before any feed traffic happens.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"torznab_monitor/internal/feed"
)

// RuleKind defines the type of a mapping rule.
type RuleKind string

// Supported rule kinds.
const (
	KindXMLTag      RuleKind = "xml_tag"
	KindTorznabAttr RuleKind = "torznab_attr"
	KindStatic      RuleKind = "static"
)

// Select policies for torznab_attr rules.
const (
	SelectFirst = "first"
	SelectAll   = "all"
)

// Rule extracts a single output field from a feed item.
type Rule struct {
	Kind   RuleKind `json:"type"`
	Path   string   `json:"path,omitempty"`
	Name   string   `json:"name,omitempty"`
	Value  string   `json:"value,omitempty"`
	Select string   `json:"select,omitempty"`
}

// Ruleset maps output field names to their extraction rules.
type Ruleset map[string]Rule

// Record is a resolved notification payload.
type Record map[string]string

// Config holds the named rulesets loaded from the mapping file.
type Config struct {
	rulesets map[string]Ruleset
}

type mappingFile struct {
	Mappings map[string]Ruleset `json:"mappings"`
}

// KeyFor returns the ruleset key an endpoint resolves its notifications
// with.
func KeyFor(endpoint string) string {
	return endpoint + "-notifiarr"
}

// Load reads the mapping file at path and validates every rule.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}

	var mf mappingFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}

	for name, rules := range mf.Mappings {
		for field, rule := range rules {
			if err := validateRule(rule); err != nil {
				return nil, fmt.Errorf("mapping %q field %q: %w", name, field, err)
			}
		}
	}

	return &Config{rulesets: mf.Mappings}, nil
}

// Ruleset returns the named ruleset.
func (c *Config) Ruleset(name string) (Ruleset, bool) {
	rs, ok := c.rulesets[name]
	return rs, ok
}

func validateRule(r Rule) error {
	switch r.Kind {
	case KindXMLTag:
		if r.Path == "" {
			return fmt.Errorf("xml_tag rule requires a path")
		}
	case KindTorznabAttr:
		if r.Name == "" {
			return fmt.Errorf("torznab_attr rule requires a name")
		}
		if r.Select != "" && r.Select != SelectFirst && r.Select != SelectAll {
			return fmt.Errorf("unknown select policy %q", r.Select)
		}
	case KindStatic:
		if r.Value == "" {
			return fmt.Errorf("static rule requires a value")
		}
	default:
		return fmt.Errorf("unknown rule type %q", r.Kind)
	}
	return nil
}

// Resolve applies a ruleset to a feed item. Fields whose source data is
// absent are omitted from the record; static fields are always present.
// Resolve does not mutate the item and touches neither network nor store.
func Resolve(item feed.Item, rules Ruleset) Record {
	record := make(Record, len(rules))
	for field, rule := range rules {
		switch rule.Kind {
		case KindStatic:
			record[field] = rule.Value
		case KindXMLTag:
			if v, ok := item.Tag(rule.Path); ok {
				if v = strings.TrimSpace(v); v != "" {
					record[field] = v
				}
			}
		case KindTorznabAttr:
			values := item.AttrValues(rule.Name)
			if len(values) == 0 {
				continue
			}
			if rule.Select == SelectAll {
				record[field] = strings.Join(values, ", ")
			} else {
				record[field] = values[0]
			}
		}
	}
	return record
}
