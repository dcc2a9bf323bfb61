// Package config loads and validates the main JSON configuration document.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// DefaultGatewayURL is the Notifiarr passthrough endpoint used when the
// configuration does not override it.
const DefaultGatewayURL = "https://notifiarr.com/api/v1/notification/passthrough"

const defaultPollInterval = 1800 * time.Second

// Endpoint is one configured Torznab feed source.
type Endpoint struct {
	Name         string
	URL          string
	Categories   []string
	PollInterval time.Duration
}

// Gateway holds the Notifiarr notification gateway settings.
type Gateway struct {
	URL       string
	APIKey    string
	ChannelID int64
}

// Config is the loaded application configuration.
type Config struct {
	Endpoints []Endpoint
	Gateway   Gateway
}

type fileEndpoint struct {
	URL          string   `json:"url"`
	Categories   []string `json:"categories"`
	PollInterval int      `json:"poll_interval"`
}

type fileConfig struct {
	Torznab struct {
		Endpoints map[string]fileEndpoint `json:"endpoints"`
	} `json:"torznab"`
	Notifiarr struct {
		URL     string `json:"url"`
		APIKey  string `json:"api_key"`
		Discord struct {
			ChannelID int64 `json:"channel_id"`
		} `json:"discord"`
	} `json:"notifiarr"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		Gateway: Gateway{
			URL:       fc.Notifiarr.URL,
			APIKey:    fc.Notifiarr.APIKey,
			ChannelID: fc.Notifiarr.Discord.ChannelID,
		},
	}
	if cfg.Gateway.URL == "" {
		cfg.Gateway.URL = DefaultGatewayURL
	}

	for name, fe := range fc.Torznab.Endpoints {
		if fe.PollInterval < 0 {
			return nil, fmt.Errorf("endpoint %q: poll_interval must be positive", name)
		}
		interval := defaultPollInterval
		if fe.PollInterval > 0 {
			interval = time.Duration(fe.PollInterval) * time.Second
		}
		cfg.Endpoints = append(cfg.Endpoints, Endpoint{
			Name:         name,
			URL:          fe.URL,
			Categories:   fe.Categories,
			PollInterval: interval,
		})
	}
	// Endpoints come out of a JSON object; keep a deterministic order.
	sort.Slice(cfg.Endpoints, func(i, j int) bool {
		return cfg.Endpoints[i].Name < cfg.Endpoints[j].Name
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("no torznab endpoints configured")
	}
	for _, ep := range c.Endpoints {
		if ep.URL == "" {
			return fmt.Errorf("endpoint %q: url is required", ep.Name)
		}
		if len(ep.Categories) == 0 {
			return fmt.Errorf("endpoint %q: no categories specified", ep.Name)
		}
		if ep.PollInterval <= 0 {
			return fmt.Errorf("endpoint %q: poll_interval must be positive", ep.Name)
		}
	}
	if c.Gateway.APIKey == "" {
		return fmt.Errorf("notifiarr api_key is required")
	}
	if c.Gateway.ChannelID == 0 {
		return fmt.Errorf("notifiarr discord channel_id is required")
	}
	return nil
}
