// Package config loads application configuration from environment variables
// and the optional YAML watchlist file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIURL         string
	Username       string
	PollInterval   time.Duration
	ListenAddr     string
	DBPath         string
	MatchThreshold float64
	WatchlistPath  string
}

// Watchlist is the optional YAML seed file naming pages to watch and authors
// to mute at startup.
type Watchlist struct {
	Pages        []string `yaml:"pages"`
	MutedAuthors []string `yaml:"muted_authors"`
}

// Load reads configuration from environment variables and returns a validated
// Config. TALKWATCH_API_URL is required. Optional variables with defaults:
// TALKWATCH_USERNAME (empty, disables mention detection),
// TALKWATCH_POLL_INTERVAL (5m), TALKWATCH_LISTEN_ADDR (127.0.0.1:8080),
// TALKWATCH_DB_PATH (under the XDG data directory),
// TALKWATCH_MATCH_THRESHOLD (0, keep the built-in threshold),
// TALKWATCH_WATCHLIST (search the usual locations).
func Load() (*Config, error) {
	apiURL := os.Getenv("TALKWATCH_API_URL")
	if apiURL == "" {
		return nil, fmt.Errorf("TALKWATCH_API_URL is required, e.g. https://en.wikipedia.org/w/api.php")
	}

	username := os.Getenv("TALKWATCH_USERNAME")

	pollInterval := 5 * time.Minute
	if v, ok := os.LookupEnv("TALKWATCH_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TALKWATCH_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		pollInterval = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("TALKWATCH_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := filepath.Join(xdg.DataHome, "talkwatch", "talkwatch.db")
	if v, ok := os.LookupEnv("TALKWATCH_DB_PATH"); ok {
		dbPath = v
	}

	var matchThreshold float64
	if v, ok := os.LookupEnv("TALKWATCH_MATCH_THRESHOLD"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("TALKWATCH_MATCH_THRESHOLD has invalid value %q: %w", v, err)
		}
		matchThreshold = parsed
	}

	return &Config{
		APIURL:         apiURL,
		Username:       username,
		PollInterval:   pollInterval,
		ListenAddr:     listenAddr,
		DBPath:         dbPath,
		MatchThreshold: matchThreshold,
		WatchlistPath:  os.Getenv("TALKWATCH_WATCHLIST"),
	}, nil
}

// LoadWatchlist reads the YAML watchlist. The explicit path wins; otherwise
// the working directory and the XDG config directory are searched. A missing
// file only errors when it was named explicitly.
func LoadWatchlist(explicitPath string) (*Watchlist, error) {
	candidates := []string{
		explicitPath,
		"talkwatch.yaml",
		filepath.Join(xdg.ConfigHome, "talkwatch", "talkwatch.yaml"),
	}

	for _, path := range candidates {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			if path == explicitPath {
				return nil, fmt.Errorf("watchlist %q does not exist", path)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read watchlist %q: %w", path, err)
		}

		var wl Watchlist
		if err := yaml.Unmarshal(data, &wl); err != nil {
			return nil, fmt.Errorf("parse watchlist %q: %w", path, err)
		}
		return &wl, nil
	}

	return &Watchlist{}, nil
}
