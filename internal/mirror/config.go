// File path: internal/mirror/config.go
package mirror

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the GitHub artifact mirror.
type Config struct {
	Token   string        `json:"token"`
	Owner   string        `json:"owner"`
	Repo    string        `json:"repo"`
	Branch  string        `json:"branch"`
	BaseURL string        `json:"base_url"`
	WebURL  string        `json:"web_url"`
	Timeout time.Duration `json:"-"`

	TimeoutSeconds int `json:"timeout_seconds"`
}

// Merge overlays non-zero fields from override onto the receiver.
func (c Config) Merge(override Config) Config {
	merged := c
	if strings.TrimSpace(override.Token) != "" {
		merged.Token = override.Token
	}
	if strings.TrimSpace(override.Owner) != "" {
		merged.Owner = override.Owner
	}
	if strings.TrimSpace(override.Repo) != "" {
		merged.Repo = override.Repo
	}
	if strings.TrimSpace(override.Branch) != "" {
		merged.Branch = override.Branch
	}
	if strings.TrimSpace(override.BaseURL) != "" {
		merged.BaseURL = override.BaseURL
	}
	if strings.TrimSpace(override.WebURL) != "" {
		merged.WebURL = override.WebURL
	}
	if override.Timeout > 0 {
		merged.Timeout = override.Timeout
	}
	return merged
}

// LoadConfig resolves mirror settings from an optional JSON file plus
// GITHUB_* environment variables. Environment values win.
func LoadConfig() (Config, error) {
	var cfg Config
	if path := strings.TrimSpace(os.Getenv("MIRROR_CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read mirror config: %w", err)
		}
		var fileCfg Config
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse mirror config: %w", err)
		}
		if fileCfg.TimeoutSeconds > 0 {
			fileCfg.Timeout = time.Duration(fileCfg.TimeoutSeconds) * time.Second
		}
		cfg = cfg.Merge(fileCfg)
	}

	env := Config{
		Token:   os.Getenv("GITHUB_TOKEN"),
		Owner:   os.Getenv("GITHUB_OWNER"),
		Repo:    os.Getenv("GITHUB_REPO"),
		Branch:  os.Getenv("GITHUB_BRANCH"),
		BaseURL: os.Getenv("GITHUB_API_URL"),
		WebURL:  os.Getenv("GITHUB_WEB_URL"),
	}
	if raw := strings.TrimSpace(os.Getenv("GITHUB_TIMEOUT_SECONDS")); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid GITHUB_TIMEOUT_SECONDS %q", raw)
		}
		env.Timeout = time.Duration(seconds) * time.Second
	}
	cfg = cfg.Merge(env)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Branch) == "" {
		c.Branch = "main"
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = "https://api.github.com"
	}
	if strings.TrimSpace(c.WebURL) == "" {
		c.WebURL = "https://github.com"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Enabled reports whether the mirror has enough configuration to commit.
// A placeholder token counts as unconfigured.
func (c Config) Enabled() bool {
	token := strings.TrimSpace(c.Token)
	if token == "" || token == "ghp_..." {
		return false
	}
	return strings.TrimSpace(c.Owner) != "" && strings.TrimSpace(c.Repo) != ""
}
