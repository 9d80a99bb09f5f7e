package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbsekit/flexo-bridge/internal/syside"
	"github.com/mbsekit/flexo-bridge/internal/workspace"
)

const (
	DefaultRepositoryURL = "http://localhost:8080/"
	DefaultProjectName   = "Flexo_SysIDE_TestProject"
	EnvFileName          = ".env"
)

type CacheConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"db_path"`
}

type Config struct {
	RepositoryURL string
	APIKey        string
	ProjectName   string
	LogLevel      string
	LogFormat     string
	Cache         CacheConfig
	Watcher       workspace.WatcherConfig
	Checker       syside.CheckerConfig
}

func Load() *Config {
	homeDir, _ := os.UserHomeDir()
	bridgeDir := filepath.Join(homeDir, ".flexo-bridge")
	cachePath := filepath.Join(bridgeDir, "snapshots.db")

	cfg := &Config{
		RepositoryURL: DefaultRepositoryURL,
		ProjectName:   DefaultProjectName,
		LogLevel:      "info",
		LogFormat:     "text",
		Cache: CacheConfig{
			Enabled: true,
			DBPath:  cachePath,
		},
		Watcher: workspace.DefaultWatcherConfig(),
		Checker: syside.DefaultCheckerConfig(),
	}

	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FLEXO_URL"); v != "" {
		c.RepositoryURL = v
	}
	if v := os.Getenv("FLEXO_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("FLEXO_PROJECT"); v != "" {
		c.ProjectName = v
	}
	if v := os.Getenv("FLEXO_BRIDGE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("FLEXO_BRIDGE_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("FLEXO_BRIDGE_CACHE"); v != "" {
		c.Cache.Enabled = v != "0" && !strings.EqualFold(v, "false")
	}
	if v := os.Getenv("SYSIDE_CHECKER_CMD"); v != "" {
		c.Checker.Command = v
	}
}

// BaseURL returns the repository URL with exactly one trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.RepositoryURL, "/") + "/"
}

// BearerToken normalizes the API key into an Authorization header value.
func (c *Config) BearerToken() string {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(key), "bearer ") {
		return key
	}
	return "Bearer " + key
}

func (c *Config) EnsureDirectories() error {
	if !c.Cache.Enabled {
		return nil
	}
	return os.MkdirAll(filepath.Dir(c.Cache.DBPath), 0700)
}

// LoadEnvFile walks from dir upward looking for a .env file and loads
// key=value pairs into the process environment without overriding values
// already set. Returns the path of the file it loaded, or "" when none was
// found.
func LoadEnvFile(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(dir, EnvFileName)
		if _, err := os.Stat(path); err == nil {
			if err := loadEnvPairs(path); err != nil {
				return "", err
			}
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func loadEnvPairs(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
