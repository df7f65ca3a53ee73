package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures environment driven configuration values for the lab service.
type Config struct {
	HTTPPort          int
	DatabaseURL       string
	APIKeyCost        int
	AdminGroup        string
	TestMode          bool
	DirectoryInterval time.Duration
	DirectoryTimeout  time.Duration
	RingTimeout       time.Duration
	Location          *time.Location
	SSORedirect       string
	BasePath          string
	LogLevel          string
	LogDev            bool
	LogFile           string
	File              File
}

// File is the optional YAML document named by GRILLO_CONFIG_FILE.
type File struct {
	Roster        []RosterEntry `yaml:"roster"`
	ServicesLinks []ServiceLink `yaml:"servicesLinks"`
}

// RosterEntry is one identity of the offline directory.
type RosterEntry struct {
	ID       string   `yaml:"id"`
	Username string   `yaml:"username"`
	Name     string   `yaml:"name"`
	Surname  string   `yaml:"surname"`
	Email    string   `yaml:"email"`
	Locked   bool     `yaml:"locked"`
	HasKey   bool     `yaml:"hasKey"`
	Groups   []string `yaml:"groups"`
}

// ServiceLink is a shortcut shown by the frontend.
type ServiceLink struct {
	Link     string `yaml:"link"`
	Icon     string `yaml:"icon"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
}

// Load reads a .env file when present and then parses the process environment.
func Load() (Config, error) {
	// A missing .env file is the normal case in production.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv parses configuration values from the current process environment.
//
// Every invalid value is collected so a single error names all of them.
func FromEnv() (Config, error) {
	cfg := Config{
		HTTPPort:          3000,
		DatabaseURL:       "file:grillo.db",
		APIKeyCost:        10,
		AdminGroup:        "soviet",
		DirectoryInterval: time.Minute,
		DirectoryTimeout:  3 * time.Second,
		RingTimeout:       10 * time.Second,
		Location:          time.Local,
		LogLevel:          "info",
	}

	invalid := make([]string, 0, 4)

	if value := env("GRILLO_HTTP_PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "GRILLO_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if value := env("GRILLO_DATABASE_URL"); value != "" {
		cfg.DatabaseURL = value
	}

	if value := env("GRILLO_API_KEY_COST"); value != "" {
		cost, err := strconv.Atoi(value)
		if err != nil || cost < 4 || cost > 31 {
			invalid = append(invalid, "GRILLO_API_KEY_COST")
		} else {
			cfg.APIKeyCost = cost
		}
	}

	if value := env("GRILLO_ADMIN_GROUP"); value != "" {
		cfg.AdminGroup = value
	}

	if value := env("GRILLO_TEST_MODE"); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "GRILLO_TEST_MODE")
		} else {
			cfg.TestMode = enabled
		}
	}

	parseDuration := func(key string, target *time.Duration) {
		value := env(key)
		if value == "" {
			return
		}
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			invalid = append(invalid, key)
			return
		}
		*target = d
	}
	parseDuration("GRILLO_DIRECTORY_INTERVAL", &cfg.DirectoryInterval)
	parseDuration("GRILLO_DIRECTORY_TIMEOUT", &cfg.DirectoryTimeout)
	parseDuration("GRILLO_RING_TIMEOUT", &cfg.RingTimeout)

	if value := env("GRILLO_TIMEZONE"); value != "" {
		loc, err := time.LoadLocation(value)
		if err != nil {
			invalid = append(invalid, "GRILLO_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	cfg.SSORedirect = env("GRILLO_SSO_REDIRECT")

	if value := env("GRILLO_BASE_PATH"); value != "" {
		if !strings.HasPrefix(value, "/") {
			invalid = append(invalid, "GRILLO_BASE_PATH")
		} else {
			cfg.BasePath = strings.TrimSuffix(value, "/")
		}
	}

	if value := env("GRILLO_LOG_LEVEL"); value != "" {
		cfg.LogLevel = value
	}
	cfg.LogDev = env("GRILLO_LOG_DEV") == "1"
	cfg.LogFile = env("GRILLO_LOG_FILE")

	if path := env("GRILLO_CONFIG_FILE"); path != "" {
		file, err := ReadFile(path)
		if err != nil {
			invalid = append(invalid, "GRILLO_CONFIG_FILE")
		} else {
			cfg.File = file
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// ReadFile decodes the YAML configuration file at path.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config file: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("parse config file: %w", err)
	}
	for i, entry := range file.Roster {
		if strings.TrimSpace(entry.ID) == "" {
			return File{}, fmt.Errorf("roster entry %d has no id", i)
		}
	}
	return file, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
