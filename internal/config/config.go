package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/invizible/bookassist/internal/domain"
)

// Config is built once at startup and passed by parameter into each
// component; business logic never reads the environment directly.
type Config struct {
	Port        string   `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	Google   GoogleConfig   `toml:"google"`
	Calendar CalendarConfig `toml:"calendar"`
	Sweep    SweepConfig    `toml:"sweep"`
	Chat     ChatConfig     `toml:"chat"`
}

type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	RefreshToken string `toml:"refresh_token"`
}

type CalendarConfig struct {
	ID             string `toml:"id"`
	TimeZone       string `toml:"time_zone"`
	HoldTTLMinutes int    `toml:"hold_ttl_minutes"`
}

type SweepConfig struct {
	Secret string `toml:"secret"`
	// Cron is a cron-style schedule for the in-process sweep, e.g.
	// "*/15 * * * *". Empty disables the internal scheduler.
	Cron        string `toml:"cron"`
	SendUpdates string `toml:"send_updates"`
}

type ChatConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
}

func defaults() *Config {
	return &Config{
		Port: "8080",
		Calendar: CalendarConfig{
			ID:             "primary",
			TimeZone:       "America/Vancouver",
			HoldTTLMinutes: 20,
		},
		Sweep: SweepConfig{
			SendUpdates: "all",
		},
		Chat: ChatConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
		},
	}
}

// Load reads the TOML file at path (optional when path is empty and no
// default file exists) and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		if _, err := os.Stat("bookassist.toml"); err == nil {
			path = "bookassist.toml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitCSV(v)
	}

	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.RedirectURI, "GOOGLE_REDIRECT_URI")
	setString(&c.Google.RefreshToken, "GOOGLE_REFRESH_TOKEN")

	setString(&c.Calendar.ID, "CALENDAR_ID")
	setString(&c.Calendar.ID, "GOOGLE_CALENDAR_ID")
	setString(&c.Calendar.TimeZone, "TIME_ZONE")
	setInt(&c.Calendar.HoldTTLMinutes, "HOLD_TTL_MINUTES")

	setString(&c.Sweep.Secret, "SWEEP_SECRET")
	setString(&c.Sweep.Cron, "SWEEP_CRON")
	setString(&c.Sweep.SendUpdates, "SWEEP_SEND_UPDATES")

	setString(&c.Chat.APIKey, "OPENAI_API_KEY")
	setString(&c.Chat.Model, "CHAT_MODEL")
	setFloat(&c.Chat.Temperature, "CHAT_TEMPERATURE")
}

// Validate fails fast on missing provider credentials before any network
// call is attempted.
func (c *Config) Validate() error {
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" || c.Google.RefreshToken == "" {
		return fmt.Errorf("%w: google oauth client id, secret and refresh token", domain.ErrConfiguration)
	}
	if c.Calendar.HoldTTLMinutes <= 0 {
		return fmt.Errorf("%w: hold_ttl_minutes must be positive", domain.ErrConfiguration)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
