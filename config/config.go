package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Settings holds all application configuration.
type Settings struct {
	Server       ServerSettings       `koanf:"server" validate:"required"`
	Catalog      CatalogSettings      `koanf:"catalog" validate:"required"`
	TMDB         TMDBSettings         `koanf:"tmdb" validate:"required"`
	PayloadCache PayloadCacheSettings `koanf:"payload_cache" validate:"required"`
	Database     DatabaseSettings     `koanf:"database" validate:"required"`
	Search       SearchSettings       `koanf:"search" validate:"required"`
	RateLimit    RateLimitSettings    `koanf:"rate_limit"`
	Images       ImageSettings        `koanf:"images" validate:"required"`
	Player       PlayerSettings       `koanf:"player"`
}

// ServerSettings configures the HTTP listener and logging.
type ServerSettings struct {
	Addr           string        `koanf:"addr" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	AllowLocalCORS bool          `koanf:"allow_local_cors"`
	SecureCookies  bool          `koanf:"secure_cookies"`
	StaticDir      string        `koanf:"static_dir"`
	LogFile        string        `koanf:"log_file"`
	LogMaxSizeMB   int           `koanf:"log_max_size_mb" validate:"gte=0"`
	LogMaxBackups  int           `koanf:"log_max_backups" validate:"gte=0"`
	LogMaxAgeDays  int           `koanf:"log_max_age_days" validate:"gte=0"`
}

// CatalogSettings points at the upstream content catalog.
type CatalogSettings struct {
	BaseURL  string        `koanf:"base_url" validate:"required,url"`
	Timeout  time.Duration `koanf:"timeout" validate:"required"`
	CacheDir string        `koanf:"cache_dir"`
	ListTTL  time.Duration `koanf:"list_ttl"`
	TokenTTL time.Duration `koanf:"token_ttl"`
}

// TMDBSettings configures the credentialed metadata search proxy. The API key is
// usually supplied through TMDB_API_KEY and validated at call time so that a
// missing key surfaces as a 500 on the search route rather than a boot failure.
type TMDBSettings struct {
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	APIKey         string        `koanf:"api_key"`
	MaxRetries     int           `koanf:"max_retries" validate:"gte=0,lte=10"`
	AttemptTimeout time.Duration `koanf:"attempt_timeout" validate:"required"`
	BaseDelay      time.Duration `koanf:"base_delay" validate:"required"`
	MaxJitter      time.Duration `koanf:"max_jitter"`
}

// PayloadCacheSettings selects and sizes the per-tab payload cache backend.
type PayloadCacheSettings struct {
	Backend       string        `koanf:"backend" validate:"required,oneof=memory redis"`
	MaxTabs       int           `koanf:"max_tabs" validate:"gte=1"`
	TabQuotaBytes int           `koanf:"tab_quota_bytes" validate:"gte=1024"`
	TabTTL        time.Duration `koanf:"tab_ttl" validate:"required"`
	RedisAddr     string        `koanf:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB       int           `koanf:"redis_db" validate:"gte=0"`
}

// DatabaseSettings locates the SQLite file for durable markers.
type DatabaseSettings struct {
	Path string `koanf:"path" validate:"required"`
}

// SearchSettings tunes the live search.
type SearchSettings struct {
	Debounce     time.Duration `koanf:"debounce" validate:"required"`
	DefaultLimit int           `koanf:"default_limit" validate:"gte=1,lte=100"`
}

// RateLimitSettings bounds the credentialed search proxy per client IP.
type RateLimitSettings struct {
	SearchPerMinute int `koanf:"search_per_minute" validate:"gte=0"`
	SearchBurst     int `koanf:"search_burst" validate:"gte=0"`
}

// ImageSettings holds the CDN bases used to resolve poster/backdrop paths.
type ImageSettings struct {
	PosterBase   string `koanf:"poster_base" validate:"required"`
	BackdropBase string `koanf:"backdrop_base" validate:"required"`
	Placeholder  string `koanf:"placeholder" validate:"required"`
}

// PlayerSettings restricts the hosts the server fetches HLS playlists from.
// MediaHosts is an optional allow-list; AllowPrivateMedia lets LAN sources
// through.
type PlayerSettings struct {
	MediaHosts        []string `koanf:"media_hosts"`
	AllowPrivateMedia bool     `koanf:"allow_private_media"`
}

// Default returns the settings used when a key is absent from the file.
func Default() Settings {
	return Settings{
		Server: ServerSettings{
			Addr:           ":3000",
			AllowLocalCORS: true,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
			LogMaxSizeMB:   50,
			LogMaxBackups:  3,
			LogMaxAgeDays:  14,
		},
		Catalog: CatalogSettings{
			BaseURL:  "http://localhost:8080",
			Timeout:  15 * time.Second,
			CacheDir: "data/catalog-cache",
			ListTTL:  5 * time.Minute,
			TokenTTL: time.Minute,
		},
		TMDB: TMDBSettings{
			BaseURL:        "https://api.themoviedb.org/3",
			MaxRetries:     2,
			AttemptTimeout: 8 * time.Second,
			BaseDelay:      300 * time.Millisecond,
			MaxJitter:      150 * time.Millisecond,
		},
		PayloadCache: PayloadCacheSettings{
			Backend:       "memory",
			MaxTabs:       10000,
			TabQuotaBytes: 5 << 20,
			TabTTL:        12 * time.Hour,
		},
		Database: DatabaseSettings{Path: "data/movieverse.db"},
		Search: SearchSettings{
			Debounce:     300 * time.Millisecond,
			DefaultLimit: 24,
		},
		RateLimit: RateLimitSettings{
			SearchPerMinute: 60,
			SearchBurst:     10,
		},
		Images: ImageSettings{
			PosterBase:   "https://image.tmdb.org/t/p/w500",
			BackdropBase: "https://image.tmdb.org/t/p/w1280",
			Placeholder:  "/static/notavailable.svg",
		},
	}
}

// Load reads the YAML file at path (optional), a .env file (optional), applies
// environment overrides and validates the result.
func Load(path string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()
	if strings.TrimSpace(path) != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("loading config from %s: %w", path, err)
			}
		} else if err := k.Unmarshal("", &cfg); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints.
func Validate(cfg *Settings) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Settings) {
	if v := strings.TrimSpace(os.Getenv("TMDB_API_KEY")); v != "" {
		cfg.TMDB.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("MOVIEVERSE_API_BASE")); v != "" {
		cfg.Catalog.BaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("MOVIEVERSE_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.PayloadCache.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("MOVIEVERSE_LOG_FILE")); v != "" {
		cfg.Server.LogFile = v
	}
}
