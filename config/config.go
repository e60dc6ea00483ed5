package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StoreBackend string // "sqlite" or "postgres"
	SQLitePath   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxRetries     int
	NavTimeoutSec  int
	ScrollMaxStale int
	DelayMinMs     int
	DelayMaxMs     int
	OutputDir      string
	SelectorsPath  string
	ChromeBin      string
	Headless       bool
	Debug          bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		StoreBackend: getEnv("STORE_BACKEND", "sqlite"),
		SQLitePath:   getEnv("SQLITE_PATH", "./leads.db"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "leads"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "leads123"),
		PostgresDB:       getEnv("POSTGRES_DB", "leads_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		NavTimeoutSec:  getEnvInt("NAV_TIMEOUT_SEC", 15),
		ScrollMaxStale: getEnvInt("SCROLL_MAX_STALE", 5),
		DelayMinMs:     getEnvInt("DELAY_MIN_MS", 2000),
		DelayMaxMs:     getEnvInt("DELAY_MAX_MS", 3500),
		OutputDir:      getEnv("OUTPUT_DIR", "./output"),
		SelectorsPath:  getEnv("SELECTORS_PATH", "selectors.yaml"),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		Headless:       getEnvBool("HEADLESS", true),
		Debug:          getEnvBool("LOG_DEBUG", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// Selectors holds the CSS selectors used against the maps search and place
// pages. They live in config because the target markup changes under us;
// an optional YAML file overrides the built-in defaults without a rebuild.
type Selectors struct {
	ResultsFeed   string `yaml:"results_feed"`
	PlaceLink     string `yaml:"place_link"`
	CardName      string `yaml:"card_name"`
	CardRating    string `yaml:"card_rating"`
	CardReviews   string `yaml:"card_reviews"`
	CardInfoLine  string `yaml:"card_info_line"`
	DetailMain    string `yaml:"detail_main"`
	DetailName    string `yaml:"detail_name"`
	DetailAddress string `yaml:"detail_address"`
	DetailPhone   string `yaml:"detail_phone"`
	DetailWebsite string `yaml:"detail_website"`
	DetailPhoto   string `yaml:"detail_photo"`
	DetailAbout   string `yaml:"detail_about"`
	DetailService string `yaml:"detail_services"`
	DetailHours   string `yaml:"detail_hours"`
	ReviewDate    string `yaml:"review_date"`
}

// DefaultSelectors returns the selectors known to match the current maps
// markup. Each value may hold several comma-separated CSS alternatives.
func DefaultSelectors() Selectors {
	return Selectors{
		ResultsFeed:   `div[role="feed"]`,
		PlaceLink:     `a[href*="/maps/place/"]`,
		CardName:      `.qBF1Pd`,
		CardRating:    `.MW4etd`,
		CardReviews:   `.UY7F9`,
		CardInfoLine:  `.W4Efsd span`,
		DetailMain:    `div[role="main"]`,
		DetailName:    `h1.DUwDvf, h1.fontHeadlineLarge`,
		DetailAddress: `button[data-item-id="address"], button[aria-label*="Address"]`,
		DetailPhone:   `button[data-item-id^="phone"], a[href^="tel:"]`,
		DetailWebsite: `a[data-item-id="authority"], a[aria-label*="Website"]`,
		DetailPhoto:   `button[jsaction*="photo"] img, img.p0Hhde`,
		DetailAbout:   `div[aria-label*="About"], div.PYvSYb`,
		DetailService: `div[aria-label*="Services"]`,
		DetailHours:   `div[aria-label*="Hours"], button[data-item-id*="oh"], table.eK4R0e`,
		ReviewDate:    `span.rsqaWe`,
	}
}

// LoadSelectors reads selector overrides from the YAML file at path. A
// missing file is not an error — the defaults are used as-is. Fields left
// empty in the file keep their default value.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sel, nil
		}
		return sel, fmt.Errorf("config: read selectors file %q: %w", path, err)
	}

	var overrides Selectors
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return sel, fmt.Errorf("config: parse selectors file %q: %w", path, err)
	}

	mergeSelectors(&sel, overrides)
	return sel, nil
}

func mergeSelectors(dst *Selectors, src Selectors) {
	if src.ResultsFeed != "" {
		dst.ResultsFeed = src.ResultsFeed
	}
	if src.PlaceLink != "" {
		dst.PlaceLink = src.PlaceLink
	}
	if src.CardName != "" {
		dst.CardName = src.CardName
	}
	if src.CardRating != "" {
		dst.CardRating = src.CardRating
	}
	if src.CardReviews != "" {
		dst.CardReviews = src.CardReviews
	}
	if src.CardInfoLine != "" {
		dst.CardInfoLine = src.CardInfoLine
	}
	if src.DetailMain != "" {
		dst.DetailMain = src.DetailMain
	}
	if src.DetailName != "" {
		dst.DetailName = src.DetailName
	}
	if src.DetailAddress != "" {
		dst.DetailAddress = src.DetailAddress
	}
	if src.DetailPhone != "" {
		dst.DetailPhone = src.DetailPhone
	}
	if src.DetailWebsite != "" {
		dst.DetailWebsite = src.DetailWebsite
	}
	if src.DetailPhoto != "" {
		dst.DetailPhoto = src.DetailPhoto
	}
	if src.DetailAbout != "" {
		dst.DetailAbout = src.DetailAbout
	}
	if src.DetailService != "" {
		dst.DetailService = src.DetailService
	}
	if src.DetailHours != "" {
		dst.DetailHours = src.DetailHours
	}
	if src.ReviewDate != "" {
		dst.ReviewDate = src.ReviewDate
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
