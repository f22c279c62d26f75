package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	App           AppConfig
	Log           LogConfig
	Cache         CacheConfig
	Storage       StorageConfig
	Drive         DriveConfig
	Assistant     AssistantConfig
	Replenishment ReplenishmentConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	MaxUploadMB    int64
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AppConfig struct {
	// DataDir receives workbooks written by the offline CLI.
	DataDir string
}

type LogConfig struct {
	Level  string
	Format string
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	SessionTTLSeconds int
}

// StorageConfig points at the S3-compatible bucket receiving exported workbooks.
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsFile string
}

type AssistantConfig struct {
	Enabled        bool
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// ReplenishmentConfig holds the business constants of the calculation engine.
type ReplenishmentConfig struct {
	CentralWarehouse      string
	FullTruckPallets      int
	DefaultUnitsPerPallet float64
	HighPriorityDays      float64
	MediumPriorityDays    float64
	DefaultSourcing       string
	AllowedDepots         []string
	KnownPackaging        []string
	LocalArticles         []string
	MaxSuggestions        int
	WorkerCount           int
	ParallelThreshold     int
}

var (
	once     sync.Once
	instance *Config
)

// DefaultAllowedDepots is the depot network served from the central warehouse.
// Entries of the form "M212-M280" cover every code of the numeric range.
var DefaultAllowedDepots = []string{"M115", "M120", "M130", "M170", "M171", "M212-M280"}

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("SERVER_MAX_UPLOAD_MB", 32)

	viper.SetDefault("DB_ENABLED", false)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "replenishment")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("APP_DATA_DIR", "./data/output")

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_SESSION_TTL_SECONDS", 86400)

	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
	viper.SetDefault("STORAGE_ACCESS_KEY", "")
	viper.SetDefault("STORAGE_SECRET_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "replenishment-exports")
	viper.SetDefault("STORAGE_USE_SSL", false)

	viper.SetDefault("DRIVE_CREDENTIALS_FILE", "")

	viper.SetDefault("ASSISTANT_ENABLED", false)
	viper.SetDefault("ASSISTANT_BASE_URL", "http://localhost:11434")
	viper.SetDefault("ASSISTANT_MODEL", "llama3.1")
	viper.SetDefault("ASSISTANT_TIMEOUT_SECONDS", 60)

	viper.SetDefault("REPLENISHMENT_CENTRAL_WAREHOUSE", "M210")
	viper.SetDefault("REPLENISHMENT_FULL_TRUCK_PALLETS", 24)
	viper.SetDefault("REPLENISHMENT_DEFAULT_UNITS_PER_PALLET", 30)
	viper.SetDefault("REPLENISHMENT_HIGH_PRIORITY_DAYS", 7)
	viper.SetDefault("REPLENISHMENT_MEDIUM_PRIORITY_DAYS", 30)
	viper.SetDefault("REPLENISHMENT_DEFAULT_SOURCING", "external")
	viper.SetDefault("REPLENISHMENT_ALLOWED_DEPOTS", DefaultAllowedDepots)
	viper.SetDefault("REPLENISHMENT_KNOWN_PACKAGING", []string{"verre", "pet", "ciel"})
	viper.SetDefault("REPLENISHMENT_LOCAL_ARTICLES", []string{"1011", "1016", "1021", "1033"})
	viper.SetDefault("REPLENISHMENT_MAX_SUGGESTIONS", 5)
	viper.SetDefault("REPLENISHMENT_WORKER_COUNT", 4)
	viper.SetDefault("REPLENISHMENT_PARALLEL_THRESHOLD", 5000)
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			MaxUploadMB:    viper.GetInt64("SERVER_MAX_UPLOAD_MB"),
		},
		Database: DatabaseConfig{
			Enabled:  viper.GetBool("DB_ENABLED"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			DataDir: viper.GetString("APP_DATA_DIR"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
		Cache: CacheConfig{
			Enabled:           viper.GetBool("CACHE_ENABLED"),
			RedisURL:          viper.GetString("REDIS_URL"),
			RedisHost:         viper.GetString("REDIS_HOST"),
			RedisPort:         viper.GetString("REDIS_PORT"),
			RedisPassword:     viper.GetString("REDIS_PASSWORD"),
			RedisDB:           viper.GetInt("REDIS_DB"),
			SessionTTLSeconds: viper.GetInt("CACHE_SESSION_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("STORAGE_ENABLED"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsFile: viper.GetString("DRIVE_CREDENTIALS_FILE"),
		},
		Assistant: AssistantConfig{
			Enabled:        viper.GetBool("ASSISTANT_ENABLED"),
			BaseURL:        viper.GetString("ASSISTANT_BASE_URL"),
			Model:          viper.GetString("ASSISTANT_MODEL"),
			TimeoutSeconds: viper.GetInt("ASSISTANT_TIMEOUT_SECONDS"),
		},
		Replenishment: ReplenishmentConfig{
			CentralWarehouse:      viper.GetString("REPLENISHMENT_CENTRAL_WAREHOUSE"),
			FullTruckPallets:      viper.GetInt("REPLENISHMENT_FULL_TRUCK_PALLETS"),
			DefaultUnitsPerPallet: viper.GetFloat64("REPLENISHMENT_DEFAULT_UNITS_PER_PALLET"),
			HighPriorityDays:      viper.GetFloat64("REPLENISHMENT_HIGH_PRIORITY_DAYS"),
			MediumPriorityDays:    viper.GetFloat64("REPLENISHMENT_MEDIUM_PRIORITY_DAYS"),
			DefaultSourcing:       viper.GetString("REPLENISHMENT_DEFAULT_SOURCING"),
			AllowedDepots:         viper.GetStringSlice("REPLENISHMENT_ALLOWED_DEPOTS"),
			KnownPackaging:        viper.GetStringSlice("REPLENISHMENT_KNOWN_PACKAGING"),
			LocalArticles:         viper.GetStringSlice("REPLENISHMENT_LOCAL_ARTICLES"),
			MaxSuggestions:        viper.GetInt("REPLENISHMENT_MAX_SUGGESTIONS"),
			WorkerCount:           viper.GetInt("REPLENISHMENT_WORKER_COUNT"),
			ParallelThreshold:     viper.GetInt("REPLENISHMENT_PARALLEL_THRESHOLD"),
		},
	}
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
