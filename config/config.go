package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/securedocs/backend/pkg/logger"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Ethereum    EthereumConfig
	Logging     LoggingConfig
	Storage     StorageConfig
	Blockchain  BlockchainConfig
	Pinata      PinataConfig
	Arweave     ArweaveConfig
	Maintenance MaintenanceConfig
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV" envDefault:"development"`
}

func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"postgres"`
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"5432"`
	User       string `env:"DB_USER"`
	Password   string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"securedocs"`
	SSLMode    string `env:"DB_SSL_MODE" envDefault:"disable"`
	SQLitePath string `env:"DB_SQLITE_PATH" envDefault:"file:securedocs.db?_foreign_keys=on"`
}

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET"`
	Expiration time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
}

type EthereumConfig struct {
	RPCURL  string `env:"RPC_URL"`
	ChainID int64  `env:"CHAIN_ID" envDefault:"1"`
	// PremiumTokenContract, when set, grants premium to wallets holding a
	// non-zero balance of this ERC20 token.
	PremiumTokenContract string `env:"PREMIUM_TOKEN_CONTRACT"`
}

type LoggingConfig struct {
	Level              string `env:"LOG_LEVEL"`
	DisableGORMLogging bool   `env:"DISABLE_GORM_LOGGING" envDefault:"false"`
}

type StorageConfig struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"local"`
	LocalRoot   string `env:"STORAGE_LOCAL_ROOT" envDefault:"./data/files"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	// ChunkDir holds partial chunked uploads. Empty means the system temp dir.
	ChunkDir        string        `env:"CHUNK_UPLOAD_DIR"`
	ChunkSessionTTL time.Duration `env:"CHUNK_SESSION_TTL" envDefault:"24h"`
	MaxUploadSize   int64         `env:"MAX_UPLOAD_SIZE" envDefault:"1073741824"`
}

type BlockchainConfig struct {
	DefaultProvider    string        `env:"BLOCKCHAIN_DEFAULT_PROVIDER" envDefault:"pinata"`
	RequirePremium     bool          `env:"BLOCKCHAIN_REQUIRE_PREMIUM" envDefault:"true"`
	MaxMonthlyUploads  int           `env:"BLOCKCHAIN_MAX_MONTHLY_UPLOADS" envDefault:"100"`
	AllowedExtensions  []string      `env:"BLOCKCHAIN_ALLOWED_EXTENSIONS" envSeparator:"," envDefault:"pdf,doc,docx,xls,xlsx,ppt,pptx,txt,csv,jpg,jpeg,png,gif,zip"`
	UploadTimeout      time.Duration `env:"PROVIDER_UPLOAD_TIMEOUT" envDefault:"2m"`
	RequestTimeout     time.Duration `env:"PROVIDER_REQUEST_TIMEOUT" envDefault:"30s"`
	PendingAttemptTTL  time.Duration `env:"PENDING_ATTEMPT_TIMEOUT" envDefault:"15m"`
	TransactionRetries int           `env:"BLOCKCHAIN_TX_RETRIES" envDefault:"3"`
}

type PinataConfig struct {
	Enabled     bool   `env:"PINATA_ENABLED" envDefault:"true"`
	APIURL      string `env:"PINATA_API_URL" envDefault:"https://api.pinata.cloud"`
	GatewayURL  string `env:"PINATA_GATEWAY_URL" envDefault:"https://gateway.pinata.cloud"`
	JWT         string `env:"PINATA_JWT"`
	APIKey      string `env:"PINATA_API_KEY"`
	SecretKey   string `env:"PINATA_SECRET_KEY"`
	MaxFileSize int64  `env:"PINATA_MAX_FILE_SIZE" envDefault:"104857600"`
}

type ArweaveConfig struct {
	Enabled     bool   `env:"ARWEAVE_ENABLED" envDefault:"false"`
	BundlerURL  string `env:"ARWEAVE_BUNDLER_URL" envDefault:"https://upload.ardrive.io/v1"`
	GatewayURL  string `env:"ARWEAVE_GATEWAY_URL" envDefault:"https://arweave.net"`
	APIKey      string `env:"ARWEAVE_API_KEY"`
	MaxFileSize int64  `env:"ARWEAVE_MAX_FILE_SIZE" envDefault:"524288000"`
}

type MaintenanceConfig struct {
	TrashRetention time.Duration `env:"TRASH_RETENTION" envDefault:"720h"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
}

// LoggerConfig derives the logger settings. Production mode raises the
// default level to info.
func (c *Config) LoggerConfig() logger.LoggingConfig {
	return logger.LoggingConfig{
		Level:              c.Logging.Level,
		ProductionMode:     c.Server.IsProduction(),
		DisableGORMLogging: c.Logging.DisableGORMLogging,
	}
}

// LoadConfig loads configuration from environment variables.
// It returns an error when a value cannot be parsed or a required value is missing.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.Blockchain.DefaultProvider = strings.ToLower(strings.TrimSpace(cfg.Blockchain.DefaultProvider))
	cfg.Blockchain.AllowedExtensions = normalizeExtensions(cfg.Blockchain.AllowedExtensions)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.Server.IsProduction() && c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver))
	}

	if c.Blockchain.MaxMonthlyUploads < 0 {
		errs = append(errs, errors.New("BLOCKCHAIN_MAX_MONTHLY_UPLOADS must not be negative"))
	}

	return errors.Join(errs...)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}
