package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port      string
	Env       string
	APIPrefix string
	LogLevel  string

	MongoURI string
	MongoDB  string

	JWTSecret          string
	JWTRefreshSecret   string
	TokenExpiry        time.Duration
	RefreshTokenExpiry time.Duration

	IPFSAPIURL        string
	IPFSGateway       string
	IPFSProjectID     string
	IPFSProjectSecret string

	RPCURL     string
	ChainID    int64
	PrivateKey string
	Contracts  ContractAddresses

	MaxFileSize    int64
	RateLimitMax   int
	CORSOrigins    []string
	TrustedProxies []string

	Features Features
	Cron     CronSchedule

	EncryptionKey  string
	KeystorePath   string
	SignerAddress  string
	AdminAddresses []string

	EventPollInterval time.Duration
	EventBlockWindow  uint64
	BlockTime         time.Duration
}

// ContractAddresses are the deployed contract addresses.
type ContractAddresses struct {
	DXToken      string `json:"DXToken"`
	NFTMedia     string `json:"NFTMedia"`
	Marketplace  string `json:"Marketplace"`
	Subscription string `json:"Subscription"`
}

// Complete reports whether every contract address is set.
func (c ContractAddresses) Complete() bool {
	return c.DXToken != "" && c.NFTMedia != "" && c.Marketplace != "" && c.Subscription != ""
}

type Features struct {
	BlockchainEvents bool
	ScheduledTasks   bool
	Notifications    bool
	Trending         bool
	TokenRewards     bool
}

type CronSchedule struct {
	SyncNFTEvents        string
	SyncNFTData          string
	SyncSubscriptionData string
	UpdateTrending       string
	ResetDailyTasks      string
	CleanupNotifications string
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, reading configuration from environment")
	}

	cfg := &Config{
		Port:      getEnv("PORT", "3003"),
		Env:       getEnv("ENV", "development"),
		APIPrefix: getEnv("API_PREFIX", "/api"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		MongoURI: getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGODB_DB", "deso_social"),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTRefreshSecret:   getEnv("JWT_REFRESH_SECRET", ""),
		TokenExpiry:        getDuration("JWT_EXPIRY", 2*time.Hour),
		RefreshTokenExpiry: getDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),

		IPFSAPIURL:        getEnv("IPFS_API_URL", "https://ipfs.infura.io:5001"),
		IPFSGateway:       getEnv("IPFS_GATEWAY", "https://ipfs.io/ipfs/"),
		IPFSProjectID:     getEnv("INFURA_IPFS_PROJECT_ID", ""),
		IPFSProjectSecret: getEnv("INFURA_IPFS_PROJECT_SECRET", ""),

		RPCURL:     getEnv("RPC_URL", "https://sepolia-rollup.arbitrum.io/rpc"),
		ChainID:    int64(getInt("CHAIN_ID", 421614)),
		PrivateKey: getEnv("PRIVATE_KEY", ""),
		Contracts: ContractAddresses{
			DXToken:      getEnv("DXTOKEN_ADDRESS", ""),
			NFTMedia:     getEnv("NFTMEDIA_ADDRESS", ""),
			Marketplace:  getEnv("MARKETPLACE_ADDRESS", ""),
			Subscription: getEnv("SUBSCRIPTION_ADDRESS", ""),
		},

		MaxFileSize:    int64(getInt("MAX_FILE_SIZE", 10<<20)),
		RateLimitMax:   getInt("RATE_LIMIT_MAX", 100),
		CORSOrigins:    splitList(getEnv("CORS_ORIGIN", "http://localhost:5173")),
		TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),

		Features: Features{
			BlockchainEvents: getBool("ENABLE_BLOCKCHAIN_EVENTS", false),
			ScheduledTasks:   getBool("ENABLE_SCHEDULED_TASKS", false),
			Notifications:    getBool("ENABLE_NOTIFICATIONS", true),
			Trending:         getBool("ENABLE_TRENDING", true),
			TokenRewards:     getBool("ENABLE_TOKEN_REWARDS", false),
		},
		Cron: CronSchedule{
			SyncNFTEvents:        getEnv("CRON_SYNC_NFT_EVENTS", "*/30 * * * *"),
			SyncNFTData:          getEnv("CRON_SYNC_NFT_DATA", "*/5 * * * *"),
			SyncSubscriptionData: getEnv("CRON_SYNC_SUBSCRIPTION_DATA", "0 * * * *"),
			UpdateTrending:       getEnv("CRON_UPDATE_TRENDING", "*/15 * * * *"),
			ResetDailyTasks:      getEnv("CRON_RESET_DAILY_TASKS", "0 0 * * *"),
			CleanupNotifications: getEnv("CRON_CLEANUP_NOTIFICATIONS", "30 0 * * *"),
		},

		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
		KeystorePath:   getEnv("KEYSTORE_PATH", "secure/keys.enc"),
		SignerAddress:  strings.ToLower(getEnv("PLATFORM_ADDRESS", "")),
		AdminAddresses: lowerAll(splitList(getEnv("ADMIN_ADDRESSES", ""))),

		EventPollInterval: getDuration("EVENT_POLL_INTERVAL", 15*time.Second),
		EventBlockWindow:  uint64(getInt("EVENT_BLOCK_WINDOW", 2000)),
		BlockTime:         getDuration("BLOCK_TIME", 15*time.Second),
	}

	if cfg.Contracts.DXToken == "" {
		path := getEnv("CONTRACT_ADDRESSES_FILE", "contracts/contract-addresses.json")
		if addrs, err := loadContractAddresses(path); err != nil {
			logrus.WithError(err).Warn("Could not load contract addresses from file")
		} else {
			cfg.Contracts = addrs
			logrus.WithField("path", path).Info("Loaded contract addresses from file")
		}
	}

	return cfg
}

// IsProduction reports whether the server runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IsAdmin reports whether the wallet is listed in ADMIN_ADDRESSES.
func (c *Config) IsAdmin(address string) bool {
	address = strings.ToLower(address)
	for _, a := range c.AdminAddresses {
		if a == address {
			return true
		}
	}
	return false
}

// Validate checks the settings production cannot run without.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}

	required := []struct{ key, value string }{
		{"JWT_SECRET", c.JWTSecret},
		{"JWT_REFRESH_SECRET", c.JWTRefreshSecret},
		{"MONGODB_URI", c.MongoURI},
		{"RPC_URL", c.RPCURL},
		{"DXTOKEN_ADDRESS", c.Contracts.DXToken},
		{"NFTMEDIA_ADDRESS", c.Contracts.NFTMedia},
		{"MARKETPLACE_ADDRESS", c.Contracts.Marketplace},
		{"SUBSCRIPTION_ADDRESS", c.Contracts.Subscription},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables in production: %s", strings.Join(missing, ", "))
	}
	return nil
}

func loadContractAddresses(path string) (ContractAddresses, error) {
	var addrs ContractAddresses
	data, err := os.ReadFile(path)
	if err != nil {
		return addrs, err
	}
	if err := json.Unmarshal(data, &addrs); err != nil {
		return addrs, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return addrs, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// getDuration accepts Go durations ("2h") and a day suffix ("7d").
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if strings.HasSuffix(raw, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
		if err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logrus.WithField("key", key).Warn("Invalid duration, using default")
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}
