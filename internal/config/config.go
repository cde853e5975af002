/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the wallet-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                    string  `mapstructure:"SERVER_PORT"`
	HorizonURL                    string  `mapstructure:"HORIZON_URL"`
	NetworkPassphrase             string  `mapstructure:"NETWORK_PASSPHRASE"`
	HomeDomain                    string  `mapstructure:"HOME_DOMAIN"`
	NativeAssetCode               string  `mapstructure:"NATIVE_ASSET_CODE"`
	AssetDecimals                 int     `mapstructure:"ASSET_DECIMALS"`
	WalletAccountID               string  `mapstructure:"WALLET_ACCOUNT_ID"`
	DatabaseURL                   string  `mapstructure:"DATABASE_URL"`
	RedisURL                      string  `mapstructure:"REDIS_URL"`
	RedisCursorPrefix             string  `mapstructure:"REDIS_CURSOR_PREFIX"`
	RabbitMQURL                   string  `mapstructure:"RABBITMQ_URL"`
	NotificationEventExchange     string  `mapstructure:"NOTIFICATION_EVENT_EXCHANGE"`
	DepositPollIntervalSeconds    int     `mapstructure:"DEPOSIT_POLL_INTERVAL_SECONDS"`
	TimelineResetDelaySeconds     int     `mapstructure:"TIMELINE_RESET_DELAY_SECONDS"`
	NotificationDefaultTTLSeconds int     `mapstructure:"NOTIFICATION_DEFAULT_TTL_SECONDS"`
	MaxPaymentAmount              float64 `mapstructure:"MAX_PAYMENT_AMOUNT"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("HORIZON_URL", "https://horizon-testnet.stellar.org")
	viper.SetDefault("NETWORK_PASSPHRASE", "Test SDF Network ; September 2015")
	viper.SetDefault("HOME_DOMAIN", "testanchor.stellar.org")
	viper.SetDefault("NATIVE_ASSET_CODE", "XLM")
	viper.SetDefault("ASSET_DECIMALS", 7)
	viper.SetDefault("REDIS_CURSOR_PREFIX", "stellawallet:cursor")
	viper.SetDefault("NOTIFICATION_EVENT_EXCHANGE", "wallet_events")
	viper.SetDefault("DEPOSIT_POLL_INTERVAL_SECONDS", 2)
	viper.SetDefault("TIMELINE_RESET_DELAY_SECONDS", 10)
	viper.SetDefault("NOTIFICATION_DEFAULT_TTL_SECONDS", 5)
	viper.SetDefault("MAX_PAYMENT_AMOUNT", 1000000.0)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("HORIZON_URL")
	_ = viper.BindEnv("NETWORK_PASSPHRASE")
	_ = viper.BindEnv("HOME_DOMAIN")
	_ = viper.BindEnv("NATIVE_ASSET_CODE")
	_ = viper.BindEnv("ASSET_DECIMALS")
	_ = viper.BindEnv("WALLET_ACCOUNT_ID")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "WALLET_REDIS_URL")
	_ = viper.BindEnv("REDIS_CURSOR_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("NOTIFICATION_EVENT_EXCHANGE")
	_ = viper.BindEnv("DEPOSIT_POLL_INTERVAL_SECONDS")
	_ = viper.BindEnv("TIMELINE_RESET_DELAY_SECONDS")
	_ = viper.BindEnv("NOTIFICATION_DEFAULT_TTL_SECONDS")
	_ = viper.BindEnv("MAX_PAYMENT_AMOUNT")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.HorizonURL = strings.TrimRight(strings.TrimSpace(config.HorizonURL), "/")
	config.HomeDomain = strings.TrimSpace(config.HomeDomain)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisCursorPrefix = strings.TrimSpace(config.RedisCursorPrefix)
	if config.RedisCursorPrefix == "" {
		config.RedisCursorPrefix = "stellawallet:cursor"
	}

	if config.AssetDecimals < 0 || config.AssetDecimals > 18 {
		log.Printf("level=warn component=config msg=\"asset decimals out of range; using 7\" decimals=%d", config.AssetDecimals)
		config.AssetDecimals = 7
	}
	if config.DepositPollIntervalSeconds <= 0 {
		config.DepositPollIntervalSeconds = 2
	}
	if config.TimelineResetDelaySeconds <= 0 {
		config.TimelineResetDelaySeconds = 10
	}
	if config.NotificationDefaultTTLSeconds <= 0 {
		config.NotificationDefaultTTLSeconds = 5
	}
	if config.MaxPaymentAmount <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive max payment amount; using 1000000\" value=%f", config.MaxPaymentAmount)
		config.MaxPaymentAmount = 1000000
	}

	return
}
