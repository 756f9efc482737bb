package main

import (
	"fmt"
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/joho/godotenv"
	"github.com/lcampe/guardian/cmd"
	"github.com/lcampe/guardian/config"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	Version   = "?"
	BuildTime = "?"
	GitCommit = "-"
	GitRef    = "-"
)

func main() {
	//version info
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("guardian %s, built %s from %s (%s)", Version, BuildTime, GitCommit, GitRef)
		return
	}
	logger := bootstrap()
	defer func() {
		_ = logger.Sync()

	}()
	cmd.TopLevelLogger = logger
	cmd.Execute()
}

func bootstrap() *zap.Logger {
	if _, err := os.Stat(".env"); err == nil {
		err := godotenv.Load()
		if err != nil {
			log.Fatal("Error loading .env file")
		}
	}
	cfg := zap.NewProductionConfig()
	if r := os.Getenv("DEBUG_LOG"); r == "true" {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		log.Fatal(err)
	}
	cobra.OnInitialize(func() { initConfig(logger) })
	return logger
}

func setDefaults() {
	viper.SetDefault("server.address", "")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("smtp.enabled", false)
	viper.SetDefault("behaviour.name", "guardian")
	viper.SetDefault("behaviour.auto-confirm-users", false)
	viper.SetDefault("behaviour.password-min-length", 8)
	viper.SetDefault("behaviour.password-policy", "basic")
	viper.SetDefault("behaviour.verification-token-expiry", "24h")
	viper.SetDefault("behaviour.reset-token-expiry", "1h")
	viper.SetDefault("behaviour.deletion-grace-period", "720h")
	viper.SetDefault("security.level", "basic")
	viper.SetDefault("security.failure-window", "15m")
	viper.SetDefault("security.captcha-threshold-basic", 1)
	viper.SetDefault("security.captcha-threshold-advanced", 3)
	viper.SetDefault("security.freeze-threshold", 5)
	viper.SetDefault("security.freeze-duration", "1h")
	viper.SetDefault("security.lockout-count", 5)
	viper.SetDefault("security.lockout-duration", "30m")
	viper.SetDefault("limits.verification-per-email", 1)
	viper.SetDefault("limits.verification-per-ip", 5)
	viper.SetDefault("limits.verification-global", 100)
	viper.SetDefault("limits.verification-window", "1h")
	viper.SetDefault("captcha.store", "memory")
	viper.SetDefault("captcha.ttl", "5m")
	viper.SetDefault("captcha.length", 6)
	viper.SetDefault("jwt.exp", "1h")
	viper.SetDefault("jwt.refresh-token-expiry", "168h")
}

func initConfig(logger *zap.Logger) {
	bind := func(from string, to string) {
		err := viper.BindEnv(to, from)
		if err != nil {
			logger.Error("unable to bindenv", zap.String("from", from), zap.String(to, to), zap.Error(err))
		}

	}
	setDefaults()
	bind("PORT", "server.port")
	bind("ADDRESS", "server.address")

	bind("GUARDIAN_PORT", "server.port")
	bind("GUARDIAN_ADDRESS", "server.address")

	bind("GUARDIAN_SMTP_ENABLED", "smtp.enabled")
	bind("GUARDIAN_SMTP_HOST", "smtp.host")
	bind("GUARDIAN_SMTP_PORT", "smtp.port")
	bind("GUARDIAN_SMTP_USERNAME", "smtp.username")
	bind("GUARDIAN_SMTP_PASSWORD", "smtp.password")
	bind("GUARDIAN_SMTP_DISPLAYNAME", "smtp.display-name")
	bind("GUARDIAN_SMTP_ADDRESS", "smtp.address")

	bind("GUARDIAN_DATABASE_TYPE", "database.type")
	bind("GUARDIAN_DATABASE_DSN", "database.dsn")

	bind("GUARDIAN_BEHAVIOUR_NAME", "behaviour.name")
	bind("GUARDIAN_BEHAVIOUR_SITE", "behaviour.site")
	bind("GUARDIAN_BEHAVIOUR_SERVICE_DOMAIN", "behaviour.service-domain")
	bind("GUARDIAN_BEHAVIOUR_AUTO_CONFIRM_USERS", "behaviour.auto-confirm-users")
	bind("GUARDIAN_BEHAVIOUR_PASSWORD_MIN_LENGTH", "behaviour.password-min-length")
	bind("GUARDIAN_BEHAVIOUR_PASSWORD_POLICY", "behaviour.password-policy")
	bind("GUARDIAN_BEHAVIOUR_VERIFICATION_TOKEN_EXPIRY", "behaviour.verification-token-expiry")
	bind("GUARDIAN_BEHAVIOUR_RESET_TOKEN_EXPIRY", "behaviour.reset-token-expiry")
	bind("GUARDIAN_BEHAVIOUR_DELETION_GRACE_PERIOD", "behaviour.deletion-grace-period")

	bind("GUARDIAN_SECURITY_LEVEL", "security.level")
	bind("GUARDIAN_SECURITY_FAILURE_WINDOW", "security.failure-window")
	bind("GUARDIAN_SECURITY_FREEZE_THRESHOLD", "security.freeze-threshold")
	bind("GUARDIAN_SECURITY_FREEZE_DURATION", "security.freeze-duration")
	bind("GUARDIAN_SECURITY_LOCKOUT_COUNT", "security.lockout-count")
	bind("GUARDIAN_SECURITY_LOCKOUT_DURATION", "security.lockout-duration")

	bind("GUARDIAN_LIMITS_VERIFICATION_PER_EMAIL", "limits.verification-per-email")
	bind("GUARDIAN_LIMITS_VERIFICATION_PER_IP", "limits.verification-per-ip")
	bind("GUARDIAN_LIMITS_VERIFICATION_GLOBAL", "limits.verification-global")
	bind("GUARDIAN_LIMITS_VERIFICATION_WINDOW", "limits.verification-window")

	bind("GUARDIAN_CAPTCHA_STORE", "captcha.store")
	bind("GUARDIAN_CAPTCHA_REDIS_ADDR", "captcha.redis-addr")
	bind("GUARDIAN_CAPTCHA_TTL", "captcha.ttl")
	bind("GUARDIAN_CAPTCHA_LENGTH", "captcha.length")

	bind("GUARDIAN_JWT_AUDIENCE", "jwt.aud")
	bind("GUARDIAN_JWT_ISSUER", "jwt.iss")
	bind("GUARDIAN_JWT_ALG", "jwt.alg")
	bind("GUARDIAN_JWT_EXP", "jwt.exp")
	bind("GUARDIAN_JWT_REFRESH_EXP", "jwt.refresh-token-expiry")

	bind("GUARDIAN_JWT_HMAC_SIGNING_KEY", "jwt.hmac-signing-key")
	bind("GUARDIAN_JWT_HMAC_SIGNING_KEY_FILE", "jwt.hmac-signing-key-file")

	bind("GUARDIAN_JWT_RSA_PRIVATE_KEY", "jwt.rsa-private-key")
	bind("GUARDIAN_JWT_RSA_PRIVATE_KEY_FILE", "jwt.rsa-private-key-file")

	bind("GUARDIAN_JWT_RSA_PUBLIC_KEY", "jwt.rsa-public-key")
	bind("GUARDIAN_JWT_RSA_PUBLIC_KEY_FILE", "jwt.rsa-public-key-file")

	if cmd.ConfigFileLocation != "" {
		logger.Debug("Using supplied config file", zap.String("file", cmd.ConfigFileLocation))
		viper.SetConfigFile(cmd.ConfigFileLocation)
	} else {
		path, err := os.Getwd()
		if err != nil {
			logger.Warn("Unable to get current working dir", zap.Error(err))
		}
		cobra.CheckErr(err)
		viper.AddConfigPath(path)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		logger.Debug("Looking for default config file")
	}
	//precedence: environment overwrites yml
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Debug("No confg file loaded")
	} else {
		logger.Debug("Config file loaded", zap.String("file", viper.ConfigFileUsed()))
	}

	conf := &config.Configuration{}
	err := viper.Unmarshal(conf)
	if err != nil {
		logger.Fatal("Unable to unmarshall config", zap.Error(err))
	}
	logger.Debug("Config loaded", zap.Any("config", conf))
	logger.Debug("Validating final config")
	if err = conf.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	cmd.LoadedConfig = conf
}
