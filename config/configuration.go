package config

import (
	"errors"
	"os"
	"time"
)

// ServerConfiguration contains the http server settings
type ServerConfiguration struct {
	Port    int
	Address string
}

// SMTPConfiguration contains the email settings
type SMTPConfiguration struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string `json:"-"`
	// DisplayName will be displayed as email sender
	DisplayName string `mapstructure:"display-name"`
	// Address is the sender address
	Address string
}

// DatabaseConfiguration contains the settings required to connect to a database
type DatabaseConfiguration struct {
	Type string
	DSN  string `json:"-"`
}

// SecurityLevel selects the escalation thresholds for the adaptive
// login defense, either basic or advanced
type SecurityLevel string

const (
	// SecurityLevelBasic requires a captcha after the first failure
	SecurityLevelBasic SecurityLevel = "basic"
	// SecurityLevelAdvanced requires a captcha after the third failure
	// and freezes IPs after the fifth
	SecurityLevelAdvanced SecurityLevel = "advanced"
)

// SecurityConfiguration tunes the adaptive login defense policy
type SecurityConfiguration struct {
	Level SecurityLevel `mapstructure:"level"`
	// FailureWindow is the trailing window failed attempts are counted over
	FailureWindow time.Duration `mapstructure:"failure-window"`
	// CaptchaThresholdBasic failures before a captcha is required on basic
	CaptchaThresholdBasic int `mapstructure:"captcha-threshold-basic"`
	// CaptchaThresholdAdvanced failures before a captcha is required on advanced
	CaptchaThresholdAdvanced int `mapstructure:"captcha-threshold-advanced"`
	// FreezeThreshold per-ip failures before the ip is frozen (advanced only)
	FreezeThreshold int           `mapstructure:"freeze-threshold"`
	FreezeDuration  time.Duration `mapstructure:"freeze-duration"`
	// LockoutCount failed attempts on one account before it is locked
	LockoutCount    int           `mapstructure:"lockout-count"`
	LockoutDuration time.Duration `mapstructure:"lockout-duration"`
}

// CaptchaThreshold returns the captcha threshold for the configured level
func (s *SecurityConfiguration) CaptchaThreshold() int {
	if s.Level == SecurityLevelAdvanced {
		return s.CaptchaThresholdAdvanced
	}
	return s.CaptchaThresholdBasic
}

// BehaviourConfiguration configures how the service will behave
type BehaviourConfiguration struct {
	Name              string
	Site              string
	ServiceDomain     string `mapstructure:"service-domain"`
	AutoConfirmUsers  bool   `mapstructure:"auto-confirm-users"`
	PasswordMinLength int    `mapstructure:"password-min-length"`
	// PasswordPolicy is either basic (length only) or high
	// (length + upper + lower + digit + special)
	PasswordPolicy string `mapstructure:"password-policy"`
	// VerificationTokenExpiry is how long email verification tokens live
	VerificationTokenExpiry time.Duration `mapstructure:"verification-token-expiry"`
	// ResetTokenExpiry is how long password reset tokens live
	ResetTokenExpiry time.Duration `mapstructure:"reset-token-expiry"`
	// DeletionGracePeriod is the window a soft deleted account can be
	// reactivated by logging in
	DeletionGracePeriod time.Duration `mapstructure:"deletion-grace-period"`
}

// LimitsConfiguration bounds verification mail request rates
type LimitsConfiguration struct {
	VerificationPerEmail int           `mapstructure:"verification-per-email"`
	VerificationPerIP    int           `mapstructure:"verification-per-ip"`
	VerificationGlobal   int           `mapstructure:"verification-global"`
	VerificationWindow   time.Duration `mapstructure:"verification-window"`
}

// CaptchaConfiguration configures challenge storage and lifetime
type CaptchaConfiguration struct {
	// Store is either memory or redis, memory is only safe for
	// single instance deployments
	Store     string
	RedisAddr string        `mapstructure:"redis-addr"`
	TTL       time.Duration `mapstructure:"ttl"`
	Length    int
}

// JWTConfiguration habours all JWT and refresh token settings
type JWTConfiguration struct {
	Algorithm string        `mapstructure:"alg"`
	Issuer    string        `mapstructure:"iss"`
	Audience  []string      `mapstructure:"aud"`
	Expiry    time.Duration `mapstructure:"exp"`

	HMACSigningKey     string `mapstructure:"hmac-signing-key"      json:"-"`
	HMACSigningKeyFile string `mapstructure:"hmac-signing-key-file"`

	RSAPrivateKey string `mapstructure:"rsa-private-key" json:"-"`
	RSAPublicKey  string `mapstructure:"rsa-public-key"  json:"-"`

	RSAPrivateKeyFile string `mapstructure:"rsa-private-key-file"`
	RSAPublicKeyFile  string `mapstructure:"rsa-public-key-file"`

	RefreshTokenExpiry time.Duration `mapstructure:"refresh-token-expiry"`
}

// CORSConfiguration very basic cors configuration
type CORSConfiguration struct {
	AllowCredentials bool     `mapstructure:"allow-credentials"`
	AllowedMethods   []string `mapstructure:"allowed-methods"`
	AllowedOrigins   []string `mapstructure:"allowed-origins"`
}

// Configuration habours the entire guardian configuration
type Configuration struct {
	Server    *ServerConfiguration    `mapstructure:"server"`
	SMTP      *SMTPConfiguration      `mapstructure:"smtp"`
	Database  *DatabaseConfiguration  `mapstructure:"database"`
	Behaviour *BehaviourConfiguration `mapstructure:"behaviour"`
	Security  *SecurityConfiguration  `mapstructure:"security"`
	Limits    *LimitsConfiguration    `mapstructure:"limits"`
	Captcha   *CaptchaConfiguration   `mapstructure:"captcha"`
	JWT       *JWTConfiguration       `mapstructure:"jwt"`
	CORS      *CORSConfiguration      `mapstructure:"cors"`
}

// Validate does some basic validation of the config file and tries to be
// helpful on missconfiguration
func (c *Configuration) Validate() error {
	if c.Database == nil {
		return errors.New("no database configuration found")
	}
	if c.Behaviour == nil {
		return errors.New("no behaviour configuration found")
	}
	if c.Security == nil {
		return errors.New("no security configuration found")
	}
	switch c.Security.Level {
	case SecurityLevelBasic, SecurityLevelAdvanced:
	default:
		return errors.New("security.level must be either basic or advanced")
	}
	if c.JWT == nil {
		return errors.New("no JWT configuration found")
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
		if c.JWT.HMACSigningKey == "" && c.JWT.HMACSigningKeyFile == "" {
			return errors.New(
				"when using jwt.alg HS256, HS384, HS512 you need to define either hmac-signing-key or hmac-signing-key-file",
			)
		}
	case "RS256", "RS384", "RS512":
		if c.JWT.RSAPublicKey == "" && c.JWT.RSAPublicKeyFile == "" {
			return errors.New(
				"when using jwt.alg RS256, RS384, RS512 you need to define either rsa-public-key or rsa-public-key-file",
			)
		}
		if c.JWT.RSAPrivateKey == "" && c.JWT.RSAPrivateKeyFile == "" {
			return errors.New(
				"when using jwt.alg RS256, RS384, RS512 you need to define either rsa-private-key or rsa-private-key-file",
			)
		}
	default:
		return errors.New("invalid jwt.alg defined. Possible values: HS256,HS384,HS512,RS256,RS384,RS512")
	}
	if c.Server == nil {
		return errors.New("no server configuration found")
	}
	if c.Captcha != nil && c.Captcha.Store == "redis" && c.Captcha.RedisAddr == "" {
		return errors.New("captcha.store redis requires captcha.redis-addr")
	}
	return nil
}

// DebugMode returns true if the DEBUG_MODE variable is set
func (*Configuration) DebugMode() bool {
	return os.Getenv("GUARDIAN_DEBUG_MODE") == "true"
}
