package utils

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Messaging  MessagingConfig
	Stripe     StripeConfig
	Accounting AccountingConfig
}

type AppConfig struct {
	Name      string
	Port      string
	Debug     bool
	LogPath   string
	PublicURL string

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type MessagingConfig struct {
	BaseURL          string
	PhoneNumberID    string
	AccessToken      string
	VerifyToken      string
	AppSecret        string
	SessionWindow    time.Duration
	TemplateLanguage string
}

type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	Currency       string
	PlatformFeeBps int64
	SuccessURL     string
	CancelURL      string
	RefreshURL     string
	ReturnURL      string
	ConnectCountry string
}

type AccountingConfig struct {
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	Scopes         []string
	AuthURL        string
	TokenURL       string
	RevokeURL      string
	APIBaseURL     string
	ConnectionsURL string
	DefaultTaxType string
	AccountCode    string
	StateTTL       time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "chauffeur-backoffice")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("JWT_ISSUER", "chauffeur-backoffice")

	viper.SetDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com/v19.0")
	viper.SetDefault("WHATSAPP_SESSION_WINDOW_HOURS", 24)
	viper.SetDefault("WHATSAPP_TEMPLATE_LANGUAGE", "en")

	viper.SetDefault("STRIPE_CURRENCY", "gbp")
	viper.SetDefault("STRIPE_PLATFORM_FEE_BPS", 0)
	viper.SetDefault("STRIPE_CONNECT_COUNTRY", "GB")

	viper.SetDefault("XERO_SCOPES", "openid profile email accounting.transactions accounting.contacts offline_access")
	viper.SetDefault("XERO_AUTH_URL", "https://login.xero.com/identity/connect/authorize")
	viper.SetDefault("XERO_TOKEN_URL", "https://identity.xero.com/connect/token")
	viper.SetDefault("XERO_REVOKE_URL", "https://identity.xero.com/connect/revocation")
	viper.SetDefault("XERO_API_BASE_URL", "https://api.xero.com/api.xro/2.0")
	viper.SetDefault("XERO_CONNECTIONS_URL", "https://api.xero.com/connections")
	viper.SetDefault("XERO_DEFAULT_TAX_TYPE", "OUTPUT2")
	viper.SetDefault("XERO_ACCOUNT_CODE", "200")
	viper.SetDefault("OAUTH_STATE_TTL_MINUTES", 10)

	// .env is optional in containers where everything comes from the environment
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:        viper.GetString("APP_NAME"),
			Port:        viper.GetString("PORT"),
			Debug:       viper.GetBool("DEBUG"),
			LogPath:     viper.GetString("LOG_PATH"),
			PublicURL:   viper.GetString("PUBLIC_URL"),
			CORSOrigins: viper.GetStringSlice("CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
			Issuer: viper.GetString("JWT_ISSUER"),
		},
		Messaging: MessagingConfig{
			BaseURL:          viper.GetString("WHATSAPP_BASE_URL"),
			PhoneNumberID:    viper.GetString("WHATSAPP_PHONE_NUMBER_ID"),
			AccessToken:      viper.GetString("WHATSAPP_ACCESS_TOKEN"),
			VerifyToken:      viper.GetString("WHATSAPP_VERIFY_TOKEN"),
			AppSecret:        viper.GetString("WHATSAPP_APP_SECRET"),
			SessionWindow:    time.Duration(viper.GetInt("WHATSAPP_SESSION_WINDOW_HOURS")) * time.Hour,
			TemplateLanguage: viper.GetString("WHATSAPP_TEMPLATE_LANGUAGE"),
		},
		Stripe: StripeConfig{
			SecretKey:      viper.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret:  viper.GetString("STRIPE_WEBHOOK_SECRET"),
			Currency:       viper.GetString("STRIPE_CURRENCY"),
			PlatformFeeBps: viper.GetInt64("STRIPE_PLATFORM_FEE_BPS"),
			SuccessURL:     viper.GetString("STRIPE_SUCCESS_URL"),
			CancelURL:      viper.GetString("STRIPE_CANCEL_URL"),
			RefreshURL:     viper.GetString("STRIPE_CONNECT_REFRESH_URL"),
			ReturnURL:      viper.GetString("STRIPE_CONNECT_RETURN_URL"),
			ConnectCountry: viper.GetString("STRIPE_CONNECT_COUNTRY"),
		},
		Accounting: AccountingConfig{
			ClientID:       viper.GetString("XERO_CLIENT_ID"),
			ClientSecret:   viper.GetString("XERO_CLIENT_SECRET"),
			RedirectURL:    viper.GetString("XERO_REDIRECT_URL"),
			Scopes:         viper.GetStringSlice("XERO_SCOPES"),
			AuthURL:        viper.GetString("XERO_AUTH_URL"),
			TokenURL:       viper.GetString("XERO_TOKEN_URL"),
			RevokeURL:      viper.GetString("XERO_REVOKE_URL"),
			APIBaseURL:     viper.GetString("XERO_API_BASE_URL"),
			ConnectionsURL: viper.GetString("XERO_CONNECTIONS_URL"),
			DefaultTaxType: viper.GetString("XERO_DEFAULT_TAX_TYPE"),
			AccountCode:    viper.GetString("XERO_ACCOUNT_CODE"),
			StateTTL:       time.Duration(viper.GetInt("OAUTH_STATE_TTL_MINUTES")) * time.Minute,
		},
	}

	return config, nil
}
