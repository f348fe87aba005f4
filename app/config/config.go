package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"CamuPos/app/security"
)

// FileName is the optional overlay file inside DATA_DIR
const FileName = "config.json"

// Config holds all application configuration
type Config struct {
	Local     LocalConfig     `json:"local"`
	Remote    RemoteConfig    `json:"remote"`
	Server    ServerConfig    `json:"server"`
	Auth      AuthConfig      `json:"auth"`
	WhatsApp  WhatsAppConfig  `json:"whatsapp"`
	Telegram  TelegramConfig  `json:"telegram"`
	Sheets    SheetsConfig    `json:"sheets"`
	Assistant AssistantConfig `json:"assistant"`
	Reports   ReportsConfig   `json:"reports"`
	Payment   PaymentConfig   `json:"payment"`
}

// LocalConfig holds on-device paths
type LocalConfig struct {
	DataDir string `json:"data_dir"`
	LogDir  string `json:"log_dir"`
}

// DBPath is the SQLite file holding the state mirror
func (l LocalConfig) DBPath() string {
	return filepath.Join(l.DataDir, "local.db")
}

// RemoteConfig holds the shared database connection settings
type RemoteConfig struct {
	Driver   string `json:"driver"` // postgres | mysql
	URL      string `json:"url"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// Configured reports whether a remote database was set up at all. It is the
// one switch between synced and local-only mode.
func (r RemoteConfig) Configured() bool {
	return r.URL != "" || r.Host != ""
}

// DSN builds the driver connection string. DATABASE_URL wins over the parts.
func (r RemoteConfig) DSN() string {
	if r.URL != "" {
		return r.URL
	}
	if r.Driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			r.User, r.Password, r.Host, r.Port, r.Database)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		r.Host, r.Port, r.User, r.Password, r.Database, r.SSLMode)
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Port         int      `json:"port"`
	CORSOrigins  []string `json:"cors_origins"`
	AnnounceMDNS bool     `json:"announce_mdns"`
}

// AuthConfig holds admin token settings
type AuthConfig struct {
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

// WhatsAppConfig holds the Fonnte gateway settings
type WhatsAppConfig struct {
	Token  string `json:"token"`
	APIURL string `json:"api_url"`
}

// Enabled reports whether outbound WhatsApp is possible
func (w WhatsAppConfig) Enabled() bool {
	return w.Token != ""
}

// TelegramConfig holds the owner notification bot
type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

// Enabled reports whether the owner bot is set up
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// SheetsConfig holds the daily report export settings
type SheetsConfig struct {
	SpreadsheetID   string `json:"spreadsheet_id"`
	CredentialsFile string `json:"credentials_file"`
	SheetName       string `json:"sheet_name"`
	SyncTime        string `json:"sync_time"` // HH:MM
}

// Enabled reports whether the export can run
func (s SheetsConfig) Enabled() bool {
	return s.SpreadsheetID != "" && s.CredentialsFile != ""
}

// AssistantConfig holds the menu assistant settings
type AssistantConfig struct {
	GeminiAPIKey string `json:"gemini_api_key"`
	Model        string `json:"model"`
}

// FixedCost is one monthly fixed cost line used for break-even analysis
type FixedCost struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// ReportsConfig holds reporting parameters
type ReportsConfig struct {
	FixedCosts []FixedCost `json:"fixed_costs"`
	DailySales int64       `json:"daily_sales"` // portions per day assumed by the BEP projection
}

// PaymentConfig holds the merchant QRIS
type PaymentConfig struct {
	QRISPayload string `json:"qris_payload"` // static merchant QRIS string, as printed on the stand
}

// DefaultFixedCosts is the stall's monthly fixed cost sheet
func DefaultFixedCosts() []FixedCost {
	return []FixedCost{
		{Name: "sewa", Amount: 2000000},
		{Name: "listrik", Amount: 500000},
		{Name: "air", Amount: 200000},
		{Name: "gaji", Amount: 3000000},
		{Name: "gas", Amount: 300000},
		{Name: "perlengkapan", Amount: 300000},
		{Name: "marketing", Amount: 500000},
		{Name: "lainnya", Amount: 200000},
	}
}

// Load reads .env (if any), then the environment, then the optional
// encrypted config.json in DATA_DIR
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := FromEnv()
	if err := cfg.applyFile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds the config from environment variables alone
func FromEnv() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	apiPort, _ := strconv.Atoi(getEnv("API_PORT", "8080"))
	ttlHours, _ := strconv.Atoi(getEnv("JWT_TTL_HOURS", "12"))
	chatID, _ := strconv.ParseInt(getEnv("TELEGRAM_CHAT_ID", "0"), 10, 64)
	dailySales, _ := strconv.ParseInt(getEnv("DAILY_SALES", "50"), 10, 64)
	dataDir := getEnv("DATA_DIR", "./data")

	return &Config{
		Local: LocalConfig{
			DataDir: dataDir,
			LogDir:  getEnv("LOG_DIR", filepath.Join(dataDir, "logs")),
		},
		Remote: RemoteConfig{
			Driver:   getEnv("REMOTE_DB_DRIVER", "postgres"),
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", ""),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "camucamu"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Port:         apiPort,
			CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "*")),
			AnnounceMDNS: getEnv("ANNOUNCE_MDNS", "false") == "true",
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  time.Duration(ttlHours) * time.Hour,
		},
		WhatsApp: WhatsAppConfig{
			Token:  getEnv("FONNTE_TOKEN", ""),
			APIURL: getEnv("FONNTE_URL", "https://api.fonnte.com/send"),
		},
		Telegram: TelegramConfig{
			Token:  getEnv("TELEGRAM_TOKEN", ""),
			ChatID: chatID,
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
			CredentialsFile: getEnv("SHEETS_CREDENTIALS_FILE", ""),
			SheetName:       getEnv("SHEETS_SHEET_NAME", "Laporan Harian"),
			SyncTime:        getEnv("SHEETS_SYNC_TIME", "23:00"),
		},
		Assistant: AssistantConfig{
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			Model:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		Reports: ReportsConfig{
			FixedCosts: ParseFixedCosts(getEnv("FIXED_COSTS", "")),
			DailySales: dailySales,
		},
		Payment: PaymentConfig{
			QRISPayload: getEnv("QRIS_PAYLOAD", ""),
		},
	}
}

// ParseFixedCosts reads "name=amount,name=amount". Malformed entries are
// skipped; an empty result falls back to the defaults.
func ParseFixedCosts(raw string) []FixedCost {
	var costs []FixedCost
	for _, part := range splitList(raw) {
		name, amount, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
		if err != nil || n < 0 {
			continue
		}
		costs = append(costs, FixedCost{Name: strings.TrimSpace(name), Amount: n})
	}
	if len(costs) == 0 {
		return DefaultFixedCosts()
	}
	return costs
}

// Path is the overlay file location
func (c *Config) Path() string {
	return filepath.Join(c.Local.DataDir, FileName)
}

func (c *Config) cipher() *security.Cipher {
	return security.NewCipher(c.Local.DataDir)
}

// applyFile overlays config.json when present. Fields missing from the file
// keep their environment values.
func (c *Config) applyFile() error {
	data, err := os.ReadFile(c.Path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("could not parse config file: %w", err)
	}
	c.decryptSensitiveFields()
	return nil
}

// Save writes the effective config to config.json with secrets encrypted
func (c *Config) Save() error {
	if err := os.MkdirAll(c.Local.DataDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	// Encrypt a copy so the running config keeps plaintext
	out := *c
	if err := out.encryptSensitiveFields(); err != nil {
		return fmt.Errorf("could not encrypt sensitive fields: %w", err)
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}
	if err := os.WriteFile(c.Path(), data, 0600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}
	return nil
}

func (c *Config) secrets() []*string {
	return []*string{
		&c.Remote.Password,
		&c.Remote.URL,
		&c.Auth.JWTSecret,
		&c.WhatsApp.Token,
		&c.Telegram.Token,
		&c.Assistant.GeminiAPIKey,
	}
}

func (c *Config) encryptSensitiveFields() error {
	cipher := c.cipher()
	for _, field := range c.secrets() {
		enc, err := cipher.Encrypt(*field)
		if err != nil {
			return err
		}
		*field = enc
	}
	return nil
}

// decryptSensitiveFields leaves plaintext values as they are
func (c *Config) decryptSensitiveFields() {
	cipher := c.cipher()
	for _, field := range c.secrets() {
		*field = cipher.DecryptOrPlain(*field)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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
