package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "DB_HOST", "API_PORT", "JWT_TTL_HOURS", "FIXED_COSTS", "DATA_DIR", "LOG_DIR"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()

	if cfg.Remote.Configured() {
		t.Errorf("Remote.Configured() = true with no remote env")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Errorf("TokenTTL = %v, want 12h", cfg.Auth.TokenTTL)
	}
	if len(cfg.Reports.FixedCosts) != 8 {
		t.Errorf("len(FixedCosts) = %d, want 8", len(cfg.Reports.FixedCosts))
	}
	if cfg.Local.DBPath() == "" {
		t.Errorf("DBPath() empty")
	}
}

func TestRemoteConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  RemoteConfig
		want string
	}{
		{"url wins", RemoteConfig{URL: "postgres://u:p@h/db", Host: "ignored"}, "postgres://u:p@h/db"},
		{"postgres parts", RemoteConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Database: "camu", SSLMode: "disable"},
			"host=db port=5432 user=u password=p dbname=camu sslmode=disable"},
		{"mysql parts", RemoteConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Database: "camu"},
			"u:p@tcp(db:3306)/camu?charset=utf8mb4&parseTime=True&loc=UTC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
			if !tt.cfg.Configured() {
				t.Errorf("Configured() = false")
			}
		})
	}
}

func TestParseFixedCosts(t *testing.T) {
	tests := []struct {
		raw       string
		wantLen   int
		wantFirst FixedCost
	}{
		{"", 8, FixedCost{Name: "sewa", Amount: 2000000}},
		{"sewa=1500000, gaji = 2500000", 2, FixedCost{Name: "sewa", Amount: 1500000}},
		{"sewa=abc,listrik=-5,air=100", 1, FixedCost{Name: "air", Amount: 100}},
		{"garbage", 8, FixedCost{Name: "sewa", Amount: 2000000}},
	}
	for _, tt := range tests {
		got := ParseFixedCosts(tt.raw)
		if len(got) != tt.wantLen || got[0] != tt.wantFirst {
			t.Errorf("ParseFixedCosts(%q) = %v, want %d entries starting %v", tt.raw, got, tt.wantLen, tt.wantFirst)
		}
	}
}

func TestConfig_SaveEncryptsAndLoadOverlays(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("FONNTE_TOKEN", "")

	cfg := FromEnv()
	cfg.WhatsApp.Token = "fonnte-secret"
	cfg.Remote.Host = "db.example"
	cfg.Server.Port = 9090
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(cfg.Path())
	if err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if strings.Contains(string(raw), "fonnte-secret") {
		t.Errorf("token stored in plaintext")
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.WhatsApp.Token != "fonnte-secret" {
		t.Errorf("Token = %q, want decrypted value", loaded.WhatsApp.Token)
	}
	if loaded.Server.Port != 9090 || !loaded.Remote.Configured() {
		t.Errorf("overlay not applied: port=%d remote=%v", loaded.Server.Port, loaded.Remote.Configured())
	}
	if cfg.WhatsApp.Token != "fonnte-secret" {
		t.Errorf("Save() mutated the running config")
	}
}

func TestConfig_PlaintextOverlay(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	body := `{"telegram":{"token":"123:abc","chat_id":42}}`
	if err := os.WriteFile(dir+"/"+FileName, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || !cfg.Telegram.Enabled() {
		t.Errorf("telegram = %+v", cfg.Telegram)
	}
}
