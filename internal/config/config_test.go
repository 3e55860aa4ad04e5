package config

import "testing"

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig()
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.DailyPlayLimit != 20 || cfg.LegacyDailyPlayLimit != 10 {
		t.Fatalf("unexpected limits: %d/%d", cfg.DailyPlayLimit, cfg.LegacyDailyPlayLimit)
	}
	if cfg.QuotaPolicy != QuotaPolicyIncrementThenCheck {
		t.Fatalf("QuotaPolicy = %q", cfg.QuotaPolicy)
	}
	if cfg.SessionCookieName != "session_token" {
		t.Fatalf("SessionCookieName = %q", cfg.SessionCookieName)
	}
}

func TestParseConfigRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("QUOTA_POLICY", "first_come")
	if _, err := ParseConfig(); err == nil {
		t.Fatal("expected error for unknown quota policy")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		QuotaPolicy:          QuotaPolicyCheckThenIncrement,
		AudioCache:           AudioCacheStorage,
		DailyPlayLimit:       5,
		LegacyDailyPlayLimit: 5,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "有效配置", mutate: func(*Config) {}},
		{name: "未知缓存模式", mutate: func(c *Config) { c.AudioCache = "redis" }, wantErr: true},
		{name: "零限额", mutate: func(c *Config) { c.DailyPlayLimit = 0 }, wantErr: true},
		{name: "负的旧版限额", mutate: func(c *Config) { c.LegacyDailyPlayLimit = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	if !(Config{AppEnv: " Production "}).IsProduction() {
		t.Fatal("expected production")
	}
	if (Config{AppEnv: "development"}).IsProduction() {
		t.Fatal("expected non-production")
	}
}
