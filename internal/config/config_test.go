package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		old, had := os.LookupEnv(k)
		os.Setenv(k, v)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"SERVER_PORT":      "9000",
		"DB_HOST":          "localhost",
		"DB_USERNAME":      "chatuser",
		"DB_PASSWORD":      "secret",
		"DB_DATABASE":      "chat",
		"DB_POOL_MIN":      "2",
		"DB_POOL_MAX":      "10",
		"DB_CONN_TIMEOUT":  "5",
		"DB_IDLE_TIMEOUT":  "300",
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	setEnv(t, baseEnv())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TokenExpire.Minutes() != 30 {
		t.Errorf("TokenExpire = %v, want 30m default", cfg.TokenExpire)
	}
	if cfg.CleanupInterval.Minutes() != 10 {
		t.Errorf("CleanupInterval = %v, want 10m default", cfg.CleanupInterval)
	}
	if cfg.MaxReadBufferSize != 1<<20 {
		t.Errorf("MaxReadBufferSize = %d, want 1MiB default", cfg.MaxReadBufferSize)
	}
	if cfg.DB.Port != 3306 {
		t.Errorf("DB.Port = %d, want 3306 default", cfg.DB.Port)
	}
}

func TestLoadMissingRequiredVar(t *testing.T) {
	setEnv(t, baseEnv())
	clearEnv(t, "DB_HOST")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error when DB_HOST is missing")
	}
}

func TestLoadRejectsInvalidPoolBounds(t *testing.T) {
	env := baseEnv()
	env["DB_POOL_MIN"] = "10"
	env["DB_POOL_MAX"] = "2"
	setEnv(t, env)

	if _, err := Load(""); err == nil {
		t.Fatal("expected error when pool min > max")
	}
}

func TestLoadEnvFileQuotedValues(t *testing.T) {
	setEnv(t, baseEnv())
	clearEnv(t, "SERVER_PORT")

	dir := t.TempDir()
	envPath := dir + "/.env"
	content := "# comment line\nSERVER_PORT=\"7070\"\nTOKEN_EXPIRE_MINUTES='15'\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}

	cfg, err := Load(envPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != 7070 {
		t.Errorf("ServerPort = %d, want 7070 from quoted .env value", cfg.ServerPort)
	}
	if cfg.TokenExpire.Minutes() != 15 {
		t.Errorf("TokenExpire = %v, want 15m from single-quoted .env value", cfg.TokenExpire)
	}
}
