package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvParsesQuotesAndComments(t *testing.T) {
	unsetEnv(t, "PACIFICA_PRIVATE_KEY")
	unsetEnv(t, "HL_WALLET_ADDRESS")
	unsetEnv(t, "HL_VAULT_ADDRESS")
	path := filepath.Join(t.TempDir(), ".env")
	content := "" +
		"# venue secrets\n" +
		"PACIFICA_PRIVATE_KEY=base58key\n" +
		"HL_WALLET_ADDRESS=\"0xabc\"\n" +
		"HL_VAULT_ADDRESS='0xdef'\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("PACIFICA_PRIVATE_KEY"); got != "base58key" {
		t.Fatalf("PACIFICA_PRIVATE_KEY expected base58key, got %q", got)
	}
	if got := os.Getenv("HL_WALLET_ADDRESS"); got != "0xabc" {
		t.Fatalf("HL_WALLET_ADDRESS expected 0xabc, got %q", got)
	}
	if got := os.Getenv("HL_VAULT_ADDRESS"); got != "0xdef" {
		t.Fatalf("HL_VAULT_ADDRESS expected 0xdef, got %q", got)
	}
}

func TestLoadEnvKeepsExistingValues(t *testing.T) {
	t.Setenv("HL_PRIVATE_KEY", "from-shell")
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HL_PRIVATE_KEY=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("HL_PRIVATE_KEY"); got != "from-shell" {
		t.Fatalf("HL_PRIVATE_KEY expected from-shell, got %q", got)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("expected missing env file to be ignored, got %v", err)
	}
}

func TestEnvFileOverride(t *testing.T) {
	t.Setenv(EnvFileVar, "/etc/dual-dex/bot.env")
	if got := EnvFile(); got != "/etc/dual-dex/bot.env" {
		t.Fatalf("unexpected env file %q", got)
	}
}

func TestLoadSecretsDefaultsAccountToWallet(t *testing.T) {
	t.Setenv("HL_PRIVATE_KEY", "key")
	t.Setenv("HL_WALLET_ADDRESS", "0xwallet")
	t.Setenv("HL_ACCOUNT_ADDRESS", "")
	t.Setenv("PACIFICA_PRIVATE_KEY", "pkey")
	secrets, err := LoadSecrets()
	if err != nil {
		t.Fatalf("load secrets: %v", err)
	}
	if secrets.HLAccountAddress != "0xwallet" {
		t.Fatalf("expected account address to default to wallet, got %q", secrets.HLAccountAddress)
	}
}

func TestLoadSecretsRequiresPacificaKey(t *testing.T) {
	t.Setenv("HL_PRIVATE_KEY", "key")
	t.Setenv("HL_WALLET_ADDRESS", "0xwallet")
	t.Setenv("PACIFICA_PRIVATE_KEY", "")
	if _, err := LoadSecrets(); err == nil {
		t.Fatalf("expected error for missing PACIFICA_PRIVATE_KEY")
	}
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if old, ok := os.LookupEnv(key); ok {
		t.Cleanup(func() { _ = os.Setenv(key, old) })
	} else {
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}
	_ = os.Unsetenv(key)
}
