package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const EnvFileVar = "DUAL_DEX_ENV_FILE"

// LoadEnv reads a .env file into the process environment. Missing files
// are ignored and variables already set are never overridden.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// EnvFile returns the env file path, honouring DUAL_DEX_ENV_FILE.
func EnvFile() string {
	if path := strings.TrimSpace(os.Getenv(EnvFileVar)); path != "" {
		return path
	}
	return ".env"
}

func applyEnvOverrides(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv("DUAL_DEX_TELEGRAM_TOKEN")); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := strings.TrimSpace(os.Getenv("DUAL_DEX_TELEGRAM_CHAT_ID")); chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
	if proxy := strings.TrimSpace(os.Getenv("DUAL_DEX_PROXY_URL")); proxy != "" {
		cfg.Network.ProxyURL = proxy
	}
	if dsn := strings.TrimSpace(os.Getenv("DUAL_DEX_TIMESCALE_DSN")); dsn != "" {
		cfg.Timescale.DSN = dsn
	}
}

// Secrets are read from the environment only.
type Secrets struct {
	HLPrivateKey       string
	HLWalletAddress    string
	HLAccountAddress   string
	HLVaultAddress     string
	PacificaPrivateKey string
}

func LoadSecrets() (Secrets, error) {
	s := Secrets{
		HLPrivateKey:       strings.TrimSpace(os.Getenv("HL_PRIVATE_KEY")),
		HLWalletAddress:    strings.TrimSpace(os.Getenv("HL_WALLET_ADDRESS")),
		HLAccountAddress:   strings.TrimSpace(os.Getenv("HL_ACCOUNT_ADDRESS")),
		HLVaultAddress:     strings.TrimSpace(os.Getenv("HL_VAULT_ADDRESS")),
		PacificaPrivateKey: strings.TrimSpace(os.Getenv("PACIFICA_PRIVATE_KEY")),
	}
	if s.HLPrivateKey == "" {
		return Secrets{}, errors.New("HL_PRIVATE_KEY is required")
	}
	if s.HLWalletAddress == "" {
		return Secrets{}, errors.New("HL_WALLET_ADDRESS is required")
	}
	if s.PacificaPrivateKey == "" {
		return Secrets{}, errors.New("PACIFICA_PRIVATE_KEY is required")
	}
	if s.HLAccountAddress == "" {
		s.HLAccountAddress = s.HLWalletAddress
	}
	return s, nil
}
