package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const baseCredPath = "blogreader/creds.toml"

// Credentials holds all application credentials
type Credentials struct {
	Telegram TelegramCredentials `toml:"telegram"`
}

// TelegramCredentials holds Telegram API credentials used by the telegram share target
type TelegramCredentials struct {
	AppID       int    `toml:"api_id"`
	AppHash     string `toml:"api_hash"`
	PhoneNumber string `toml:"phone"`
}

// IsValid checks if telegram credentials are fully populated
func (tc TelegramCredentials) IsValid() bool {
	return tc.AppID != 0 && tc.AppHash != "" && tc.PhoneNumber != ""
}

// ReadCredentials reads credentials from the specified path
func ReadCredentials(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	if err != nil {
		return creds, err
	}

	if _, err := toml.Decode(string(data), &creds); err != nil {
		return creds, fmt.Errorf("failed to decode credentials at %s: %w", path, err)
	}

	return creds, nil
}

// WriteCredentials writes credentials to the specified path
func WriteCredentials(path string, creds Credentials) error {
	blob, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	basePath := filepath.Dir(path)
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return fmt.Errorf("failed to create credentials directory at '%s': %w", basePath, err)
	}

	// Only the owner may read the API hash
	if err := os.WriteFile(path, blob, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file at '%s': %w", path, err)
	}

	return nil
}

// DefaultCredentialsPath returns the default path for credentials file
func DefaultCredentialsPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return filepath.Join(xdgHome, baseCredPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".config", baseCredPath)
	}

	panic("unable to determine credentials file path")
}

// PromptTelegramCredentials asks for Telegram credentials on in and echoes prompts to out
func PromptTelegramCredentials(in *bufio.Reader, out io.Writer) (TelegramCredentials, error) {
	var creds TelegramCredentials

	fmt.Fprintln(out, "Telegram credentials not found. Please provide the following information:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To get API_ID and API_HASH:")
	fmt.Fprintln(out, "  1. Go to https://my.telegram.org")
	fmt.Fprintln(out, "  2. Log in with your phone number")
	fmt.Fprintln(out, "  3. Open 'API development tools' and create an application")
	fmt.Fprintln(out)

	fmt.Fprint(out, "Enter API_ID: ")
	appIDStr, err := in.ReadString('\n')
	if err != nil {
		return creds, fmt.Errorf("failed to read API_ID: %w", err)
	}
	appID, err := strconv.Atoi(strings.TrimSpace(appIDStr))
	if err != nil {
		return creds, fmt.Errorf("invalid API_ID: %w", err)
	}
	creds.AppID = appID

	fmt.Fprint(out, "Enter API_HASH: ")
	appHash, err := in.ReadString('\n')
	if err != nil {
		return creds, fmt.Errorf("failed to read API_HASH: %w", err)
	}
	creds.AppHash = strings.TrimSpace(appHash)

	fmt.Fprint(out, "Enter phone number in international format (e.g. +1234567890): ")
	phone, err := in.ReadString('\n')
	if err != nil {
		return creds, fmt.Errorf("failed to read phone number: %w", err)
	}
	creds.PhoneNumber = strings.TrimSpace(phone)

	if !creds.IsValid() {
		return creds, fmt.Errorf("all credential fields are required")
	}

	return creds, nil
}

// LoadOrPromptTelegramCredentials loads telegram credentials or prompts for them and saves the answer
func LoadOrPromptTelegramCredentials(credPath string) (TelegramCredentials, error) {
	creds, err := ReadCredentials(credPath)
	if err == nil && creds.Telegram.IsValid() {
		return creds.Telegram, nil
	}

	telegramCreds, err := PromptTelegramCredentials(bufio.NewReader(os.Stdin), os.Stdout)
	if err != nil {
		return TelegramCredentials{}, err
	}

	creds.Telegram = telegramCreds
	if err := WriteCredentials(credPath, creds); err != nil {
		return telegramCreds, fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Printf("Credentials saved to %s\n", credPath)
	fmt.Println()

	return telegramCreds, nil
}
