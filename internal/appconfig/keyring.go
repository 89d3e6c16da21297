package appconfig

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the OS keyring service holding tabforge secrets.
	KeyringService = "tabforge"
	// KeyringAPIKeyUser is the keyring entry for the vision provider key.
	KeyringAPIKeyUser = "openai_api_key"
	// APIKeyEnv overrides every other key source.
	APIKeyEnv = "OPENAI_API_KEY"
)

// KeySource names where an API key was found.
type KeySource string

const (
	KeySourceNone    KeySource = "none"
	KeySourceEnv     KeySource = "env"
	KeySourceConfig  KeySource = "config"
	KeySourceKeyring KeySource = "keyring"
)

// ResolveAPIKey returns the vision provider key from the environment, the
// config file or the OS keyring, in that order. A missing key is not an error;
// keyring failures other than not-found are returned alongside an empty key.
func ResolveAPIKey(cfg VisionConfig) (string, KeySource, error) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		return key, KeySourceEnv, nil
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key, KeySourceConfig, nil
	}
	key, err := keyring.Get(KeyringService, KeyringAPIKeyUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", KeySourceNone, nil
		}
		return "", KeySourceNone, err
	}
	if key = strings.TrimSpace(key); key == "" {
		return "", KeySourceNone, nil
	}
	return key, KeySourceKeyring, nil
}

// StoreAPIKey saves the vision provider key in the OS keyring.
func StoreAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is empty")
	}
	return keyring.Set(KeyringService, KeyringAPIKeyUser, key)
}

// DeleteAPIKey removes the vision provider key from the OS keyring.
func DeleteAPIKey() error {
	err := keyring.Delete(KeyringService, KeyringAPIKeyUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
