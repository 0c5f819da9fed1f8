// Package secrets decrypts age-encrypted config values.
//
// An encrypted value is written as ENC[<base64(age ciphertext)>] anywhere a
// string is accepted in mkxray-web.toml, typically web.password and
// nats.token. The identity is resolved at startup from the environment, the
// config, or the default key file.
package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"github.com/spf13/viper"
)

const (
	encPrefix = "ENC["
	encSuffix = "]"

	// DefaultKeyFilename is the age identity filename under the config dir.
	DefaultKeyFilename = "age.key"

	// EnvAgeKey holds a raw AGE-SECRET-KEY-1... string.
	EnvAgeKey = "MKXRAY_AGE_KEY"

	// EnvAgeKeyFile holds a path to an age identity file.
	EnvAgeKeyFile = "MKXRAY_AGE_KEY_FILE"
)

// ErrNoIdentity is returned by Apply when encrypted values exist but no key is configured.
var ErrNoIdentity = errors.New("config contains ENC[...] values but no age identity is configured")

// IsEncrypted reports whether value is wrapped in ENC[...] with a non-empty payload.
func IsEncrypted(value string) bool {
	return len(value) > len(encPrefix)+len(encSuffix) &&
		strings.HasPrefix(value, encPrefix) && strings.HasSuffix(value, encSuffix)
}

// Encrypt encrypts plaintext for recipients and wraps it in ENC[...].
func Encrypt(plaintext string, recipients ...age.Recipient) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return "", fmt.Errorf("create age encryptor: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("write plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize encryption: %w", err)
	}
	return encPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()) + encSuffix, nil
}

// Decrypt unwraps and decrypts an ENC[...] value.
func Decrypt(enc string, identities ...age.Identity) (string, error) {
	if !IsEncrypted(enc) {
		return "", errors.New("value is not encrypted (missing ENC[...] wrapper)")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(enc[len(encPrefix) : len(enc)-len(encSuffix)])
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return "", fmt.Errorf("age decrypt: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read decrypted data: %w", err)
	}
	return string(plaintext), nil
}

// GenerateKeyPair generates a new X25519 identity.
func GenerateKeyPair() (*age.X25519Identity, error) {
	return age.GenerateX25519Identity()
}

// DefaultKeyPath is ~/.config/mkxray/age.key.
func DefaultKeyPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mkxray", DefaultKeyFilename)
}

// LoadIdentity reads identities from an age key file.
func LoadIdentity(keyPath string) ([]age.Identity, error) {
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()
	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse identity file: %w", err)
	}
	return identities, nil
}

// IdentityFromString parses a raw AGE-SECRET-KEY-1... string.
func IdentityFromString(key string) (*age.X25519Identity, error) {
	return age.ParseX25519Identity(strings.TrimSpace(key))
}

// ResolveIdentity looks for an identity in MKXRAY_AGE_KEY, MKXRAY_AGE_KEY_FILE,
// the secrets.identity config key and finally DefaultKeyPath, in that order.
// It returns (nil, nil) when none is configured.
func ResolveIdentity(v *viper.Viper) ([]age.Identity, error) {
	if raw := os.Getenv(EnvAgeKey); raw != "" {
		id, err := IdentityFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvAgeKey, err)
		}
		return []age.Identity{id}, nil
	}
	if path := os.Getenv(EnvAgeKeyFile); path != "" {
		return LoadIdentity(path)
	}
	if path := v.GetString("secrets.identity"); path != "" {
		return LoadIdentity(expandHome(path))
	}
	if _, err := os.Stat(DefaultKeyPath()); err != nil {
		return nil, nil
	}
	return LoadIdentity(DefaultKeyPath())
}

// DecryptViperConfig replaces every ENC[...] string value in v with its
// plaintext and returns how many keys were decrypted.
func DecryptViperConfig(v *viper.Viper, identities []age.Identity) (int, error) {
	n := 0
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsEncrypted(val) {
			continue
		}
		plaintext, err := Decrypt(val, identities...)
		if err != nil {
			return n, fmt.Errorf("decrypt config key %q: %w", key, err)
		}
		v.Set(key, plaintext)
		n++
	}
	return n, nil
}

// HasEncryptedValues reports whether any string value in v uses ENC[...].
func HasEncryptedValues(v *viper.Viper) bool {
	for _, key := range v.AllKeys() {
		if IsEncrypted(v.GetString(key)) {
			return true
		}
	}
	return false
}

// Apply resolves an identity and decrypts v in place. Configs without
// encrypted values never touch the key material.
func Apply(v *viper.Viper) error {
	if !HasEncryptedValues(v) {
		return nil
	}
	ids, err := ResolveIdentity(v)
	if err != nil {
		return fmt.Errorf("resolve age identity: %w", err)
	}
	if ids == nil {
		return ErrNoIdentity
	}
	_, err = DecryptViperConfig(v, ids)
	return err
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[1:])
}
