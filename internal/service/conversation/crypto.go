package conversation

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"log"
	"os"
	"strings"
)

const settingsKeyEnv = "VARSHGPT_SETTINGS_KEY"

var errInvalidCiphertext = errors.New("invalid settings ciphertext")

// settingsCipher encrypts the settings blob at rest so stored API keys are
// not readable straight out of the database file. A nil cipher means the
// key env var is unset and blobs are stored in the clear.
type settingsCipher struct {
	aead cipher.AEAD
}

func newSettingsCipher() *settingsCipher {
	raw := strings.TrimSpace(os.Getenv(settingsKeyEnv))
	if raw == "" {
		log.Printf("%s not set, settings will be stored unencrypted", settingsKeyEnv)
		return nil
	}
	key, err := decodeKey(raw)
	if err != nil {
		log.Printf("decode %s: %v, settings will be stored unencrypted", settingsKeyEnv, err)
		return nil
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		log.Printf("settings cipher: %v, settings will be stored unencrypted", err)
		return nil
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		log.Printf("settings cipher gcm: %v, settings will be stored unencrypted", err)
		return nil
	}
	return &settingsCipher{aead: aead}
}

func decodeKey(raw string) ([]byte, error) {
	if len(raw) == 32 {
		return []byte(raw), nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	}
	return nil, errors.New("key must be 16, 24, or 32 bytes")
}

const cipherPrefix = "enc:v1:"

func (c *settingsCipher) seal(plaintext string) (string, error) {
	if c == nil {
		return plaintext, nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return cipherPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *settingsCipher) open(stored string) (string, error) {
	if !strings.HasPrefix(stored, cipherPrefix) {
		// Plaintext blob, written before encryption was enabled.
		return stored, nil
	}
	if c == nil {
		return "", errors.New("settings are encrypted but " + settingsKeyEnv + " is not set")
	}
	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, cipherPrefix))
	if err != nil {
		return "", errInvalidCiphertext
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", errInvalidCiphertext
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errInvalidCiphertext
	}
	return string(plaintext), nil
}
