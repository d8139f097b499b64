package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// StateCookieName is the name of the cookie carrying the sealed OIDC state.
	StateCookieName = "hm_oidc_state"
	// StateTTL bounds how long a login attempt may take.
	StateTTL = 5 * time.Minute
)

// StateStore seals the OIDC state and nonce into an AES-GCM encrypted cookie
// so the callback can be checked without server-side session storage.
type StateStore struct {
	aead   cipher.AEAD
	path   string
	secure bool
	now    func() time.Time
}

// StateData holds the state and nonce for an OIDC request.
type StateData struct {
	State     string    `json:"state"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewStateStore creates a state store. key must be 32 bytes; path scopes the cookie.
func NewStateStore(key []byte, path string, secure bool) (*StateStore, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("state store key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if path == "" {
		path = "/"
	}
	return &StateStore{aead: aead, path: path, secure: secure, now: time.Now}, nil
}

// Issue creates a new state/nonce pair and sets it as a sealed cookie.
func (ss *StateStore) Issue(w http.ResponseWriter) (*StateData, error) {
	state, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	data := &StateData{
		State:     state,
		Nonce:     nonce,
		ExpiresAt: ss.now().Add(StateTTL),
	}

	sealed, err := ss.seal(data)
	if err != nil {
		return nil, err
	}
	ss.setCookie(w, sealed, int(StateTTL.Seconds()))
	return data, nil
}

// Consume checks state against the sealed cookie and clears the cookie.
// It fails when the cookie is missing, tampered with, expired, or for a
// different state value.
func (ss *StateStore) Consume(w http.ResponseWriter, r *http.Request, state string) (*StateData, error) {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil {
		return nil, fmt.Errorf("state cookie not found: %w", err)
	}
	ss.setCookie(w, "", -1)

	data, err := ss.open(cookie.Value)
	if err != nil {
		return nil, err
	}
	if ss.now().After(data.ExpiresAt) {
		return nil, fmt.Errorf("state expired")
	}
	if !ConstantTimeCompare(data.State, state) {
		return nil, fmt.Errorf("state mismatch")
	}
	return data, nil
}

func (ss *StateStore) seal(data *StateData) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}
	nonce := make([]byte, ss.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := ss.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

func (ss *StateStore) open(value string) (*StateData, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if len(ciphertext) < ss.aead.NonceSize() {
		return nil, fmt.Errorf("invalid state data")
	}
	nonce, ciphertext := ciphertext[:ss.aead.NonceSize()], ciphertext[ss.aead.NonceSize():]
	plaintext, err := ss.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state: %w", err)
	}
	var data StateData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &data, nil
}

func (ss *StateStore) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    value,
		Path:     ss.path,
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   ss.secure,
	})
}
