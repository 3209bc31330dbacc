package httpx

import (
	"bytes"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/oauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/surveyforge/surveyforge/config"
)

// AdminUser is the only credential the bearer server knows about: a single
// shared secret for "the" administrator.
const AdminUser = "admin"

func NewBearerServer(db *sql.DB, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(
		cfg.TokenSecret,
		cfg.SessionTTL,
		CredentialsVerifier(db, cfg),
		nil,
	)
}

// ReadPasswordHash loads the bcrypt hash persisted by the set-password
// command.
func ReadPasswordHash(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(raw), nil
}

// WritePasswordHash hashes the given plaintext and overwrites the password
// file.
func WritePasswordHash(path, plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return os.WriteFile(path, hash, 0o600)
}

type credentialsVerifier struct {
	db         *sql.DB
	passwdFile string
	ttl        time.Duration
}

func CredentialsVerifier(db *sql.DB, cfg config.Config) oauth.CredentialsVerifier {
	return &credentialsVerifier{db, cfg.PasswdFile, cfg.SessionTTL}
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	if username != AdminUser {
		return AuthError{"unknown user"}
	}

	hash, err := ReadPasswordHash(cs.passwdFile)
	if err != nil {
		return StorageError{"passwd.read", err}
	}

	err = bcrypt.CompareHashAndPassword(hash, []byte(password))
	if err != nil {
		return AuthError{"wrong password"}
	}
	return nil
}
func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	_, err := cs.db.Exec(
		"INSERT INTO session (token_id, refresh_token_id, expiration) VALUES (?, ?, ?)",
		tokenID,
		refreshTokenID,
		time.Now().Add(cs.ttl),
	)
	return err
}
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	var expiration time.Time
	var ok bool

	cs.db.
		QueryRow(`
			DELETE FROM session
			WHERE token_id = ?
				AND refresh_token_id = ?
			RETURNING expiration, 1`,
			tokenID,
			refreshTokenID,
		).
		Scan(&expiration, &ok)
	if !ok {
		return AuthError{"unknown session"}
	}

	if expiration.Before(time.Now()) {
		return AuthError{"session expired"}
	}
	return nil
}
func (*credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{"roles": "admin"}, nil
}
func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}
func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return AuthError{"client credentials not supported"}
}
