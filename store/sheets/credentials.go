package sheets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-json"

	"github.com/pricedesk/pricedesk/config"
	"github.com/pricedesk/pricedesk/store"
)

// CredentialSource names where a service-account key was found.
type CredentialSource string

const (
	SourceEnv  CredentialSource = "env"
	SourceFile CredentialSource = "file"
)

type serviceAccountKey struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
}

// ResolveCredentials returns the service-account key, preferring the one
// passed through the environment over the local key file. It returns
// store.ErrNoCredentials when neither is present.
func ResolveCredentials(cfg config.SheetsConfig) ([]byte, CredentialSource, error) {
	if cfg.CredentialJSON != "" {
		key := []byte(cfg.CredentialJSON)
		if _, err := parseKey(key); err != nil {
			return nil, SourceEnv, fmt.Errorf("service account from environment: %w", err)
		}
		return key, SourceEnv, nil
	}
	if cfg.CredentialFile == "" {
		return nil, "", store.ErrNoCredentials
	}
	key, err := os.ReadFile(cfg.CredentialFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", store.ErrNoCredentials
	} else if err != nil {
		return nil, SourceFile, fmt.Errorf("read service account file: %w", err)
	}
	if _, err := parseKey(key); err != nil {
		return nil, SourceFile, fmt.Errorf("service account file %s: %w", cfg.CredentialFile, err)
	}
	return key, SourceFile, nil
}

func parseKey(key []byte) (*serviceAccountKey, error) {
	k := &serviceAccountKey{}
	if err := json.Unmarshal(key, k); err != nil {
		return nil, err
	}
	if k.ClientEmail == "" {
		return nil, errors.New("missing client_email")
	}
	return k, nil
}
