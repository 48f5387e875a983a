package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// StoreType selects the backend holding the workbook.
type StoreType string

const (
	StoreTypeSheets StoreType = "sheets"
	StoreTypeLocal  StoreType = "local"
)

const (
	defaultWorkbook           = "經銷牌價表_資料庫"
	defaultServiceAccountFile = "service_account.json"
)

// StoreConfig holds the workbook location and its access credential.
type StoreConfig struct {
	Type     StoreType `json:"type"`
	Workbook string    `json:"workbook"`
	Sheets   SheetsConfig
	Local    LocalConfig
}

// SheetsConfig holds Google Sheets specific configuration.
type SheetsConfig struct {
	SpreadsheetID string `json:"spreadsheetId"`
	// CredentialJSON is the service-account key passed through the
	// environment. It takes priority over CredentialFile.
	CredentialJSON string `json:"-"`
	CredentialFile string `json:"credentialFile"`
}

// LocalConfig holds configuration for the sqlite-backed workbook.
type LocalConfig struct {
	Path string `json:"path"`
}

// GetStoreConfig reads the store configuration from the environment.
func GetStoreConfig() *StoreConfig {
	c := &StoreConfig{
		Type:     StoreType(os.Getenv("PRICEDESK_STORE")),
		Workbook: os.Getenv("PRICEDESK_WORKBOOK"),
		Sheets: SheetsConfig{
			SpreadsheetID:  os.Getenv("PRICEDESK_SPREADSHEET_ID"),
			CredentialJSON: os.Getenv("PRICEDESK_SERVICE_ACCOUNT"),
			CredentialFile: os.Getenv("PRICEDESK_SERVICE_ACCOUNT_FILE"),
		},
		Local: LocalConfig{
			Path: os.Getenv("PRICEDESK_DB_PATH"),
		},
	}
	if c.Type == "" {
		c.Type = StoreTypeSheets
	}
	if c.Workbook == "" {
		c.Workbook = defaultWorkbook
	}
	if c.Sheets.CredentialFile == "" {
		c.Sheets.CredentialFile = defaultServiceAccountFile
	}
	if c.Local.Path == "" {
		c.Local.Path = getDefaultLocalPath()
	}
	return c
}

func getDefaultLocalPath() string {
	return filepath.Join("db", GetName()+".db")
}

// Validate checks the configuration is usable. Missing Sheets credentials are
// not an error here: the connector fails closed at connect time instead.
func (c *StoreConfig) Validate() error {
	if c.Workbook == "" {
		return fmt.Errorf("workbook name cannot be empty")
	}
	switch c.Type {
	case StoreTypeSheets:
		return nil
	case StoreTypeLocal:
		if c.Local.Path == "" {
			return fmt.Errorf("local store path cannot be empty")
		}
		return nil
	default:
		return fmt.Errorf("unsupported store type: %s", c.Type)
	}
}

// IsLocal returns true if the workbook lives in the local sqlite database.
func (c *StoreConfig) IsLocal() bool {
	return c.Type == StoreTypeLocal
}

// EnsureDirectoryExists ensures the directory for the local database exists.
func (c *StoreConfig) EnsureDirectoryExists() error {
	if c.IsLocal() {
		return os.MkdirAll(filepath.Dir(c.Local.Path), 0o755)
	}
	return nil
}
