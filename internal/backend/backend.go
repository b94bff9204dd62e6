// Package backend selects the spreadsheet mirror implementation.
package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
)

// MirrorType represents the kind of spreadsheet mirror.
type MirrorType string

const (
	SheetsMirror MirrorType = "sheets"
	MemoryMirror MirrorType = "memory"
)

func (t MirrorType) String() string {
	return string(t)
}

// IsValid returns true if the mirror type is known.
func (t MirrorType) IsValid() bool {
	switch t {
	case SheetsMirror, MemoryMirror:
		return true
	default:
		return false
	}
}

// Config holds what is needed to build a mirror.
type Config struct {
	Type MirrorType

	// Google Sheets specific
	SpreadsheetID string
	SheetName     string
	Credentials   []byte
}

// FromAppConfig picks the Sheets mirror when a spreadsheet is configured and
// the in-memory mirror otherwise.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("app config is nil")
	}
	if !cfg.SheetsEnabled() {
		return Config{Type: MemoryMirror}, nil
	}
	creds, err := cfg.ServiceAccountCredentials()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Type:          SheetsMirror,
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
		Credentials:   creds,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid mirror type: %q", c.Type)
	}
	if c.Type == SheetsMirror {
		if c.SpreadsheetID == "" {
			return errors.New("spreadsheet id is required for the sheets mirror")
		}
		if c.SheetName == "" {
			return errors.New("sheet name is required for the sheets mirror")
		}
		if len(c.Credentials) == 0 {
			return errors.New("service account credentials are required for the sheets mirror")
		}
	}
	return nil
}

// Factory creates mirrors based on configuration.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentSheets)}
}

// CreateMirror builds the mirror described by cfg.
func (f *Factory) CreateMirror(ctx context.Context, cfg Config) (sheets.Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case SheetsMirror:
		cli, err := gsheet.New(ctx, cfg.SpreadsheetID, cfg.SheetName, cfg.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "sheet", cfg.SheetName)
		return cli, nil
	default:
		f.logger.WarnContext(ctx, "No spreadsheet configured, mirroring to memory only")
		return memory.New(), nil
	}
}
