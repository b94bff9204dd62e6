package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	"fintrack/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, MemoryMirror, cfg.Type)

	cfg, err = FromAppConfig(&config.Config{
		GoogleSpreadsheetID:      "sheet-id",
		GoogleSheetName:          "Ledger",
		GoogleServiceAccountJSON: `{"type":"service_account"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, SheetsMirror, cfg.Type)
	assert.Equal(t, "Ledger", cfg.SheetName)
	assert.JSONEq(t, `{"type":"service_account"}`, string(cfg.Credentials))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryMirror}, ""},
		{"unknown type", Config{Type: "postgres"}, "invalid mirror type"},
		{"sheets without id", Config{Type: SheetsMirror, SheetName: "L", Credentials: []byte("{}")}, "spreadsheet id"},
		{"sheets without name", Config{Type: SheetsMirror, SpreadsheetID: "x", Credentials: []byte("{}")}, "sheet name"},
		{"sheets without creds", Config{Type: SheetsMirror, SpreadsheetID: "x", SheetName: "L"}, "credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateMirrorMemory(t *testing.T) {
	m, err := NewFactory(nil).CreateMirror(context.Background(), Config{Type: MemoryMirror})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, m)

	_, err = NewFactory(nil).CreateMirror(context.Background(), Config{Type: "bogus"})
	assert.Error(t, err)
}
