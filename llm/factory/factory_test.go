package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{name: "default is openai", cfg: Config{}, wantName: "openai"},
		{name: "explicit openai", cfg: Config{Provider: "OpenAI"}, wantName: "openai"},
		{name: "compat", cfg: Config{Provider: "openaicompat", BaseURL: "http://localhost:11434"}, wantName: "openaicompat"},
		{name: "ollama alias", cfg: Config{Provider: "ollama", BaseURL: "http://localhost:11434"}, wantName: "ollama"},
		{name: "compat without url", cfg: Config{Provider: "openaicompat"}, wantErr: true},
		{name: "unknown", cfg: Config{Provider: "carrier-pigeon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}
