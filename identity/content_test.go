package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScriptContent(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		dialect Dialect
		wantErr string
	}{
		{
			name:    "valid shell script",
			text:    "echo hello",
			dialect: DialectShell,
		},
		{
			name:    "exactly at the size ceiling",
			text:    strings.Repeat("a", MaxScriptBytes),
			dialect: DialectPython,
		},
		{
			name:    "one byte over the ceiling",
			text:    strings.Repeat("a", MaxScriptBytes+1),
			dialect: DialectPython,
			wantErr: "exceeding",
		},
		{
			name:    "empty",
			text:    "",
			dialect: DialectShell,
			wantErr: "empty",
		},
		{
			name:    "invalid utf-8",
			text:    "echo \xff\xfe",
			dialect: DialectShell,
			wantErr: "UTF-8",
		},
		{
			name:    "unknown dialect",
			text:    "echo hello",
			dialect: Dialect("ruby"),
			wantErr: "unknown script dialect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewScriptContent(tt.text, tt.dialect)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.text, got.Text())
			assert.Equal(t, tt.dialect, got.Dialect())
		})
	}
}

func TestHashBytes(t *testing.T) {
	a := HashBytes([]byte("display dialog \"hi\""))
	b := HashBytes([]byte("display dialog \"hi\""))
	c := HashBytes([]byte("display dialog \"hi!\""))

	assert.Equal(t, a, b, "identical content must hash identically")
	assert.NotEqual(t, a, c, "differing content must hash differently")
	assert.Len(t, a.String(), 64)
	assert.Equal(t, strings.ToLower(a.String()), a.String())
}

func TestParseSecurityHash(t *testing.T) {
	valid := HashBytes([]byte("x")).String()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "round-trips a computed hash",
			input: valid,
		},
		{
			name:    "too short",
			input:   valid[:40],
			wantErr: true,
		},
		{
			name:    "non-hex characters",
			input:   strings.Repeat("z", 64),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSecurityHash(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, got.String())
		})
	}
}
