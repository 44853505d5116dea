package updater

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBackupRoundTrip(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "enctests")
	if err := os.WriteFile(exe, []byte("old binary"), 0o755); err != nil {
		t.Fatal(err)
	}

	mgr, err := newBackupManager(filepath.Join(dir, "backup"), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if mgr.hasBackup() {
		t.Fatal("expected no backup in a fresh directory")
	}
	if err := mgr.restore(); err == nil {
		t.Error("expected restore without backup to fail")
	}

	if err := mgr.createBackup(exe, "v1.2.0"); err != nil {
		t.Fatalf("createBackup failed: %v", err)
	}
	if got := mgr.backupVersion(); got != "v1.2.0" {
		t.Errorf("expected backup version v1.2.0, got %s", got)
	}

	if err := os.WriteFile(exe, []byte("new binary"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := mgr.restore(); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	data, _ := os.ReadFile(exe)
	if string(data) != "old binary" {
		t.Errorf("expected old binary restored, got %q", data)
	}

	reloaded, err := newBackupManager(filepath.Join(dir, "backup"), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.backupVersion(); got != "v1.2.0" {
		t.Errorf("expected backup info to persist, got %q", got)
	}
}

func TestBackupMissingBinaryIgnored(t *testing.T) {
	dir := t.TempDir()
	info := `{"version":"v1.0.0","exec_path":"/nowhere"}`
	if err := os.WriteFile(filepath.Join(dir, backupInfoFilename), []byte(info), 0o644); err != nil {
		t.Fatal(err)
	}
	mgr, err := newBackupManager(dir, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if mgr.hasBackup() {
		t.Error("expected backup info without a binary to be ignored")
	}
}

func TestCheckWritePermission(t *testing.T) {
	ok, reason := checkWritePermission(t.TempDir())
	if !ok {
		t.Errorf("expected writable temp dir, got %s", reason)
	}
	ok, _ = checkWritePermission(filepath.Join(t.TempDir(), "missing"))
	if ok {
		t.Error("expected missing directory to be rejected")
	}
}

func TestDisabledUpdater(t *testing.T) {
	u := &Updater{logger: quietLogger(), enabled: true}
	u.disable("read-only install")

	if u.Enabled() {
		t.Error("expected updater to be disabled")
	}
	_, err := u.Apply(t.Context())
	if !HasCode(err, ErrCodeDisabled) {
		t.Errorf("expected %s error, got %v", ErrCodeDisabled, err)
	}
	if err := u.Rollback(); !HasCode(err, ErrCodeDisabled) {
		t.Errorf("expected %s error from rollback, got %v", ErrCodeDisabled, err)
	}
	if u.BackupVersion() != "" {
		t.Error("expected no backup version")
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")
	err := newError(ErrCodeCheckFailed, "failed to check for updates", cause)

	if got := err.Error(); got != "CHECK_FAILED: failed to check for updates: connection refused" {
		t.Errorf("unexpected message %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected error to unwrap to its cause")
	}
	wrapped := fmt.Errorf("self-update: %w", newError(ErrCodeNoUpdate, "no update available", nil))
	if !HasCode(wrapped, ErrCodeNoUpdate) || HasCode(wrapped, ErrCodeApplyFailed) {
		t.Errorf("unexpected code match for %v", wrapped)
	}
	if got := newError(ErrCodeNoUpdate, "no update available", nil).Error(); got != "NO_UPDATE: no update available" {
		t.Errorf("unexpected message %q", got)
	}
}
