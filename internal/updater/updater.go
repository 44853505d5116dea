package updater

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/smazurov/enctests/internal/logging"
	"github.com/smazurov/enctests/internal/version"
)

// Updater checks for and installs new releases of the running binary.
type Updater struct {
	repository    selfupdate.Repository
	updater       *selfupdate.Updater
	backupManager *backupManager
	current       string

	enabled        bool
	disabledReason string

	logger *slog.Logger
}

// New creates an Updater. When the executable's directory is not writable
// the returned Updater is disabled and Apply reports why.
func New(opts Options) (*Updater, error) {
	logger := logging.GetLogger("updater")

	slug := opts.Repository
	if slug == "" {
		slug = DefaultRepository
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	u := &Updater{
		repository: selfupdate.ParseSlug(slug),
		updater:    updater,
		current:    version.Version,
		enabled:    true,
		logger:     logger,
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		u.disable(fmt.Sprintf("failed to get executable path: %v", err))
		return u, nil
	}
	if ok, reason := checkWritePermission(filepath.Dir(exe)); !ok {
		u.disable(reason)
		return u, nil
	}

	dir := opts.BackupDir
	if dir == "" {
		if dir, err = defaultBackupDir(); err != nil {
			logger.Warn("Backups disabled", "error", err)
		}
	}
	if dir != "" {
		if u.backupManager, err = newBackupManager(dir, logger); err != nil {
			logger.Warn("Failed to create backup manager", "error", err)
		}
	}
	return u, nil
}

func (u *Updater) disable(reason string) {
	u.enabled = false
	u.disabledReason = reason
	u.logger.Warn("Self update disabled", "reason", reason)
}

// Enabled reports whether Apply can replace the binary.
func (u *Updater) Enabled() bool {
	return u.enabled
}

// DisabledReason returns why the updater is disabled, empty if enabled.
func (u *Updater) DisabledReason() string {
	return u.disabledReason
}

// BackupVersion returns the version of the backed up binary, if any.
func (u *Updater) BackupVersion() string {
	if u.backupManager == nil {
		return ""
	}
	return u.backupManager.backupVersion()
}

func checkWritePermission(dir string) (bool, string) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false, fmt.Sprintf("failed to resolve %s: %v", dir, err)
	}
	tmp := filepath.Join(resolved, ".enctests.update.test")
	f, err := os.Create(tmp)
	if err != nil {
		return false, fmt.Sprintf("no write permission to %s: %v", resolved, err)
	}
	f.Close()
	os.Remove(tmp)
	return true, ""
}

// isNewer reports whether latest should replace the running build.
// Development builds are always outdated.
func isNewer(current string, release *selfupdate.Release) bool {
	return current == "dev" || release.GreaterThan(current)
}

func (u *Updater) detect(ctx context.Context) (*selfupdate.Release, *UpdateInfo, error) {
	release, found, err := u.updater.DetectLatest(ctx, u.repository)
	if err != nil {
		return nil, nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}
	if !found {
		return nil, nil, newError(ErrCodeNotFound, "repository not found or has no releases", nil)
	}

	info := &UpdateInfo{
		CurrentVersion:  u.current,
		LatestVersion:   release.Version(),
		UpdateAvailable: isNewer(u.current, release),
	}
	if info.UpdateAvailable {
		info.ReleaseNotes = release.ReleaseNotes
		info.ReleaseURL = release.URL
		info.PublishedAt = release.PublishedAt
		info.AssetSize = release.AssetByteSize
	}
	return release, info, nil
}

// Check queries GitHub for the latest release without downloading it.
func (u *Updater) Check(ctx context.Context) (*UpdateInfo, error) {
	_, info, err := u.detect(ctx)
	return info, err
}

// Apply installs the latest release over the running binary. The previous
// binary is backed up first and restored if installing fails.
func (u *Updater) Apply(ctx context.Context) (*UpdateInfo, error) {
	if !u.enabled {
		return nil, newError(ErrCodeDisabled, u.disabledReason, nil)
	}

	release, info, err := u.detect(ctx)
	if err != nil {
		return nil, err
	}
	if !info.UpdateAvailable {
		return info, newError(ErrCodeNoUpdate, "no update available", nil)
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return info, newError(ErrCodeApplyFailed, "failed to get executable path", err)
	}

	if u.backupManager != nil {
		if err := u.backupManager.createBackup(exe, u.current); err != nil {
			return info, newError(ErrCodeBackupFailed, "failed to create backup", err)
		}
	}

	u.logger.Info("Installing update", "from", u.current, "to", release.Version())
	if err := u.updater.UpdateTo(ctx, release, exe); err != nil {
		u.attemptRollback()
		return info, newError(ErrCodeApplyFailed, "failed to apply update", err)
	}
	u.logger.Info("Update installed", "version", release.Version())
	return info, nil
}

// Rollback restores the backed up binary.
func (u *Updater) Rollback() error {
	if !u.enabled {
		return newError(ErrCodeDisabled, u.disabledReason, nil)
	}
	if u.backupManager == nil || !u.backupManager.hasBackup() {
		return newError(ErrCodeNoBackup, "no backup available for rollback", nil)
	}
	if err := u.backupManager.restore(); err != nil {
		return newError(ErrCodeRollbackFailed, "failed to restore backup", err)
	}
	return nil
}

func (u *Updater) attemptRollback() {
	if err := u.Rollback(); err != nil {
		u.logger.Error("Automatic rollback failed", "error", err)
		return
	}
	u.logger.Info("Automatic rollback completed")
}
