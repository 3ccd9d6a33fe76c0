package update

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"
)

const verifyTimeout = 10 * time.Second

// BinaryReplacer swaps the running executable for a staged one with rollback support
type BinaryReplacer struct {
	currentPath string
	backupPath  string
	verifyArgs  []string
}

// NewBinaryReplacer creates a new binary replacer for the executable at currentPath
func NewBinaryReplacer(currentPath string) *BinaryReplacer {
	return &BinaryReplacer{
		currentPath: currentPath,
		backupPath:  currentPath + ".backup",
		verifyArgs:  []string{"--version"},
	}
}

// Path returns the path of the executable being replaced.
func (r *BinaryReplacer) Path() string {
	return r.currentPath
}

// Replace installs newBinary over the current executable.
// The previous executable is restored if any step fails.
func (r *BinaryReplacer) Replace(newBinary string) error {
	if err := r.createBackup(); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	if err := os.Rename(newBinary, r.currentPath); err != nil {
		r.rollbackQuietly()
		return fmt.Errorf("failed to replace binary: %w", err)
	}

	if err := os.Chmod(r.currentPath, 0755); err != nil {
		r.rollbackQuietly()
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := r.verifyBinary(r.currentPath); err != nil {
		r.rollbackQuietly()
		return fmt.Errorf("new binary verification failed: %w", err)
	}

	_ = os.Remove(r.backupPath)
	log.WithField("path", r.currentPath).Info("installed staged update")

	return nil
}

// Rollback restores the backup if update fails
func (r *BinaryReplacer) Rollback() error {
	if _, err := os.Stat(r.backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup not found: %s", r.backupPath)
	}

	if err := os.Rename(r.backupPath, r.currentPath); err != nil {
		return fmt.Errorf("failed to restore from backup: %w", err)
	}

	if err := os.Chmod(r.currentPath, 0755); err != nil {
		return fmt.Errorf("failed to set permissions on restored binary: %w", err)
	}

	if err := r.verifyBinary(r.currentPath); err != nil {
		return fmt.Errorf("restored binary verification failed: %w", err)
	}

	return nil
}

func (r *BinaryReplacer) rollbackQuietly() {
	if err := r.Rollback(); err != nil {
		log.Errorf("rollback of %s: %v", r.currentPath, err)
	}
}

// createBackup copies the current binary next to itself, keeping its mode
func (r *BinaryReplacer) createBackup() error {
	src, err := os.Open(r.currentPath)
	if err != nil {
		return fmt.Errorf("failed to open current binary: %w", err)
	}
	defer func() { _ = src.Close() }()

	srcInfo, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat current binary: %w", err)
	}

	dst, err := os.OpenFile(r.backupPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(r.backupPath)
		return fmt.Errorf("failed to copy binary to backup: %w", err)
	}

	return nil
}

// verifyBinary runs the binary with the verification arguments and expects a zero exit
func (r *BinaryReplacer) verifyBinary(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, r.verifyArgs...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("binary verification failed: %w", err)
	}
	return nil
}
