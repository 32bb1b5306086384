package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumManifest records a BLAKE3 hash per configuration file, keyed by
// base filename, so edits after locking are detected on load.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

const manifestName = ".checksums"

// HashFile computes the BLAKE3 hash of a file.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Lock writes a checksum manifest next to the first file, covering all of
// them. Load verifies against it afterwards.
func Lock(paths ...string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no configuration files given")
	}

	manifest := ChecksumManifest{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hashes:      make(map[string]string, len(paths)),
	}
	for _, path := range paths {
		hash, err := HashFile(path)
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", path, err)
		}
		manifest.Hashes[filepath.Base(path)] = hash
	}

	out, err := yaml.Marshal(&manifest)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	dir, err := filepath.Abs(filepath.Dir(paths[0]))
	if err != nil {
		return "", err
	}
	manifestPath := filepath.Join(dir, manifestName)
	if err := os.WriteFile(manifestPath, out, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return manifestPath, nil
}

// verifyManifest checks every loaded file against the manifest in dir.
// A missing manifest is not an error; locking is opt-in.
func verifyManifest(dir string, paths []string) error {
	manifestPath := filepath.Join(dir, manifestName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read manifest: %w", err)
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parse manifest %s: %w", manifestPath, err)
	}

	for _, path := range paths {
		expected, ok := manifest.Hashes[filepath.Base(path)]
		if !ok {
			return fmt.Errorf("%s not covered by %s; re-run config lock", filepath.Base(path), manifestPath)
		}
		actual, err := HashFile(path)
		if err != nil {
			return fmt.Errorf("hash %s: %w", path, err)
		}
		if actual != expected {
			return fmt.Errorf("checksum mismatch for %s: expected %s, got %s",
				filepath.Base(path), expected, actual)
		}
	}
	return nil
}
