// Package storage implements the content-addressable file layout described
// in §4.1: uploads, stems, slices, exports and a shard-keyed cache, all
// rooted under one directory.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
)

var buckets = []string{"uploads", "stems", "slices", "exports", "cache"}

// Storage lays out files deterministically under Root and serves them back
// by session id.
type Storage struct {
	Root   string
	logger *zap.Logger
}

// New creates the bucket directories under root if they don't already
// exist.
func New(root string, logger *zap.Logger) (*Storage, error) {
	s := &Storage{Root: root, logger: logger}
	for _, bucket := range buckets {
		if err := os.MkdirAll(filepath.Join(root, bucket), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return s, nil
}

// SaveUpload streams an uploaded file to uploads/{session}/{filename},
// hashing it with SHA-256 while writing, and returns the final path plus
// content hash.
func (s *Storage) SaveUpload(sessionID, filename string, r io.Reader) (string, string, error) {
	sessionDir := filepath.Join(s.Root, "uploads", sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create session upload dir: %w", err)
	}

	safeFilename := SanitizeFilename(filename)
	path := filepath.Join(sessionDir, safeFilename)

	f, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, hasher), r); err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}

	return path, hex.EncodeToString(hasher.Sum(nil)), nil
}

// SaveStem moves (or copies, on cross-device rename failure) src into
// stems/{session}/{role}{extension}.
func (s *Storage) SaveStem(sessionID, role, srcPath, extension string) (string, error) {
	if extension == "" {
		extension = ".wav"
	}
	sessionDir := filepath.Join(s.Root, "stems", sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", fmt.Errorf("create stem dir: %w", err)
	}
	dest := filepath.Join(sessionDir, role+extension)

	if err := os.Rename(srcPath, dest); err != nil {
		if copyErr := copyFile(srcPath, dest); copyErr != nil {
			return "", fmt.Errorf("save stem: %w", copyErr)
		}
	}
	return dest, nil
}

// SaveSlice copies src into slices/{session}/{bank}/slice_####.wav.
func (s *Storage) SaveSlice(sessionID, bankID string, index int, srcPath string) (string, error) {
	sessionDir := filepath.Join(s.Root, "slices", sessionID, bankID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", fmt.Errorf("create slice dir: %w", err)
	}
	dest := filepath.Join(sessionDir, fmt.Sprintf("slice_%04d.wav", index))
	if err := copyFile(srcPath, dest); err != nil {
		return "", fmt.Errorf("save slice: %w", err)
	}
	return dest, nil
}

// SaveExport copies src into exports/{session}/{filename}.
func (s *Storage) SaveExport(sessionID, filename, srcPath string) (string, error) {
	sessionDir := filepath.Join(s.Root, "exports", sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	dest := filepath.Join(sessionDir, filename)
	if err := copyFile(srcPath, dest); err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}
	return dest, nil
}

// SavePeaks copies src (an audiowaveform .dat file) into peaks/{session}/{assetID}.dat.
func (s *Storage) SavePeaks(sessionID, assetID, srcPath string) (string, error) {
	sessionDir := filepath.Join(s.Root, "peaks", sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", fmt.Errorf("create peaks dir: %w", err)
	}
	dest := filepath.Join(sessionDir, assetID+".dat")
	if err := copyFile(srcPath, dest); err != nil {
		return "", fmt.Errorf("save peaks: %w", err)
	}
	return dest, nil
}

// CachePath returns a shard-keyed slot for temporary processing files,
// creating the shard directory if needed.
func (s *Storage) CachePath(cacheKey, extension string) (string, error) {
	shard := cacheKey
	if len(shard) > 2 {
		shard = shard[:2]
	}
	shardDir := filepath.Join(s.Root, "cache", shard)
	if err := os.MkdirAll(shardDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache shard: %w", err)
	}
	return filepath.Join(shardDir, cacheKey+extension), nil
}

// Stems returns every *.wav found under stems/{session}, keyed by role.
func (s *Storage) Stems(sessionID string) (map[string]string, error) {
	stemDir := filepath.Join(s.Root, "stems", sessionID)
	entries, err := os.ReadDir(stemDir)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stem dir: %w", err)
	}

	stems := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wav") {
			continue
		}
		role := strings.TrimSuffix(e.Name(), ".wav")
		stems[role] = filepath.Join(stemDir, e.Name())
	}
	return stems, nil
}

var uploadExtensions = []string{".mp3", ".wav", ".flac", ".m4a", ".ogg", ".aiff"}

// Upload returns the first recognized audio file under uploads/{session}.
func (s *Storage) Upload(sessionID string) (string, error) {
	uploadDir := filepath.Join(s.Root, "uploads", sessionID)
	entries, err := os.ReadDir(uploadDir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read upload dir: %w", err)
	}

	for _, ext := range uploadExtensions {
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
				return filepath.Join(uploadDir, e.Name()), nil
			}
		}
	}
	return "", nil
}

// DeleteSession recursively and idempotently removes everything belonging
// to a session, across every bucket except the shared cache.
func (s *Storage) DeleteSession(sessionID string) error {
	for _, bucket := range []string{"uploads", "stems", "slices", "exports", "peaks"} {
		dir := filepath.Join(s.Root, bucket, sessionID)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("delete session %s from %s: %w", sessionID, bucket, err)
		}
	}
	return nil
}

// CleanupCache removes cache entries older than maxAge, logging a summary
// of how many were removed.
func (s *Storage) CleanupCache(maxAge time.Duration) error {
	cacheDir := filepath.Join(s.Root, "cache")
	shards, err := os.ReadDir(cacheDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		shardDir := filepath.Join(cacheDir, shard.Name())
		files, err := os.ReadDir(shardDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			info, err := f.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(filepath.Join(shardDir, f.Name())); err == nil {
					removed++
				}
			}
		}
	}
	s.logger.Info("cache cleanup complete", zap.Int("removed", removed))
	return nil
}

// Exists reports whether path refers to a file that is actually there.
func (s *Storage) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Hash computes the SHA-256 of an on-disk file, for integrity checks
// independent of upload time (§SUPPLEMENTED FEATURES item 4).
func Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", loopforgeerrors.NotFound("file", path)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// SanitizeFilename keeps only [A-Za-z0-9._-], rewrites a leading dot so
// files never become hidden, and never fails: an empty result becomes
// "unnamed".
func SanitizeFilename(filename string) string {
	var b strings.Builder
	for _, c := range filename {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	result := b.String()
	if strings.HasPrefix(result, ".") {
		result = "_" + result[1:]
	}
	if result == "" {
		return "unnamed"
	}
	return result
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
