package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	root := t.TempDir()
	s, err := New(root, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"track.wav", "track.wav"},
		{"my track (final)!!.wav", "my_track__final___.wav"},
		{".hidden", "_hidden"},
		{"", "unnamed"},
		{"../../etc/passwd", "_._.._etc_passwd"},
	}
	for _, c := range cases {
		if got := SanitizeFilename(c.in); got != c.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSaveUploadHashesWhileWriting(t *testing.T) {
	s := newTestStorage(t)
	content := []byte("some audio bytes")

	path, hash, err := s.SaveUpload("sess1", "track.wav", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if !s.Exists(path) {
		t.Fatalf("expected upload to exist at %s", path)
	}

	gotHash, err := Hash(path)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if gotHash != hash {
		t.Errorf("SaveUpload hash %q does not match independently computed hash %q", hash, gotHash)
	}
}

func TestSaveStemThenStemsLookup(t *testing.T) {
	s := newTestStorage(t)
	src := filepath.Join(t.TempDir(), "source.wav")
	if err := os.WriteFile(src, []byte("drum stem"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if _, err := s.SaveStem("sess1", "drums", src, ".wav"); err != nil {
		t.Fatalf("SaveStem: %v", err)
	}

	stems, err := s.Stems("sess1")
	if err != nil {
		t.Fatalf("Stems: %v", err)
	}
	if _, ok := stems["drums"]; !ok {
		t.Fatalf("expected drums stem to be found, got %v", stems)
	}
}

func TestCachePathShardsByPrefix(t *testing.T) {
	s := newTestStorage(t)
	path, err := s.CachePath("abcdef1234", ".dat")
	if err != nil {
		t.Fatalf("CachePath: %v", err)
	}
	want := filepath.Join(s.Root, "cache", "ab", "abcdef1234.dat")
	if path != want {
		t.Errorf("CachePath = %q, want %q", path, want)
	}
}

func TestCleanupCacheRemovesOldEntries(t *testing.T) {
	s := newTestStorage(t)
	path, err := s.CachePath("deadbeef", ".tmp")
	if err != nil {
		t.Fatalf("CachePath: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write cache file: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if err := s.CleanupCache(24 * time.Hour); err != nil {
		t.Fatalf("CleanupCache: %v", err)
	}
	if s.Exists(path) {
		t.Errorf("expected stale cache file to be removed")
	}
}

func TestDeleteSessionIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	if err := s.DeleteSession("never-existed"); err != nil {
		t.Errorf("DeleteSession on missing session should be a no-op, got %v", err)
	}
}
