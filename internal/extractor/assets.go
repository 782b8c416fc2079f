package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// DefaultAssetPrefix starts every generated asset basename.
const DefaultAssetPrefix = "asset_"

// WrittenAsset describes one asset file produced by an AssetWriter.
type WrittenAsset struct {
	Name   string
	Path   string
	RelURL string
	Size   int64
	SHA256 string
	// Reused is set when Dedupe returned an existing file for identical bytes.
	Reused bool
}

// AssetWriter names and writes asset files for one run. Basenames are
// prefix + a 1-based, zero-padded sequence + extension, allocated in the
// order Write is called.
type AssetWriter struct {
	// Dir is the assets directory.
	Dir string
	// BaseDir is the directory of the optimized document; returned references
	// are relative to it.
	BaseDir string
	Prefix  string
	// StrictPerms writes 0700 directories and 0600 files instead of 0755/0644.
	StrictPerms bool
	// Dedupe reuses the first file written for byte-identical payloads.
	Dedupe bool

	seq    int
	byHash map[string]WrittenAsset
}

// EnsureDir creates the assets directory if needed. Concurrent creation by
// another run is not an error.
func (w *AssetWriter) EnsureDir() error {
	perm := os.FileMode(0o755)
	if w.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(w.Dir, perm); err != nil {
		return &AssetWriteError{Index: -1, Path: w.Dir, Err: err}
	}
	if w.StrictPerms {
		if info, err := os.Stat(w.Dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(w.Dir, 0o700)
		}
	}
	return nil
}

// Write stores data for occurrence index under the next basename and returns
// the reference to put into the document.
func (w *AssetWriter) Write(index int, data []byte, ext string) (WrittenAsset, error) {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	if w.Dedupe {
		if prev, ok := w.byHash[digest]; ok {
			prev.Reused = true
			return prev, nil
		}
	}
	if err := w.EnsureDir(); err != nil {
		var awe *AssetWriteError
		if errors.As(err, &awe) {
			awe.Index = index
		}
		return WrittenAsset{}, err
	}

	w.seq++
	prefix := w.Prefix
	if prefix == "" {
		prefix = DefaultAssetPrefix
	}
	name := fmt.Sprintf("%s%03d%s", prefix, w.seq, ext)
	path := filepath.Join(w.Dir, name)
	if err := w.writeFile(path, data); err != nil {
		return WrittenAsset{}, &AssetWriteError{Index: index, Path: path, Err: err}
	}
	rel, err := relativeURL(w.BaseDir, path)
	if err != nil {
		return WrittenAsset{}, &AssetWriteError{Index: index, Path: path, Err: err}
	}
	a := WrittenAsset{
		Name:   name,
		Path:   path,
		RelURL: rel,
		Size:   int64(len(data)),
		SHA256: digest,
	}
	if w.Dedupe {
		if w.byHash == nil {
			w.byHash = make(map[string]WrittenAsset)
		}
		w.byHash[digest] = a
	}
	return a, nil
}

// writeFile writes through a temp file in the same directory and renames it
// into place so a failed run never leaves a truncated asset behind.
func (w *AssetWriter) writeFile(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if w.StrictPerms {
		mode = 0o600
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, mode); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// relativeURL expresses target relative to base as a slash-separated,
// path-escaped URL reference.
func relativeURL(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	u := &url.URL{Path: filepath.ToSlash(rel)}
	return u.EscapedPath(), nil
}
