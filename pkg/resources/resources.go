// Package resources manages the directory holding the bridge executables.
//
// Tools may be bundled with the application (any fs.FS, typically an
// embed.FS) and extracted into a cache directory on first use. A manifest
// of BLAKE2b-256 digests detects truncated or stale copies, which are
// re-extracted. Clear removes the extracted files so that a mismatched
// bridge version can be replaced by a fresh extraction.
package resources

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Resource errors.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrChecksumMismatch = errors.New("resource checksum mismatch")
	ErrNoSource         = errors.New("no bundled source for resource")
)

// Manifest maps resource file names to hex-encoded BLAKE2b-256 digests.
// An empty digest disables verification of that file.
type Manifest map[string]string

// Names returns the manifest entries in sorted order.
func (m Manifest) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cache is a resource directory, optionally backed by bundled files.
type Cache struct {
	dir      string
	source   fs.FS
	manifest Manifest
}

// New creates a cache rooted at dir. source may be nil when the tools are
// installed into dir by other means; such a cache is never cleared.
func New(dir string, source fs.FS, manifest Manifest) *Cache {
	if manifest == nil {
		manifest = Manifest{}
	}
	return &Cache{dir: dir, source: source, manifest: manifest}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns the location of name inside the cache directory.
func (c *Cache) Path(name string) (string, error) {
	path := filepath.Join(c.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return path, nil
}

// Resolve returns the cached path of name, or name itself so that the
// process runner looks it up on $PATH.
func (c *Cache) Resolve(name string) string {
	if c == nil || c.dir == "" || name == "" {
		return name
	}
	if path, err := c.Path(name); err == nil {
		return path
	}
	return name
}

// Ensure extracts every manifest entry that is missing or fails
// verification. Without a source, missing or corrupt files are errors.
func (c *Cache) Ensure() error {
	if len(c.manifest) == 0 {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create resource dir: %w", err)
	}

	for _, name := range c.manifest.Names() {
		if err := c.verifyOne(name); err == nil {
			continue
		} else if c.source == nil {
			return err
		}
		if err := c.extract(name); err != nil {
			return err
		}
		if err := c.verifyOne(name); err != nil {
			return fmt.Errorf("after extraction: %w", err)
		}
	}
	return nil
}

// Verify checks every manifest entry and reports all failures.
func (c *Cache) Verify() error {
	var errs []error
	for _, name := range c.manifest.Names() {
		if err := c.verifyOne(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Cache) verifyOne(name string) error {
	path, err := c.Path(name)
	if err != nil {
		return err
	}
	want := strings.ToLower(c.manifest[name])
	if want == "" {
		return nil
	}
	got, err := DigestFile(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: %s: got %s, want %s", ErrChecksumMismatch, name, got, want)
	}
	return nil
}

func (c *Cache) extract(name string) error {
	src, err := c.source.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoSource, name)
		}
		return err
	}
	defer src.Close()

	dst := filepath.Join(c.dir, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	// Write to a temp file and rename so a crash never leaves a truncated tool.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".extract-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("extract %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0755); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Clear removes the extracted manifest files. A cache without a bundled
// source holds externally installed tools and is left untouched.
func (c *Cache) Clear() error {
	if c.source == nil {
		return nil
	}
	var errs []error
	for _, name := range c.manifest.Names() {
		err := os.Remove(filepath.Join(c.dir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Digest returns the hex-encoded BLAKE2b-256 digest of r.
func Digest(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestFile returns the digest of the file at path.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Digest(f)
}

// DigestBytes returns the digest of data.
func DigestBytes(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
