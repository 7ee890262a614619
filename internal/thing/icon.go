package thing

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Directory and file permission modes for uploaded assets.
const (
	assetDirPermissions  = 0750
	assetFilePermissions = 0640
)

// iconExtensions maps the allowed icon MIME types to file extensions.
// Any MIME type outside this set is rejected before any state changes.
var iconExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/svg+xml": ".svg",
}

// AssetStore manages the binary assets attached to things.
//
// Implementations must guarantee that WriteNew either returns a
// reference to a fully-written asset or no asset at all: a partial file
// left behind on failure is the implementation's to clean up.
type AssetStore interface {
	// WriteNew allocates a new uniquely-named asset with the given
	// extension, writes data to it, and returns its public-facing
	// reference.
	WriteNew(ext string, data []byte) (string, error)

	// Delete removes the asset behind a previously returned reference.
	Delete(ref string) error
}

// DiskAssetStore stores assets as files in a writable uploads directory
// and maps them to public hrefs under a base path.
type DiskAssetStore struct {
	dir      string
	baseHref string
}

// NewDiskAssetStore creates a disk-backed asset store.
//
// dir is the writable directory for uploaded files; baseHref is the
// public URL path prefix under which they are served (e.g. "/uploads").
func NewDiskAssetStore(dir, baseHref string) *DiskAssetStore {
	return &DiskAssetStore{
		dir:      dir,
		baseHref: strings.TrimSuffix(baseHref, "/"),
	}
}

// WriteNew writes data to a new uniquely-named file and returns its
// public href. The file is kept; it is not a scratch temp file.
//
// On a write failure the partially-created file is removed best-effort
// and an error is returned, so a returned href always resolves to a
// complete file on disk.
func (s *DiskAssetStore) WriteNew(ext string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, assetDirPermissions); err != nil {
		return "", fmt.Errorf("creating uploads directory: %w", err)
	}

	name := uuid.NewString() + ext
	fullPath := filepath.Join(s.dir, name)

	if err := os.WriteFile(fullPath, data, assetFilePermissions); err != nil {
		// Best-effort cleanup of a partial write
		_ = os.Remove(fullPath) //nolint:errcheck // Nothing more to do on cleanup failure
		return "", fmt.Errorf("writing asset file: %w", err)
	}

	return s.baseHref + "/" + name, nil
}

// Delete removes the file behind a public href returned by WriteNew.
// References outside the store's base path are rejected.
func (s *DiskAssetStore) Delete(ref string) error {
	name := path.Base(ref)
	if !strings.HasPrefix(ref, s.baseHref+"/") || name == "." || name == "/" {
		return fmt.Errorf("asset reference %q is not managed by this store", ref)
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("deleting asset file: %w", err)
	}
	return nil
}
