package thing

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// MockAssetStore is a test implementation of AssetStore.
type MockAssetStore struct {
	mu       sync.Mutex
	writes   int
	deletes  []string
	writeErr error
	delErr   error
}

func (m *MockAssetStore) WriteNew(ext string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return "", m.writeErr
	}
	m.writes++
	return "/uploads/asset-" + string(rune('0'+m.writes)) + ext, nil
}

func (m *MockAssetStore) Delete(ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.delErr != nil {
		return m.delErr
	}
	m.deletes = append(m.deletes, ref)
	return nil
}

func (m *MockAssetStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.deletes))
	copy(out, m.deletes)
	return out
}

var pngB64 = base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})

func TestSetIcon_RejectsBadMIME(t *testing.T) {
	assets := &MockAssetStore{}
	th := newTestThing(t, Description{"name": "x", "iconHref": "/uploads/prior.png"}, Options{Assets: assets})

	err := th.SetIcon(context.Background(), pngB64, "text/plain", false)
	if !errors.Is(err, ErrInvalidMIME) {
		t.Fatalf("SetIcon() error = %v, want ErrInvalidMIME", err)
	}
	if th.IconRef() != "/uploads/prior.png" {
		t.Errorf("prior icon ref changed to %q", th.IconRef())
	}
	if len(assets.Deleted()) != 0 {
		t.Error("rejected MIME must not touch the prior asset")
	}
}

func TestSetIcon_RejectsEmptyAndBadBase64(t *testing.T) {
	th := newTestThing(t, Description{"name": "x"}, Options{Assets: &MockAssetStore{}})

	if err := th.SetIcon(context.Background(), "", "image/png", false); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty data error = %v, want ErrInvalidArgument", err)
	}
	if err := th.SetIcon(context.Background(), "not base64!!", "image/png", false); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad base64 error = %v, want ErrInvalidArgument", err)
	}
}

func TestSetIcon_NoAssetStore(t *testing.T) {
	th := newTestThing(t, Description{"name": "x"}, Options{})

	if err := th.SetIcon(context.Background(), pngB64, "image/png", false); !errors.Is(err, ErrNoAssetStore) {
		t.Errorf("SetIcon() error = %v, want ErrNoAssetStore", err)
	}
}

func TestSetIcon_ReplacesPriorAsset(t *testing.T) {
	assets := &MockAssetStore{}
	store := &MockStore{}
	th := newTestThing(t, Description{"name": "x", "iconHref": "/uploads/old.png"}, Options{
		Assets: assets,
		Store:  store,
	})

	if err := th.SetIcon(context.Background(), pngB64, "image/jpeg", true); err != nil {
		t.Fatalf("SetIcon() error = %v", err)
	}

	if got := assets.Deleted(); len(got) != 1 || got[0] != "/uploads/old.png" {
		t.Errorf("deleted = %v, want the prior ref", got)
	}
	if ref := th.IconRef(); !strings.HasSuffix(ref, ".jpg") {
		t.Errorf("new ref = %q, want a .jpg reference", ref)
	}
	if store.SaveCount() != 1 {
		t.Errorf("persist=true expected 1 save, got %d", store.SaveCount())
	}
	if store.LastSave()["iconHref"] != th.IconRef() {
		t.Errorf("persisted iconHref = %v, want %q", store.LastSave()["iconHref"], th.IconRef())
	}
}

func TestSetIcon_NoPersistWhenFlagFalse(t *testing.T) {
	store := &MockStore{}
	th := newTestThing(t, Description{"name": "x"}, Options{Assets: &MockAssetStore{}, Store: store})

	if err := th.SetIcon(context.Background(), pngB64, "image/png", false); err != nil {
		t.Fatalf("SetIcon() error = %v", err)
	}
	if store.SaveCount() != 0 {
		t.Errorf("persist=false expected 0 saves, got %d", store.SaveCount())
	}
}

func TestSetIcon_WriteFailureLeavesRefUnset(t *testing.T) {
	assets := &MockAssetStore{writeErr: errors.New("disk full")}
	th := newTestThing(t, Description{"name": "x", "iconHref": "/uploads/old.png"}, Options{Assets: assets})

	err := th.SetIcon(context.Background(), pngB64, "image/png", false)
	if !errors.Is(err, ErrAssetWrite) {
		t.Fatalf("SetIcon() error = %v, want ErrAssetWrite", err)
	}
	if th.IconRef() != "" {
		t.Errorf("ref after failed write = %q, want unset", th.IconRef())
	}
}

func TestSetIcon_OldDeleteFailureStillReplaces(t *testing.T) {
	assets := &MockAssetStore{delErr: errors.New("permission denied")}
	th := newTestThing(t, Description{"name": "x", "iconHref": "/uploads/old.png"}, Options{Assets: assets})

	if err := th.SetIcon(context.Background(), pngB64, "image/png", false); err != nil {
		t.Fatalf("SetIcon() error = %v", err)
	}
	if ref := th.IconRef(); ref == "" || ref == "/uploads/old.png" {
		t.Errorf("ref = %q, want a fresh reference despite the delete failure", ref)
	}
}

func TestDiskAssetStore_WriteAndDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskAssetStore(dir, "/uploads/")

	ref, err := store.WriteNew(".png", []byte("payload"))
	if err != nil {
		t.Fatalf("WriteNew() error = %v", err)
	}
	if !strings.HasPrefix(ref, "/uploads/") || !strings.HasSuffix(ref, ".png") {
		t.Errorf("ref = %q", ref)
	}

	name := strings.TrimPrefix(ref, "/uploads/")
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading written asset: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("asset content = %q", data)
	}

	if err := store.Delete(ref); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
		t.Error("asset file still exists after Delete")
	}
}

func TestDiskAssetStore_DistinctNames(t *testing.T) {
	store := NewDiskAssetStore(t.TempDir(), "/uploads")

	ref1, err := store.WriteNew(".svg", []byte("a"))
	if err != nil {
		t.Fatalf("WriteNew() error = %v", err)
	}
	ref2, err := store.WriteNew(".svg", []byte("b"))
	if err != nil {
		t.Fatalf("WriteNew() error = %v", err)
	}
	if ref1 == ref2 {
		t.Errorf("two writes produced the same reference %q", ref1)
	}
}

func TestDiskAssetStore_DeleteRejectsForeignRefs(t *testing.T) {
	store := NewDiskAssetStore(t.TempDir(), "/uploads")

	for _, ref := range []string{"/etc/passwd", "unrelated.png", "/uploads/../escape.png"} {
		if err := store.Delete(ref); err == nil {
			t.Errorf("Delete(%q) succeeded, want rejection", ref)
		}
	}
}

func TestDiskAssetStore_WithRealThing(t *testing.T) {
	dir := t.TempDir()
	assets := NewDiskAssetStore(dir, "/uploads")
	th := newTestThing(t, Description{"name": "x"}, Options{Assets: assets})

	if err := th.SetIcon(context.Background(), pngB64, "image/png", false); err != nil {
		t.Fatalf("first SetIcon() error = %v", err)
	}
	first := th.IconRef()

	jpg := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF})
	if err := th.SetIcon(context.Background(), jpg, "image/jpeg", false); err != nil {
		t.Fatalf("second SetIcon() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading uploads dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("uploads dir has %d files after replace, want 1", len(entries))
	}
	if "/uploads/"+entries[0].Name() == first {
		t.Error("old icon file survived the replace")
	}
}
