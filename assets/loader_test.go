package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchDataURI(t *testing.T) {
	l := New("", nil)
	ctx := context.Background()
	raw := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	got, err := l.Fetch(ctx, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(raw))
	if err != nil || string(got) != string(raw) {
		t.Fatalf("base64: %v %v", got, err)
	}
	got, err = l.Fetch(ctx, `data:image/svg+xml,%3Csvg%20xmlns%3D%22a%22%2F%3E`)
	if err != nil || string(got) != `<svg xmlns="a"/>` {
		t.Fatalf("percent-encoded: %q %v", got, err)
	}
	if _, err := l.Fetch(ctx, "data:image/png;base64"); err == nil {
		t.Fatalf("missing comma should fail")
	}
	if _, err := l.Fetch(ctx, "data:;base64,!!!"); err == nil {
		t.Fatalf("bad base64 should fail")
	}
}

func TestFetchFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "img"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "img", "logo.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := New(dir, nil)
	ctx := context.Background()
	for _, src := range []string{"img/logo.png", "./img/logo.png", "file://" + filepath.ToSlash(path), path} {
		got, err := l.Fetch(ctx, src)
		if err != nil || string(got) != "png-bytes" {
			t.Fatalf("%s: %q %v", src, got, err)
		}
	}
	if _, err := l.Fetch(ctx, "../secret.png"); !errors.Is(err, ErrOutside) {
		t.Fatalf("escape should be refused, got %v", err)
	}
	if _, err := l.Fetch(ctx, "img/missing.png"); err == nil {
		t.Fatalf("missing file should fail")
	}
}

func TestFetchRefusesRemote(t *testing.T) {
	l := New(t.TempDir(), nil)
	for _, src := range []string{"https://example.com/a.png", "HTTP://example.com/b.png"} {
		if _, err := l.Fetch(context.Background(), src); !errors.Is(err, ErrRemote) {
			t.Fatalf("%s: expected ErrRemote, got %v", src, err)
		}
	}
	if _, err := l.Fetch(context.Background(), "ftp://example.com/c.png"); err == nil {
		t.Fatalf("unknown schemes should fail")
	}
}

func TestFetchSizeLimit(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "big.bin"), make([]byte, 64), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := New(dir, nil)
	l.MaxBytes = 16
	if _, err := l.Fetch(context.Background(), "big.bin"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := l.Fetch(context.Background(), "data:,0123456789abcdefXYZ"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for data uri, got %v", err)
	}
}

func TestFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New("", nil).Fetch(ctx, "data:,x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

// TestFetchAbsoluteOutsideBase 宿主给出的 file:// 地址和绝对路径同样受基准目录约束。
func TestFetchAbsoluteOutsideBase(t *testing.T) {
	root := t.TempDir()
	doc := filepath.Join(root, "doc")
	if err := os.MkdirAll(doc, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	secret := filepath.Join(root, "secret.txt")
	if err := os.WriteFile(secret, []byte("outside"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := New(doc, nil)
	ctx := context.Background()
	for _, src := range []string{
		"file://" + filepath.ToSlash(secret),
		secret,
		"file://" + filepath.ToSlash(filepath.Join(doc, "..", "secret.txt")),
	} {
		if got, err := l.Fetch(ctx, src); !errors.Is(err, ErrOutside) {
			t.Fatalf("%s: expected ErrOutside, got %q %v", src, got, err)
		}
	}

	link := filepath.Join(doc, "link.txt")
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if _, err := l.Fetch(ctx, "link.txt"); !errors.Is(err, ErrOutside) {
		t.Fatalf("symlink out of base should be refused, got %v", err)
	}
}

func TestFetchAbsoluteWithoutBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := New("", nil)
	if got, err := l.Fetch(context.Background(), path); err != nil || string(got) != "abc" {
		t.Fatalf("absolute without base: %q %v", got, err)
	}
	if _, err := l.Fetch(context.Background(), "a.bin"); err == nil {
		t.Fatalf("relative without base should fail")
	}
}
