// Package assets resolves image sources named by the rendered document:
// data: URIs and files under a base directory. Remote URLs are refused.
package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ByLCY/vellum/layout"
)

// DefaultMaxBytes 限制单个资源的大小。
const DefaultMaxBytes = 32 << 20

var (
	ErrRemote   = errors.New("不读取远程资源")
	ErrTooLarge = errors.New("资源超出大小限制")
	ErrOutside  = errors.New("资源路径超出基准目录")
)

// Loader implements layout.AssetLoader.
type Loader struct {
	BaseDir  string
	MaxBytes int64
	log      *zap.Logger
}

var _ layout.AssetLoader = (*Loader)(nil)

// New returns a loader rooted at baseDir.
func New(baseDir string, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{BaseDir: baseDir, MaxBytes: DefaultMaxBytes, log: log.Named("assets")}
}

// Fetch returns the raw bytes behind src.
func (l *Loader) Fetch(ctx context.Context, src string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("资源地址为空")
	}
	if strings.HasPrefix(strings.ToLower(src), "data:") {
		return l.decodeData(src)
	}

	u, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("解析资源地址 %q 失败: %w", src, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "", "file":
	case "http", "https":
		l.log.Debug("Refusing remote asset", zap.String("src", src))
		return nil, fmt.Errorf("%s: %w", src, ErrRemote)
	default:
		return nil, fmt.Errorf("不支持的资源协议 %q", u.Scheme)
	}
	return l.readFile(u.Path)
}

func (l *Loader) readFile(p string) ([]byte, error) {
	if p == "" {
		return nil, errors.New("资源路径为空")
	}
	p, err := l.resolve(filepath.FromSlash(p))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("打开资源失败: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, l.limit()+1))
	if err != nil {
		return nil, fmt.Errorf("读取资源 %s 失败: %w", p, err)
	}
	if int64(len(data)) > l.limit() {
		return nil, fmt.Errorf("%s: %w", p, ErrTooLarge)
	}
	l.log.Debug("Asset loaded", zap.String("path", p), zap.Int("bytes", len(data)))
	return data, nil
}

// resolve 将路径规范为绝对路径；设置了 BaseDir 时，无论相对还是绝对路径
// (包括宿主给出的 file:// 地址) 都必须落在 BaseDir 之内。
func (l *Loader) resolve(p string) (string, error) {
	if l.BaseDir == "" {
		if !filepath.IsAbs(p) {
			return "", fmt.Errorf("相对资源路径 %q 缺少基准目录", p)
		}
		return filepath.Clean(p), nil
	}
	base, err := filepath.Abs(l.BaseDir)
	if err != nil {
		return "", fmt.Errorf("解析基准目录失败: %w", err)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)
	// symlinks are followed on both sides so a link cannot lead out of base
	if real, err := filepath.EvalSymlinks(base); err == nil {
		base = real
	}
	if real, err := filepath.EvalSymlinks(p); err == nil {
		p = real
	} else if dir, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		p = filepath.Join(dir, filepath.Base(p))
	}
	if !within(base, p) {
		return "", fmt.Errorf("%s: %w", p, ErrOutside)
	}
	return p, nil
}

func within(base, p string) bool {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// decodeData 解析 data:[<mediatype>][;base64],<data>。
func (l *Loader) decodeData(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(src[len("data:"):], ",")
	if !ok {
		return nil, errors.New("data URI 格式错误")
	}
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		payload = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
	} else {
		var s string
		s, err = url.PathUnescape(payload)
		data = []byte(s)
	}
	if err != nil {
		return nil, fmt.Errorf("解码 data URI 失败: %w", err)
	}
	if int64(len(data)) > l.limit() {
		return nil, ErrTooLarge
	}
	return data, nil
}

func (l *Loader) limit() int64 {
	if l.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return l.MaxBytes
}
