package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ByLCY/vellum/assets"
	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/config"
	"github.com/ByLCY/vellum/host/rodhost"
	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/renderer"
	canvasrenderer "github.com/ByLCY/vellum/renderer/canvas"
	"github.com/ByLCY/vellum/visual"
)

// exportRequest 是一次导出的全部输入，命令行参数已合并进 cfg。
type exportRequest struct {
	Source    string
	Dest      string
	Format    string
	Title     string
	DebugJSON string
}

func (env *appEnv) export(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return errors.New("未指定 SOURCE")
	}
	if cmd.Args().Len() > 2 {
		env.log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	cfg := *env.cfg
	if cmd.IsSet("single-page") {
		cfg.Pagination.SinglePage = cmd.Bool("single-page")
	}
	if cmd.IsSet("max-pages") {
		cfg.Pagination.MaxPages = cmd.Int("max-pages")
	}
	if cmd.IsSet("width") {
		cfg.Page.Width = cmd.Int("width")
	}
	if cmd.IsSet("height") {
		cfg.Page.Height = cmd.Int("height")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out, err := runExport(ctx, &cfg, exportRequest{
		Source:    cmd.Args().Get(0),
		Dest:      cmd.Args().Get(1),
		Format:    cmd.String("to"),
		Title:     cmd.String("title"),
		DebugJSON: cmd.String("debug-json"),
	}, env.log)
	if err != nil {
		return err
	}
	env.log.Info("Export done", zap.String("file", out))
	return nil
}

// runExport 串联取树、提取、编码与写文件，返回输出路径。
func runExport(ctx context.Context, cfg *config.Config, req exportRequest, log *zap.Logger) (out string, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	r, format, err := cfg.Renderer(req.Format, log)
	if err != nil {
		return "", err
	}

	tree, geometry, release, err := openSource(ctx, cfg, req.Source, log)
	if err != nil {
		return "", err
	}
	defer func() {
		err = multierr.Append(err, release())
	}()

	opts := cfg.BuildOptions(log)
	opts.Geometry = geometry
	opts.Assets = assets.New(filepath.Dir(req.Source), log)
	opts.Title = req.Title

	doc, err := layout.Build(ctx, tree, opts)
	if err != nil {
		return "", fmt.Errorf("布局提取失败: %w", err)
	}

	if req.DebugJSON != "" {
		if err := os.MkdirAll(filepath.Dir(req.DebugJSON), 0o755); err != nil {
			return "", fmt.Errorf("创建调试目录失败: %w", err)
		}
		if err := layout.WriteDebugJSON(doc, req.DebugJSON); err != nil {
			return "", fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}

	data, err := r.Render(doc)
	if err != nil {
		return "", fmt.Errorf("渲染 %s 失败: %w", format, err)
	}
	if format == renderer.FormatPDF {
		rep, err := canvasrenderer.Verify(data)
		if err != nil {
			return "", fmt.Errorf("生成的 PDF 无效: %w", err)
		}
		log.Debug("PDF verified", zap.Int("pages", rep.Pages), zap.String("title", rep.Title))
	}

	out, err = outputPath(req.Dest, cfg.Output.NameTemplate, binding.Names{
		Title:  doc.Title,
		Pages:  len(doc.Pages),
		Format: string(format),
	})
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("写入输出文件失败: %w", err)
	}
	log.Info("Document exported",
		zap.String("title", doc.Title),
		zap.Int("pages", len(doc.Pages)),
		zap.Bool("fallback", doc.Diagnostics.FallbackUsed),
		zap.Int("warnings", len(doc.Diagnostics.Warnings)))
	return out, nil
}

// openSource returns the rendered tree and its text geometry. release must be
// called once the layout has been built.
func openSource(ctx context.Context, cfg *config.Config, source string, log *zap.Logger) (*visual.Tree, visual.Geometry, func() error, error) {
	nop := func() error { return nil }
	switch strings.ToLower(filepath.Ext(source)) {
	case ".json":
		f, err := os.Open(source)
		if err != nil {
			return nil, nil, nop, fmt.Errorf("无法打开快照 %s: %w", source, err)
		}
		defer f.Close()
		snap, err := visual.Decode(f)
		if err != nil {
			return nil, nil, nop, err
		}
		return &snap.Tree, snap, nop, nil

	case ".html", ".htm":
		markup, err := os.ReadFile(source)
		if err != nil {
			return nil, nil, nop, fmt.Errorf("无法读取 %s: %w", source, err)
		}
		base, err := baseURL(source)
		if err != nil {
			return nil, nil, nop, err
		}
		host, err := rodhost.New(ctx, cfg.HostOptions(log))
		if err != nil {
			return nil, nil, nop, err
		}
		pass, err := host.Render(ctx, string(markup), base)
		if err != nil {
			return nil, nil, nop, multierr.Append(err, host.Close())
		}
		if len(pass.Late) > 0 {
			log.Warn("Document did not settle in time", zap.Strings("waits", pass.Late))
		}
		release := func() error {
			return multierr.Append(pass.Close(), host.Close())
		}
		return pass.Tree(), pass, release, nil
	}
	return nil, nil, nop, fmt.Errorf("不支持的输入文件 %q, 需要 .html 或 .json", source)
}

func baseURL(source string) (string, error) {
	dir, err := filepath.Abs(filepath.Dir(source))
	if err != nil {
		return "", fmt.Errorf("解析 %s 路径失败: %w", source, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(dir) + "/"}
	return u.String(), nil
}

// outputPath treats an existing directory, a trailing separator or an empty
// dest as a directory and names the file from the template.
func outputPath(dest, tmpl string, names binding.Names) (string, error) {
	if dest == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("无法获取当前目录: %w", err)
		}
		dest = wd + string(os.PathSeparator)
	}
	if strings.HasSuffix(dest, string(os.PathSeparator)) || strings.HasSuffix(dest, "/") {
		return filepath.Join(dest, binding.FileName(tmpl, names)), nil
	}
	if fi, err := os.Stat(dest); err == nil && fi.IsDir() {
		return filepath.Join(dest, binding.FileName(tmpl, names)), nil
	}
	return dest, nil
}
