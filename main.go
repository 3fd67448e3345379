package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ByLCY/vellum/config"
)

// appEnv 保存命令执行期间共享的配置与日志。
type appEnv struct {
	cfg        *config.Config
	configFile string
	log        *zap.Logger
}

func (env *appEnv) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	env.configFile = cmd.String("config")
	if env.cfg, err = config.Load(env.configFile); err != nil {
		return ctx, fmt.Errorf("加载配置失败: %w", err)
	}
	if cmd.Bool("debug") {
		env.cfg.Logging.ConsoleLogger.Level = "debug"
	}
	if env.log, err = env.cfg.Logging.Prepare(); err != nil {
		return ctx, fmt.Errorf("初始化日志失败: %w", err)
	}
	env.log.Debug("Program started", zap.Strings("args", os.Args), zap.String("runtime", runtime.Version()))
	if len(env.configFile) == 0 {
		env.log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func (env *appEnv) after(_ context.Context, _ *cli.Command) error {
	if env.log == nil {
		return nil
	}
	env.log.Debug("Program ended")
	// stdout/stderr do not support fsync on every platform
	_ = env.log.Sync()
	return nil
}

// errors from actions are logged here, main only prints what happened before
// the logger existed
var errWasHandled bool

func (env *appEnv) exitErrHandler(_ context.Context, _ *cli.Command, err error) {
	if env.log != nil {
		env.log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func newApp(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:            config.AppName,
		Usage:           "exports rendered HTML layouts to PDF and PPTX",
		HideHelpCommand: true,
		Before:          env.before,
		After:           env.after,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  env.exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log debug messages to console"},
		},
		Commands: []*cli.Command{
			{
				Name:         "export",
				Usage:        "Extracts the layout of a document and writes it as PDF or PPTX",
				OnUsageError: usageErrorHandler,
				Action:       env.export,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Usage: "output `FORMAT` (pdf, pptx), defaults to configuration"},
					&cli.BoolFlag{Name: "single-page", Usage: "scale the whole document onto one page"},
					&cli.IntFlag{Name: "max-pages", Usage: "stop after `N` pages (0 - unlimited)"},
					&cli.IntFlag{Name: "width", Usage: "virtual page width, `PX`"},
					&cli.IntFlag{Name: "height", Usage: "virtual page height, `PX`"},
					&cli.StringFlag{Name: "title", Usage: "document `TITLE`, overrides the one found in the source"},
					&cli.StringFlag{Name: "debug-json", Usage: "also write the extracted layout to `FILE` as JSON"},
				},
				ArgsUsage: "SOURCE [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    .html/.htm file rendered in headless Chrome, or
    .json snapshot of an already rendered tree

DESTINATION:
    output file, or a directory where the name is derived from output.name_template
    if absent - current working directory
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "dumpconfig",
				Usage:        "Dumps either default or actual configuration (YAML)",
				OnUsageError: usageErrorHandler,
				Action:       env.dumpConfig,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				ArgsUsage: "DESTINATION",
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	env := &appEnv{}
	var err error
	// os.Exit skips deferred calls, keep this the only one
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "程序异常结束: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = newApp(env).Run(ctx, os.Args)
}

func (env *appEnv) dumpConfig(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() > 1 {
		env.log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	fname := cmd.Args().Get(0)

	var (
		data  []byte
		err   error
		state string
	)
	if cmd.Bool("default") {
		state = "default"
		data = config.Default()
	} else {
		state = "actual"
		if data, err = config.Dump(env.cfg); err != nil {
			return fmt.Errorf("获取配置失败: %w", err)
		}
	}

	if len(fname) == 0 {
		_, err = os.Stdout.Write(data)
	} else {
		env.log.Info("Writing configuration", zap.String("state", state), zap.String("file", fname))
		err = os.WriteFile(fname, data, 0644)
	}
	if err != nil {
		return fmt.Errorf("写入配置失败: %w", err)
	}
	return nil
}
