package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"manga_reader/lang"
	"manga_reader/library"
	"manga_reader/ui"
	"manga_reader/utils"
)

const (
	appName    = "manga_reader"
	appVersion = "0.2.0"
)

// program wide state, valid between Before and After
var env struct {
	log        *zap.Logger
	restoreLog func()
	started    time.Time
}

func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	env.started = time.Now()

	configFile := cmd.String("config")
	if configFile == "" {
		configFile = utils.DefaultConfigPath()
	}
	if err := utils.LoadConfig(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		utils.AppConfig.Log.Level = "debug"
	}

	log, err := utils.NewLogger(utils.AppConfig.Log)
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.log = log
	env.restoreLog = zap.RedirectStdLog(log)

	if loc, ok := lang.ParseLocale(utils.AppConfig.UI.Language); ok {
		lang.SetLocale(loc)
	} else {
		log.Warn("Unknown language, using default", zap.String("language", utils.AppConfig.UI.Language))
	}

	log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", appVersion), zap.String("runtime", runtime.Version()), zap.String("config", configFile))
	return ctx, nil
}

func destroyAppContext(_ context.Context, cmd *cli.Command) (err error) {
	if env.log == nil {
		return nil
	}
	env.log.Debug("Program ended", zap.Duration("elapsed", time.Since(env.started)), zap.Strings("parsed args", cmd.Args().Slice()))

	if env.restoreLog != nil {
		env.restoreLog()
	}
	// stderr is a tty, zap reports "inappropriate ioctl" when syncing it
	if er := env.log.Sync(); er != nil && !isSyncNoise(er) {
		err = multierr.Append(err, fmt.Errorf("unable to flush log: %w", er))
	}
	return
}

func isSyncNoise(err error) bool {
	for _, e := range multierr.Errors(err) {
		if e != syscall.ENOTTY && e != syscall.EINVAL {
			return false
		}
	}
	return true
}

// errors from Action are logged here, before the log is closed
func exitErrHandler(_ context.Context, _ *cli.Command, err error) {
	if env.log != nil {
		env.log.Error("Program ended with error", zap.Error(err))
	}
}

// parseStart turns the optional positional arguments into a launch target.
func parseStart(cmd *cli.Command) (*ui.StartAt, error) {
	switch cmd.NArg() {
	case 0:
		return nil, nil
	case 1:
		return nil, fmt.Errorf("missing manga id after source %q", cmd.Args().Get(0))
	}

	start := &ui.StartAt{Source: cmd.Args().Get(0)}
	var err error
	if start.MangaID, err = strconv.Atoi(cmd.Args().Get(1)); err != nil {
		return nil, fmt.Errorf("bad manga id %q: %w", cmd.Args().Get(1), err)
	}
	if cmd.NArg() > 2 {
		if start.ChapterID, err = strconv.Atoi(cmd.Args().Get(2)); err != nil {
			return nil, fmt.Errorf("bad chapter id %q: %w", cmd.Args().Get(2), err)
		}
	}
	return start, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("dumpconfig") {
		data, err := utils.DumpConfig(utils.AppConfig)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	start, err := parseStart(cmd)
	if err != nil {
		return err
	}

	registry := library.NewRegistry(utils.AppConfig, env.log)
	env.log.Info("Sources ready", zap.Strings("sources", registry.Names()))
	if start != nil {
		if _, err := registry.Get(start.Source); err != nil {
			return err
		}
	}
	return ui.RunApp(ctx, registry, env.log, start)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            appName,
		Usage:           "terminal reader for webtoons and manga",
		Version:         appVersion + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (TOML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log at debug level"},
			&cli.BoolFlag{Name: "dumpconfig", Usage: "print the active configuration and exit"},
		},
		ArgsUsage: "[SOURCE MANGA [CHAPTER]]",
		Action:    run,
	}

	var err error
	defer func() {
		stop()
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n*** ERROR ***: %v\n", err)
			os.Exit(1)
		}
	}()

	err = app.Run(ctx, os.Args)
}
