package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"codeberg.org/miketth/greeterkbd/pkg/config"
	"codeberg.org/miketth/greeterkbd/pkg/keyboard"
	"codeberg.org/miketth/greeterkbd/pkg/xkb"
	"github.com/BurntSushi/xgb"
	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	if err != nil {
		log.Fatalf("error: %+v", err)
	}
}

type options struct {
	configPath string
	display    string
	debug      bool
}

// setup builds the logger and loads the config; the --display flag wins over
// the config file.
func (o *options) setup() (*zap.SugaredLogger, config.Config, error) {
	log, err := newLogger(o.debug)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("create logger: %w", err)
	}

	// route xgb's own messages through zap
	xgb.Logger = zap.NewStdLog(log.Desugar().Named("xgb"))

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if o.display != "" {
		cfg.Display = o.display
	}

	return log, cfg, nil
}

func openKeyboard(cfg config.Config, log *zap.SugaredLogger) *keyboard.Model {
	return keyboard.New(func() (keyboard.Service, error) {
		client, err := xkb.Connect(cfg.Display)
		if err != nil {
			return nil, err
		}
		return client, nil
	}, log)
}

func systemdNotifyLoop(ctx context.Context) error {
	// tell systemd that we're ready
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		return fmt.Errorf("notify systemd: %w", err)
	}
	if !supported {
		return nil
	}

	_, _ = daemon.SdNotify(false, "STATUS=Keeping an eye on the lock keys")

	// notify watchdog
	t, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return fmt.Errorf("check watchdog: %w", err)
	}
	// if watchdog is not enabled, we don't need to notify it
	if t == 0 {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-time.After(t / 2):
			_, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			if err != nil {
				return fmt.Errorf("notify watchdog: %w", err)
			}
		}
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	loggerConfig := zap.NewDevelopmentConfig()

	loggerConfig.OutputPaths = []string{"stdout"}
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger.Sugar(), nil
}
