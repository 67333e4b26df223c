package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"codeberg.org/miketth/greeterkbd/pkg/keyboard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errDisabled = errors.New("keyboard extension unavailable")

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "greeterkbd",
		Short:         "Lock-key and layout state for the login greeter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.toml (default: XDG config dirs)")
	flags.StringVar(&opts.display, "display", "", "X display to connect to (default: $DISPLAY)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newStatusCmd(opts),
		newSetCmd(opts),
	)

	return rootCmd
}

func newRunCmd(opts *options) *cobra.Command {
	var numlock string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply the numlock policy and keep the keyboard state until stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cfg, err := opts.setup()
			if err != nil {
				return err
			}

			policy := cfg.NumlockPolicy()
			if cmd.Flags().Changed("numlock") {
				policy = keyboard.ParseNumlockPolicy(numlock)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			kbd := openKeyboard(cfg, log)
			defer func() {
				if err := kbd.Close(); err != nil {
					log.Warnw("close keyboard", "error", err)
				}
			}()

			kbd.OnChange(func(p keyboard.Property) {
				log.Infow("keyboard state changed",
					"property", p.String(),
					"numlock", kbd.NumLockState(),
					"capslock", kbd.CapsLockState(),
					"layout", kbd.CurrentLayout(),
				)
			})
			kbd.ApplyNumlockPolicy(policy)

			log.Infow("started greeterkbd",
				"enabled", kbd.Enabled(),
				"policy", policy.String(),
				"numlock", kbd.NumLockState(),
				"capslock", kbd.CapsLockState(),
				"layouts", len(kbd.Layouts()),
				"layout", kbd.CurrentLayout(),
			)

			errChan := make(chan error, 1)
			var wg sync.WaitGroup
			wg.Add(1)

			go func() {
				defer wg.Done()
				err := systemdNotifyLoop(ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					errChan <- fmt.Errorf("systemd notify: %w", err)
				}
			}()

			select {
			case <-ctx.Done():
				log.Info("shutting down")
				wg.Wait()
				return nil
			case err := <-errChan:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&numlock, "numlock", "none", "numlock on start: on, off or none (default: config file)")

	return cmd
}

type layoutView struct {
	ShortName string `yaml:"short"`
	LongName  string `yaml:"long"`
}

type statusView struct {
	Enabled       bool         `yaml:"enabled"`
	NumLock       bool         `yaml:"numlock"`
	CapsLock      bool         `yaml:"capslock"`
	CurrentLayout int          `yaml:"current_layout"`
	Layouts       []layoutView `yaml:"layouts"`
}

func writeStatus(w io.Writer, kbd *keyboard.Model) error {
	view := statusView{
		Enabled:       kbd.Enabled(),
		NumLock:       kbd.NumLockState(),
		CapsLock:      kbd.CapsLockState(),
		CurrentLayout: kbd.CurrentLayout(),
	}
	for _, l := range kbd.Layouts() {
		view.Layouts = append(view.Layouts, layoutView{ShortName: l.ShortName, LongName: l.LongName})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return enc.Close()
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print lock-key and layout state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cfg, err := opts.setup()
			if err != nil {
				return err
			}

			kbd := openKeyboard(cfg, log)
			defer kbd.Close()

			return writeStatus(cmd.OutOrStdout(), kbd)
		},
	}
}

func newSetCmd(opts *options) *cobra.Command {
	var (
		numlock  string
		capslock string
		layout   int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change lock keys or the active layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var numState, capsState bool
			var err error
			if numlock != "" {
				if numState, err = parseSwitch(numlock); err != nil {
					return fmt.Errorf("--numlock: %w", err)
				}
			}
			if capslock != "" {
				if capsState, err = parseSwitch(capslock); err != nil {
					return fmt.Errorf("--capslock: %w", err)
				}
			}

			log, cfg, err := opts.setup()
			if err != nil {
				return err
			}

			kbd := openKeyboard(cfg, log)
			defer kbd.Close()

			if !kbd.Enabled() {
				return errDisabled
			}

			if numlock != "" {
				kbd.SetNumLockState(numState)
			}
			if capslock != "" {
				kbd.SetCapsLockState(capsState)
			}
			if layout >= 0 {
				if layout >= len(kbd.Layouts()) {
					return fmt.Errorf("layout %d out of range (%d layouts)", layout, len(kbd.Layouts()))
				}
				kbd.SetCurrentLayout(layout)
			}

			return writeStatus(cmd.OutOrStdout(), kbd)
		},
	}

	cmd.Flags().StringVar(&numlock, "numlock", "", "on or off")
	cmd.Flags().StringVar(&capslock, "capslock", "", "on or off")
	cmd.Flags().IntVar(&layout, "layout", -1, "index of the layout to activate")

	return cmd
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("want on or off, got %q", s)
}
