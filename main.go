package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	Md "github.com/maroda/tempora/display"
	Me "github.com/maroda/tempora/engine"
	Mo "github.com/maroda/tempora/obvy"
	Mp "github.com/maroda/tempora/plugin"
)

func hostAddr() string {
	addr := Me.FillEnvVar("TEMPORA_ADDR")
	if addr == "ENOENT" {
		return ":8090"
	}
	return addr
}

func outputOptions() Mp.OutputOptions {
	path := Me.FillEnvVar("TEMPORA_BADGER_PATH")
	if path == "ENOENT" {
		path = "./tempora-collisions"
	}
	return Mp.OutputOptions{
		BadgerPath: path,
		BatchSize:  Me.FillEnvVarInt("TEMPORA_BADGER_BATCH", 32),
		MIDIPort:   Me.FillEnvVarInt("TEMPORA_MIDI_PORT", 0),
		MIDIRoot:   uint8(Me.FillEnvVarInt("TEMPORA_MIDI_ROOT", int(Mp.DefaultRoot))),
	}
}

// reloadOnHUP rereads the glyphs from the config file on SIGHUP
func reloadOnHUP(ctx context.Context, v *Md.View, filename string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			if err := v.ReloadConfigFile(filename); err != nil {
				slog.Error("Reload on SIGHUP failed", slog.Any("Error", err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func run() error {
	configFile := Me.FillEnvVar("TEMPORA_CONFIG")
	cfg, glyphs, err := Me.ResolveConfig(configFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	engine, err := Me.NewEngine(cfg)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	accepted, rejected := engine.SetGlyphs(glyphs)
	slog.Info("Tempora initializing",
		slog.String("user", Me.FillEnvVar("USER")),
		slog.String("mode", string(cfg.DetectionMode)),
		slog.String("scale", cfg.InitialScale),
		slog.Int("glyphs", accepted),
		slog.Int("rejected", rejected))

	shutdownTracing, err := Mo.InitTracing(Me.FillEnvVar("TEMPORA_OTEL"))
	if err != nil {
		slog.Error("Tracing disabled", slog.Any("Error", err))
	} else {
		defer shutdownTracing()
	}

	view := Md.NewView(engine, nil, nil)
	if err := view.InitOutputs(Me.FillEnvVar("TEMPORA_OUTPUTS"), outputOptions()); err != nil {
		slog.Warn("Some outputs did not start", slog.Any("Error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if configFile != "ENOENT" {
		go reloadOnHUP(ctx, view, configFile)
	}

	interval := time.Duration(Me.FillEnvVarInt("TEMPORA_TICK_MS", 16)) * time.Millisecond
	if Me.FillEnvVarBool("TEMPORA_HEADLESS") {
		return Md.StartWebNoTUI(ctx, view, hostAddr(), interval)
	}
	return Md.StartTimelineView(ctx, view, hostAddr(), interval)
}

func main() {
	if err := run(); err != nil {
		slog.Error("Problem running Tempora", slog.Any("Error", err))
		os.Exit(1)
	}
}
