package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loomwork/loom/component"
	"github.com/loomwork/loom/config"
	"github.com/loomwork/loom/observability"
	"github.com/loomwork/loom/server"
	"github.com/loomwork/loom/tool"
)

// ServeCmd loads a team definition and runs it behind an HTTP control
// surface until interrupted.
type ServeCmd struct {
	Config    string `short:"c" required:"" help:"Path to the team definition YAML file."`
	Addr      string `default:":8080" help:"HTTP listen address."`
	LLMScript string `help:"Path to a YAML file scripting each named LLM provider's responses. Unscripted providers fall back to a canned response."`
	Metrics   bool   `help:"Expose Prometheus metrics."`
	Tracing   bool   `help:"Emit OpenTelemetry traces as stdout JSON."`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.LoadConfig(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := config.LoadEnvFiles(); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}

	var script llmScript
	if c.LLMScript != "" {
		script, err = loadLLMScript(c.LLMScript)
		if err != nil {
			return err
		}
	}
	providers := buildProviders(distinctProviderNames(cfg), script)

	metrics, err := observability.NewMetrics(&observability.MetricsConfig{Enabled: c.Metrics})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if c.Tracing {
		if _, err := observability.InitGlobalTracer(ctx, observability.TracingConfig{Enabled: true}, os.Stderr); err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
	}

	mgr := component.NewManager(providers, tool.NewRegistry(tool.Calculator{}), nil).WithMetrics(metrics)
	tm, _, _, err := mgr.BuildTeam(cfg)
	if err != nil {
		return fmt.Errorf("build team: %w", err)
	}
	defer tm.Close()
	tm.SetLogLevel(activeLogLevel)

	if env := config.EnvMap(distinctEnvKeys(cfg)); len(env) > 0 {
		if err := tm.SetEnv(env); err != nil {
			return fmt.Errorf("apply env: %w", err)
		}
	}

	srv := server.New(tm, server.Config{Addr: c.Addr, Metrics: metrics})
	errCh := srv.Start()
	slog.Info("loom: serving", "addr", c.Addr, "config", c.Config)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case sig := <-sigCh:
		slog.Info("loom: shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func distinctProviderNames(cfg *config.TeamConfig) []string {
	seen := make(map[string]bool)
	var names []string
	for _, ac := range cfg.Agents {
		if ac.LLM.Provider == "" || seen[ac.LLM.Provider] {
			continue
		}
		seen[ac.LLM.Provider] = true
		names = append(names, ac.LLM.Provider)
	}
	return names
}

// distinctEnvKeys collects every env var name declared across all
// agents, so serve can pull their live values from the process
// environment (via .env/.env.local) and patch them over the config's
// literal defaults before the team starts.
func distinctEnvKeys(cfg *config.TeamConfig) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, ac := range cfg.Agents {
		for k := range ac.Env {
			if seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
