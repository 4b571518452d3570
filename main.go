package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/duynguyendang/kpextract/internal/config"
	"github.com/duynguyendang/kpextract/internal/logging"
	"github.com/duynguyendang/kpextract/pkg/extract"
	"github.com/duynguyendang/kpextract/pkg/knowledge"
	"github.com/duynguyendang/kpextract/pkg/mcp"
	"github.com/duynguyendang/kpextract/pkg/server"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("kpextract failed")
		os.Exit(1)
	}
}

// app is what every subcommand needs once configuration is loaded.
type app struct {
	cfg       config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string
	a := &app{}

	root := &cobra.Command{
		Use:           "kpextract",
		Short:         "Extract knowledge points from course documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			closer, err := logging.Setup(cfg.Log)
			if err != nil {
				return err
			}
			a.cfg, a.logCloser = cfg, closer
			return cfg.Validate()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "path to a YAML config file")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("backend", "", "extractor backend (gemini, openai, anthropic)")
	flags.String("model", "", "model location handed to the backend")
	flags.String("base-url", "", "backend base URL, e.g. a local OpenAI-compatible server")
	bindFlag(v, "log.level", root, "log-level")
	bindFlag(v, "extractor.backend", root, "backend")
	bindFlag(v, "extractor.model", root, "model")
	bindFlag(v, "extractor.base_url", root, "base-url")

	root.AddCommand(newServeCmd(v, a), newExtractCmd(a), newMCPCmd(a))
	return root
}

func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, name string) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(name)); err != nil {
		panic(err)
	}
}

func newServeCmd(v *viper.Viper, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP extraction service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ex, closeFn, err := buildExtractor(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			gin.SetMode(a.cfg.Server.Mode)
			srv := server.NewServer(ex, a.cfg.Guard.Timeout)
			log.Info().
				Str("backend", a.cfg.Extractor.Backend).
				Str("model", a.cfg.Extractor.Model).
				Bool("serialize", a.cfg.Guard.Serialize).
				Int("cache_size", a.cfg.Cache.Size).
				Msg("extractor ready")
			return srv.Run(ctx, a.cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default 0.0.0.0:5000)")
	if err := v.BindPFlag("server.addr", cmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
	return cmd
}

func newExtractCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "extract PATH...",
		Short: "Extract knowledge points from documents and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}

			ctx := cmd.Context()
			if a.cfg.Guard.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, a.cfg.Guard.Timeout)
				defer cancel()
			}

			ex, closeFn, err := buildExtractor(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := ex.ProcessDocuments(ctx, extract.NormalizePaths(args))
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), format, result)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json or yaml)")
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the extractor as an MCP tool on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, closeFn, err := buildExtractor(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			return mcp.Run(ex, a.cfg.Guard.Timeout, version)
		},
	}
}

// buildExtractor constructs the process-wide extractor and wraps it in the
// configured guard and cache.
func buildExtractor(ctx context.Context, cfg config.Config) (extract.Extractor, func(), error) {
	k, err := knowledge.New(ctx, cfg.Extractor)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	var ex extract.Extractor = k
	if cfg.Guard.Serialize {
		ex = extract.Serialized(ex)
	}
	ex = extract.Cached(ex, cfg.Cache.Size, cfg.Cache.TTL)

	closeFn := func() {
		if err := k.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close extractor")
		}
	}
	return ex, closeFn, nil
}

func writeResult(w io.Writer, format string, result any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
