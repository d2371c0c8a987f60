package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hupe1980/panelport/internal/config"
	"github.com/hupe1980/panelport/internal/kibana"
	"github.com/hupe1980/panelport/internal/logging"
	"github.com/hupe1980/panelport/internal/metrics"
	"github.com/hupe1980/panelport/internal/migrate"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// session bundles what a command needs to talk to the platform.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *kibana.Client
	recorder *metrics.Recorder
}

// newSession builds a Kibana client from the loaded configuration. Every
// request and migrated object is recorded on the session's metrics.
func newSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)
	rec := metrics.New()

	opts := []kibana.Option{
		kibana.WithTimeout(cfg.Timeout),
		kibana.WithRetry(cfg.MaxRetries, cfg.RetryWait),
		kibana.WithRateLimit(cfg.RateLimit),
		kibana.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
		kibana.WithLogger(logger),
		kibana.WithObserver(rec),
	}

	if cfg.Username != "" {
		opts = append(opts, kibana.WithBasicAuth(cfg.Username, cfg.Password))
	}

	client, err := kibana.New(cfg.KibanaURL, opts...)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Err: err}
	}

	return &session{cfg: cfg, logger: logger, client: client, recorder: rec}, nil
}

// migrateOptions returns the orchestrator options shared by every command.
func (s *session) migrateOptions() []migrate.Option {
	opts := []migrate.Option{
		migrate.WithLogger(s.logger),
		migrate.WithObserver(s.recorder),
		migrate.WithReleaseKey(s.cfg.ReleaseKey),
	}

	if v := s.cfg.TargetSemver(); v != nil {
		opts = append(opts, migrate.WithTargetVersion(v))
	}

	return opts
}

// runtimeError maps an operation error to an exit code.
func runtimeError(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	if errors.Is(err, savedobject.ErrNotFound) {
		return &ExitError{Code: ExitNotFound, Err: err}
	}

	return &ExitError{Code: ExitFailure, Err: err}
}

// useColor reports whether w is a terminal and colors are enabled.
func useColor(cfg *config.Config, w io.Writer) bool {
	if cfg.NoColor || color.NoColor {
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printf writes a status line unless quiet is set.
func printf(cmd *cobra.Command, format string, args ...interface{}) {
	if config.FromContext(cmd.Context()).Quiet {
		return
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
}
