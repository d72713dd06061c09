package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/orgmesh/signedmsg/common/logging"
	"github.com/orgmesh/signedmsg/internal/fetcher"
)

type fetchOptions struct {
	url         string
	subject     string
	attempts    int
	retryDelay  time.Duration
	timeout     time.Duration
	metricsFile string
}

func newFetchCommand(use string, global *globalOptions) *cobra.Command {
	opts := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   use,
		Short: "Wait for one domain event and write it to a file",
		Long: `Connect to the broker (retrying while it starts), subscribe to the
domain event subject and write the first message received to <outpath>.

Exit status: 0 on success, 1 when the broker stays unreachable or no
message arrives in time, 2 on usage errors.`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, global, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.url, "url", "", "NATS server URL (overrides nats.url)")
	flags.StringVar(&opts.subject, "subject", "", "subject to wait on (overrides nats.subject)")
	flags.IntVar(&opts.attempts, "attempts", 0, "connection attempts before giving up (overrides nats.connect_attempts)")
	flags.DurationVar(&opts.retryDelay, "retry-delay", 0, "delay between connection attempts (overrides nats.connect_retry_delay)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "how long to wait for a message (overrides fetch.wait_timeout)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus textfile metrics here (overrides fetch.metrics_file)")
	return cmd
}

func runFetch(cmd *cobra.Command, global *globalOptions, opts *fetchOptions, outPath string) error {
	cfg, logger, err := global.load(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.NATS.URL = opts.url
	}
	if flags.Changed("subject") {
		cfg.NATS.Subject = opts.subject
	}
	if flags.Changed("attempts") {
		cfg.NATS.ConnectAttempts = opts.attempts
	}
	if flags.Changed("retry-delay") {
		cfg.NATS.ConnectRetryDelay = opts.retryDelay
	}
	if flags.Changed("timeout") {
		cfg.Fetch.WaitTimeout = opts.timeout
	}
	if flags.Changed("metrics-file") {
		cfg.Fetch.MetricsFile = opts.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return &UsageError{Msg: err.Error()}
	}

	ctx := cmd.Context()
	logger.DebugContext(ctx, "fetching", logging.URL(cfg.NATS.URL), logging.Subject(cfg.NATS.Subject), logging.Path(outPath))

	f := fetcher.New(fetcher.Config{
		Subject:         cfg.NATS.Subject,
		ConnectAttempts: cfg.NATS.ConnectAttempts,
		RetryDelay:      cfg.NATS.ConnectRetryDelay,
		WaitTimeout:     cfg.Fetch.WaitTimeout,
	}, fetcher.NATSDialer(natsConfig(cfg, logger)), logger, cmd.OutOrStdout())

	fetchErr := f.Fetch(ctx, outPath)

	if cfg.Fetch.MetricsFile != "" {
		if err := f.Metrics().WriteTextfile(cfg.Fetch.MetricsFile); err != nil {
			logger.WarnContext(ctx, "failed to write metrics", logging.Path(cfg.Fetch.MetricsFile), logging.Error(err))
		}
	}

	if fetchErr != nil {
		logger.DebugContext(ctx, "fetch failed", logging.Error(fetchErr))
	}
	return fetchErr
}
