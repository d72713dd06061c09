package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/orgmesh/signedmsg/common/config"
	"github.com/orgmesh/signedmsg/common/logging"
	natsclient "github.com/orgmesh/signedmsg/common/messaging/nats"
)

// globalOptions are the flags every command accepts.
type globalOptions struct {
	cfgFile   string
	logLevel  string
	logFormat string
}

func (o *globalOptions) register(flags *pflag.FlagSet) {
	flags.StringVar(&o.cfgFile, "config", "", "config file (default: $SIGNEDMSG_CONFIG_DIR/config.yaml when set, otherwise none)")
	flags.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flags.StringVar(&o.logFormat, "log-format", "", "log format: text, json (overrides config)")
}

// load reads configuration and builds the stderr logger for cmd.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	// A broken config is an invocation problem, never a fetch or
	// validation outcome.
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, nil, &UsageError{Msg: err.Error()}
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}

	logger := logging.NewWithWriter(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format).
		With(logging.Command(cmd.Name()))
	return cfg, logger, nil
}

// natsConfig maps loaded configuration onto the NATS client settings.
func natsConfig(cfg *config.Config, logger *logging.Logger) natsclient.Config {
	nc := natsclient.DefaultConfig()
	nc.URL = cfg.NATS.URL
	nc.Name = cfg.NATS.Name
	nc.Timeout = cfg.NATS.ConnectTimeout
	nc.Logger = logger.Logger
	return nc
}

// NewRootCommand builds the signedmsg umbrella command.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "signedmsg",
		Short: "End-to-end helpers for the signed domain event bus",
		Long: `signedmsg captures, validates and publishes SignedEvents on the
domain.events subject. The e2e harness uses it to check that adapter
events make it onto the bus signed and correctly classified.`,
		Version: "0.1.0",
	}
	opts.register(root.PersistentFlags())
	configure(root)

	root.AddCommand(
		newFetchCommand("fetch <outpath>", opts),
		newValidateCommand("validate <path>", opts),
		newPublishCommand(opts),
	)
	return root
}

// NewFetchSignedMsgCommand builds the standalone fetch_signed_msg command.
func NewFetchSignedMsgCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := newFetchCommand("fetch_signed_msg <outpath>", opts)
	opts.register(cmd.PersistentFlags())
	configure(cmd)
	return cmd
}

// NewValidateSignedMsgCommand builds the standalone validate_signed_msg command.
func NewValidateSignedMsgCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := newValidateCommand("validate_signed_msg <path>", opts)
	opts.register(cmd.PersistentFlags())
	configure(cmd)
	return cmd
}

// configure applies the error handling shared by every entry point: errors
// are printed once by Execute and bad flags count as usage errors.
func configure(cmd *cobra.Command) {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &UsageError{Msg: fmt.Sprintf("%v\n%s", err, usageLine(c))}
	})
}

// Execute runs cmd, prints a failure message to its output stream and
// returns the process exit status.
func Execute(cmd *cobra.Command) int {
	ctx := logging.ContextWithInvocation(context.Background(), uuid.NewString())
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var reported *reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintln(cmd.OutOrStdout(), err.Error())
	}
	return ExitCode(err)
}
