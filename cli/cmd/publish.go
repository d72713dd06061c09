package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orgmesh/signedmsg/cli/pkg/output"
	"github.com/orgmesh/signedmsg/common/audit"
	natsclient "github.com/orgmesh/signedmsg/common/messaging/nats"
	"github.com/orgmesh/signedmsg/internal/publisher"
)

type publishOptions struct {
	url     string
	subject string
	kind    string
	count   int
}

func newPublishCommand(global *globalOptions) *cobra.Command {
	opts := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish signed fake adapter events",
		Long: `Publish SignedEvents with a generated discord message payload, signed
with the key from signing.seed_hex (or the deterministic test key).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, global, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.url, "url", "", "NATS server URL (overrides nats.url)")
	flags.StringVar(&opts.subject, "subject", "", "subject to publish on (overrides nats.subject)")
	flags.StringVar(&opts.kind, "kind", publisher.DefaultKind, "event kind")
	flags.IntVar(&opts.count, "count", 1, "number of events to publish")
	return cmd
}

func runPublish(cmd *cobra.Command, global *globalOptions, opts *publishOptions) error {
	if opts.count < 1 {
		return &UsageError{Msg: fmt.Sprintf("--count must be at least 1, got %d", opts.count)}
	}

	cfg, logger, err := global.load(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("url") {
		cfg.NATS.URL = opts.url
	}
	if cmd.Flags().Changed("subject") {
		cfg.NATS.Subject = opts.subject
	}

	signer, err := audit.NewEventSignerFromHex(cfg.Signing.SeedHex)
	if err != nil {
		return err
	}

	client, err := natsclient.NewClient(natsConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("cannot connect to NATS: %w", err)
	}

	ctx := cmd.Context()
	p := publisher.New(client, signer, cfg.NATS.Subject, logger)
	out := cmd.OutOrStdout()
	for i := 0; i < opts.count; i++ {
		signed, err := p.Publish(ctx, opts.kind)
		if err != nil {
			_ = client.Close()
			return err
		}
		output.Success(out, "published %s (%s) signed by %s", signed.Event.ID, signed.Event.Kind, signer.KeyID())
	}

	// Drain so every publish reaches the server before the process exits.
	if err := client.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}
