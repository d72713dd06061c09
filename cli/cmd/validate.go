package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/orgmesh/signedmsg/cli/pkg/output"
	"github.com/orgmesh/signedmsg/common/logging"
	"github.com/orgmesh/signedmsg/internal/validator"
)

type validateOptions struct {
	kindPrefix      string
	adapters        []string
	verifySignature bool
	output          string
}

// ValidateReport is the structured form of a validation outcome.
type ValidateReport struct {
	Path              string `json:"path" yaml:"path"`
	Valid             bool   `json:"valid" yaml:"valid"`
	Code              int    `json:"code" yaml:"code"`
	Failure           string `json:"failure,omitempty" yaml:"failure,omitempty"`
	Kind              string `json:"kind,omitempty" yaml:"kind,omitempty"`
	EventID           string `json:"event_id,omitempty" yaml:"event_id,omitempty"`
	Adapter           string `json:"adapter,omitempty" yaml:"adapter,omitempty"`
	SignatureVerified bool   `json:"signature_verified" yaml:"signature_verified"`
	Message           string `json:"message" yaml:"message"`
}

func newValidateCommand(use string, global *globalOptions) *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   use,
		Short: "Check that a JSON file is a SignedEvent from a discord adapter",
		Long: `Validate a captured message. Checks run in order and the first failure
decides the exit status:

  3  file is not valid JSON
  2  missing "event" or "signature" (2 is also the usage error status)
  4  event.kind does not start with the adapter prefix
  5  event.kind names none of the expected adapters
  6  signature does not verify (only with --verify-signature)`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, global, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.kindPrefix, "kind-prefix", "", "required event.kind prefix (overrides validate.kind_prefix)")
	flags.StringSliceVar(&opts.adapters, "adapter", nil, "accepted adapter identifier, repeatable (overrides validate.adapter_identifiers)")
	flags.BoolVar(&opts.verifySignature, "verify-signature", false, "also verify the ed25519 signature")
	flags.StringVarP(&opts.output, "output", "o", "text", "output format: text, json, yaml")
	return cmd
}

func runValidate(cmd *cobra.Command, global *globalOptions, opts *validateOptions, path string) error {
	format, err := output.ParseFormat(opts.output)
	if err != nil {
		return &UsageError{Msg: err.Error()}
	}

	cfg, logger, err := global.load(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("kind-prefix") {
		cfg.Validation.KindPrefix = opts.kindPrefix
	}
	if flags.Changed("adapter") {
		cfg.Validation.AdapterIdentifiers = opts.adapters
	}
	if err := cfg.Validate(); err != nil {
		return &UsageError{Msg: err.Error()}
	}

	v := validator.New(validator.Config{
		KindPrefix:         cfg.Validation.KindPrefix,
		AdapterIdentifiers: cfg.Validation.AdapterIdentifiers,
		VerifySignature:    opts.verifySignature,
	})

	ctx := cmd.Context()
	res, verr := v.ValidateFile(path)
	if verr != nil {
		logger.DebugContext(ctx, "validation failed", logging.Path(path), logging.Error(verr))
	} else {
		logger.DebugContext(ctx, "validation passed", logging.Path(path), logging.Kind(res.Kind))
	}

	out := cmd.OutOrStdout()
	if format == output.FormatText {
		if verr != nil {
			return verr
		}
		output.Plain(out, res.Message)
		return nil
	}

	if err := output.Render(out, format, newValidateReport(path, res, verr)); err != nil {
		return err
	}
	if verr != nil {
		return &reportedError{err: verr}
	}
	return nil
}

func newValidateReport(path string, res *validator.Result, err error) ValidateReport {
	if err == nil {
		return ValidateReport{
			Path:              path,
			Valid:             true,
			Kind:              res.Kind,
			EventID:           res.EventID,
			Adapter:           res.Adapter,
			SignatureVerified: res.Signature,
			Message:           res.Message,
		}
	}

	report := ValidateReport{
		Path:    path,
		Code:    ExitCode(err),
		Message: err.Error(),
	}
	var ve *validator.Error
	if errors.As(err, &ve) {
		report.Failure = ve.Kind.String()
		report.Kind = ve.EventKind
	}
	return report
}
