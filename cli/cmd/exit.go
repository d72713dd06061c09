package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

// UsageError is a command line mistake. It always exits 2.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func (e *UsageError) ExitCode() int { return 2 }

// reportedError marks an error whose details were already written as part
// of a structured report.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

type exitCoder interface {
	ExitCode() int
}

// ExitCode maps an error returned by a command to a process exit status.
// Errors that carry their own code keep it; anything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// usageLine renders "Usage: <command path> <args>" from the command's Use.
func usageLine(cmd *cobra.Command) string {
	args := ""
	if i := strings.IndexByte(cmd.Use, ' '); i >= 0 {
		args = cmd.Use[i:]
	}
	return "Usage: " + cmd.CommandPath() + args
}

// minArgs requires at least n positional arguments and reports a UsageError
// otherwise. Extra arguments are ignored.
func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return &UsageError{Msg: usageLine(cmd)}
		}
		return nil
	}
}
