package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/woxQAQ/hmbridge/internal/app"
	"github.com/woxQAQ/hmbridge/internal/bridge"
	"github.com/woxQAQ/hmbridge/internal/encoding"
)

func newEvalCmd(opts *options) *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "eval <macro-text>",
		Short: "Run macro text as a new top-level macro",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, trace, func(a *app.App) (bridge.Result, error) {
				return a.Bridge().ExecEval(cmd.Context(), args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "print the macro text the engine received")
	return cmd
}

func newExecCmd(opts *options) *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "exec <macro-file>",
		Short: "Run a macro file as a new top-level macro",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, trace, func(a *app.App) (bridge.Result, error) {
				return a.Bridge().ExecFile(cmd.Context(), args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "print the macro text the engine received")
	return cmd
}

func newCallCmd(opts *options) *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "call <type> <method> [payload]",
		Short: "Invoke a registered method through the mailbox",
		Long: "Invoke a registered method in a fresh macro execution. Methods of type " +
			app.BuiltinType + " (Log, Remember) are always registered.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := ""
			if len(args) == 3 {
				payload = args[2]
			}
			return opts.run(cmd, trace, func(a *app.App) (bridge.Result, error) {
				return a.Bridge().InvokeRemote(cmd.Context(), payload, a.Ref(args[0], args[1]))
			})
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "print the macro text the engine received")
	return cmd
}

func newEncodingCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "encoding <id> [file]",
		Short: "Show the code page for an editor encoding id, or decode a file with it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid encoding id '%s': %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				e := encoding.Lookup(id)
				fmt.Fprintf(out, "id=%d code_page=%d mapped=%t\n", e.ID, e.CodePage, e.Mapped())
				return nil
			}

			text, err := encoding.ReadAllText(opts.fs, args[1], id)
			if err != nil {
				return err
			}
			_, err = io.WriteString(out, text)
			return err
		},
	}
}

// run opens the bridge, runs fn and prints its result. With trace set and the
// in-process engine active, every macro text evaluated is printed first.
func (o *options) run(cmd *cobra.Command, trace bool, fn func(a *app.App) (bridge.Result, error)) (err error) {
	ctx := cmd.Context()
	a, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close(ctx))
	}()

	res, err := fn(a)

	out := cmd.OutOrStdout()
	if trace && a.Sim() != nil {
		for _, text := range a.Sim().History() {
			fmt.Fprintf(out, "--- macro\n%s\n", strings.TrimRight(text, "\n"))
		}
	}
	fmt.Fprintf(out, "code=%d message=%q\n", res.Code, res.Message)
	return err
}
