package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ThomasGates3/ai-powered-iam/internal/console"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/synth"
	"github.com/ThomasGates3/ai-powered-iam/pkg/client"
	"github.com/ThomasGates3/ai-powered-iam/pkg/policydoc"
)

const defaultEndpoint = "http://localhost:8080"

type rootOptions struct {
	endpoint string
	timeout  time.Duration
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "policyctl",
		Short: "Generate and manage least-privilege IAM policies",
		Long: `policyctl talks to the policy API.

Describe the access you need in plain English and get back an IAM policy
document. Generated policies are kept by the server and can be listed or
deleted. The synth command runs the keyword synthesizer locally without a
server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	endpoint := os.Getenv("POLICY_API_ENDPOINT")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	root.PersistentFlags().StringVar(&opts.endpoint, "endpoint", endpoint, "policy API base URL (env POLICY_API_ENDPOINT)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log request failures to stderr")

	root.AddCommand(
		newGenerateCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newSynthCmd(),
	)
	return root
}

func (o *rootOptions) controller(cmd *cobra.Command) *console.Controller {
	level := slog.LevelError + 1
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	api := client.New(o.endpoint, client.WithTimeout(o.timeout))
	return console.NewController(api, console.NewStore(console.State{}), logger)
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <description>",
		Short: "Generate and store a policy from a description",
		Example: `  policyctl generate "Lambda needs read-only access to S3 bucket data-lake"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := opts.controller(cmd)
			ctrl.SetInput(strings.Join(args, " "))
			if err := ctrl.Generate(cmd.Context()); err != nil {
				return failure(ctrl.Store().State().GenerateErr, err)
			}

			state := ctrl.Store().State()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Policy ID: %s\nCreated:   %s\n\n", state.Current.ID, state.Current.Timestamp)
			return printDocument(out, state.Document)
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored policies, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl := opts.controller(cmd)
			if err := ctrl.Refresh(cmd.Context()); err != nil {
				return failure(ctrl.Store().State().ListErr, err)
			}

			out := cmd.OutOrStdout()
			policies := ctrl.Store().State().Policies
			if len(policies) == 0 {
				fmt.Fprintln(out, "No policies yet.")
				return nil
			}
			for _, p := range policies {
				fmt.Fprintf(out, "%s  %s  %s\n", p.ID, p.Timestamp, p.Description)
			}
			return nil
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <policy-id>...",
		Short: "Delete stored policies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := opts.controller(cmd)
			for _, id := range args {
				if err := ctrl.Delete(cmd.Context(), id); err != nil {
					return failure(ctrl.Store().State().DeleteErr, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
}

func newSynthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "synth <description>",
		Short: "Build a policy locally with the keyword synthesizer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.Join(args, " ")
			if strings.TrimSpace(description) == "" {
				return console.ErrEmptyInput
			}
			return printDocument(cmd.OutOrStdout(), synth.Synthesize(description))
		},
	}
}

func printDocument(w io.Writer, doc *policydoc.Document) error {
	text, err := doc.Indent()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, text)
	return err
}

// failure prefers the message the controller recorded for display.
func failure(message string, err error) error {
	if message == "" {
		return err
	}
	return errors.New(message)
}
