package main

import (
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/momentd/internal/moments"
)

// ThoughtRequest matches internal/http ThoughtRequest.
type ThoughtRequest struct {
	Content    string `json:"content"`
	ContextTag string `json:"context_tag"`
	Source     string `json:"source,omitempty"`
}

// ThoughtsResponse matches internal/http ThoughtsResponse.
type ThoughtsResponse struct {
	Thoughts []moments.Thought `json:"thoughts"`
}

func newThoughtCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thought",
		Short: "Manage the thought library",
	}
	cmd.AddCommand(newThoughtAddCmd(opts), newThoughtListCmd(opts))
	return cmd
}

func newThoughtAddCmd(opts *options) *cobra.Command {
	var req ThoughtRequest

	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Capture a new thought",
		Long: `Capture a new thought. Active thoughts are candidates for every moment.

Examples:
  momentctl thought add "Let silence do the work after you make an offer" --tag negotiation`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Content = strings.Join(args, " ")
			var out moments.Thought
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/thoughts", req, &out); err != nil {
				return err
			}
			if opts.json {
				return outputJSON(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added thought %s\n", out.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.ContextTag, "tag", "", "context tag (required)")
	cmd.Flags().StringVar(&req.Source, "source", "", "where the thought came from")
	_ = cmd.MarkFlagRequired("tag")
	return cmd
}

func newThoughtListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List thoughts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out ThoughtsResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/thoughts", nil, &out); err != nil {
				return err
			}
			if opts.json {
				return outputJSON(cmd.OutOrStdout(), out)
			}
			if len(out.Thoughts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No thoughts yet")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tTAG\tCONTENT")
			for _, t := range out.Thoughts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Status, t.ContextTag, truncate(t.Content, 60))
			}
			return tw.Flush()
		},
	}
}
