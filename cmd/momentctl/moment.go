package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/momentd/internal/moments"
	"github.com/fyrsmithlabs/momentd/internal/patterns"
)

// EnrichRequest matches internal/http EnrichRequest.
type EnrichRequest struct {
	UserContext string `json:"user_context"`
}

// FeedbackRequest matches internal/http FeedbackRequest.
type FeedbackRequest struct {
	ThoughtID string `json:"thought_id"`
	Helpful   *bool  `json:"helpful"`
}

// StatusRequest matches internal/http StatusRequest.
type StatusRequest struct {
	Status moments.Status `json:"status"`
}

func newMomentCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moment",
		Short: "Create moments and record feedback on their matches",
	}
	cmd.AddCommand(
		newMomentCreateCmd(opts),
		newMomentGetCmd(opts),
		newMomentEnrichCmd(opts),
		newMomentFeedbackCmd(opts),
		newMomentStatusCmd(opts),
	)
	return cmd
}

func newMomentCreateCmd(opts *options) *cobra.Command {
	var (
		req       moments.CreateRequest
		source    string
		eventType string
		eventID   string
		title     string
		start     string
		attendees []string
	)

	cmd := &cobra.Command{
		Use:   "create <description>",
		Short: "Create a moment and match thoughts to it",
		Long: `Create a moment and match thoughts to it.

Examples:
  # A manual moment
  momentctl moment create "Salary negotiation with my manager"

  # A calendar moment
  momentctl moment create "Weekly sync" --source calendar \
    --event-id weekly_2026-03-02 --event-type team_meeting \
    --attendee ana@example.com --start 2026-03-02T15:00:00Z`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Description = strings.Join(args, " ")
			req.Source = moments.Source(source)
			req.EventType = patterns.EventType(eventType)

			if eventID != "" || title != "" || start != "" || len(attendees) > 0 {
				cal := &moments.CalendarData{
					ExternalEventID: eventID,
					Title:           title,
					Attendees:       attendees,
				}
				if start != "" {
					t, err := time.Parse(time.RFC3339, start)
					if err != nil {
						return fmt.Errorf("invalid --start: %w", err)
					}
					cal.StartTime = &t
				}
				req.Calendar = cal
			}

			var out moments.MomentWithMatches
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/moments", req, &out); err != nil {
				return err
			}
			return printMoment(cmd.OutOrStdout(), opts, &out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&source, "source", string(moments.SourceManual), "moment source (manual or calendar)")
	f.StringVar(&req.UserContext, "context", "", "additional context for matching")
	f.StringVar(&eventType, "event-type", "", "detected event type, e.g. one_on_one")
	f.StringVar(&eventID, "event-id", "", "calendar event ID")
	f.StringVar(&title, "title", "", "calendar event title")
	f.StringVar(&start, "start", "", "calendar event start time (RFC3339)")
	f.StringSliceVar(&attendees, "attendee", nil, "attendee email (repeatable)")
	return cmd
}

func newMomentGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <moment-id>",
		Short: "Show a moment and its matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out moments.MomentWithMatches
			if err := opts.client().do(cmd.Context(), http.MethodGet, momentPath(args[0], ""), nil, &out); err != nil {
				return err
			}
			return printMoment(cmd.OutOrStdout(), opts, &out)
		},
	}
}

func newMomentEnrichCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich <moment-id> <context>",
		Short: "Add context to a moment and match again",
		Long: `Add context to a moment and match again. Existing matches are kept and
only ever gain score.

Examples:
  momentctl moment enrich 3f2a... "They care about headcount more than budget"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := EnrichRequest{UserContext: strings.Join(args[1:], " ")}
			var out moments.MomentWithMatches
			if err := opts.client().do(cmd.Context(), http.MethodPost, momentPath(args[0], "/context"), body, &out); err != nil {
				return err
			}
			return printMoment(cmd.OutOrStdout(), opts, &out)
		},
	}
}

func newMomentFeedbackCmd(opts *options) *cobra.Command {
	var notHelpful bool

	cmd := &cobra.Command{
		Use:   "feedback <moment-id> <thought-id>",
		Short: "Mark a matched thought helpful or not",
		Long: `Mark a matched thought helpful (the default) or not helpful. The vote
trains future matches for similar moments.

Examples:
  momentctl moment feedback 3f2a... 9b1c...
  momentctl moment feedback 3f2a... 9b1c... --not-helpful`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			helpful := !notHelpful
			body := FeedbackRequest{ThoughtID: args[1], Helpful: &helpful}
			if err := opts.client().do(cmd.Context(), http.MethodPost, momentPath(args[0], "/feedback"), body, nil); err != nil {
				return err
			}
			verdict := "helpful"
			if !helpful {
				verdict = "not helpful"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s as %s\n", args[1], verdict)
			return nil
		},
	}
	cmd.Flags().BoolVar(&notHelpful, "not-helpful", false, "record the thought as not helpful")
	return cmd
}

func newMomentStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <moment-id> <completed|dismissed>",
		Short: "Complete or dismiss an active moment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := StatusRequest{Status: moments.Status(args[1])}
			var out moments.Moment
			if err := opts.client().do(cmd.Context(), http.MethodPost, momentPath(args[0], "/status"), body, &out); err != nil {
				return err
			}
			if opts.json {
				return outputJSON(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moment %s is %s\n", out.ID, out.Status)
			return nil
		},
	}
}

func momentPath(id, suffix string) string {
	return "/api/v1/moments/" + url.PathEscape(id) + suffix
}

func printMoment(w io.Writer, opts *options, m *moments.MomentWithMatches) error {
	if opts.json {
		return outputJSON(w, m)
	}
	if m.Moment == nil {
		return fmt.Errorf("empty response")
	}

	fmt.Fprintf(w, "Moment %s (%s, %s)\n", m.Moment.ID, m.Moment.Status, m.Moment.MatchState)
	fmt.Fprintf(w, "  %s\n", m.Moment.Description)
	if m.Moment.UserContext != "" {
		fmt.Fprintf(w, "  Context: %s\n", m.Moment.UserContext)
	}
	fmt.Fprintf(w, "%d match(es) in %dms\n", len(m.Matches), m.Moment.ProcessingTimeMs)
	for _, match := range m.Matches {
		content := match.ThoughtID
		if match.Thought != nil {
			content = truncate(match.Thought.Content, 72)
		}
		fmt.Fprintf(w, "  %.2f  %s  %s\n", match.Score, match.ThoughtID, content)
		if match.Reason != "" {
			fmt.Fprintf(w, "        %s\n", truncate(match.Reason, 96))
		}
	}
	return nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
