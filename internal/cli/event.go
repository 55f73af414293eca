package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewEventCmd создаёт группу команд для управления событиями.
func NewEventCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage delayed events",
	}

	cmd.AddCommand(
		newEventScheduleCmd(clientFn, outputFn),
		newEventListCmd(clientFn, outputFn),
		newEventDeleteCmd(clientFn, outputFn),
		newEventExpiryCmd(clientFn, outputFn),
		newEventInstantCmd(clientFn, outputFn),
		newEventPruneCmd(clientFn, outputFn),
	)

	return cmd
}

func newEventScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var at string
	var in time.Duration
	var global bool
	var payload string
	var id string

	cmd := &cobra.Command{
		Use:   "schedule NAME",
		Short: "Schedule an event",
		Example: `  redular event schedule goodbye --in 6s
  redular event schedule test --at 2026-01-01T12:00:00Z --payload '{"test":"Hello"}' --global`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := ScheduleEventRequest{Name: args[0], Global: global, ID: id}

			switch {
			case at != "" && in > 0:
				return fmt.Errorf("--at and --in are mutually exclusive")
			case at != "":
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at %q: %w", at, err)
				}
				req.At = &t
			case in > 0:
				// API принимает задержку в целых секундах
				req.DelaySec = int(in.Round(time.Second) / time.Second)
			default:
				return fmt.Errorf("either --at or --in is required")
			}

			raw, err := parsePayload(payload)
			if err != nil {
				return err
			}
			req.Payload = raw

			ev, err := client.ScheduleEvent(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Event scheduled: %s", ev.EventKey))
			out.Print(
				[]string{"EVENT_KEY", "AT"},
				[][]string{{ev.EventKey, out.FireTime(ev.At)}},
				ev,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Fire time (RFC3339)")
	cmd.Flags().DurationVar(&in, "in", 0, "Fire after delay (e.g. 30s, 5m)")
	cmd.Flags().BoolVar(&global, "global", false, "Deliver to every instance")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload")
	cmd.Flags().StringVar(&id, "id", "", "Event ID (re-scheduling with the same ID overwrites)")

	return cmd
}

func newEventListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var start string
	var end string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events firing in a time range",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var opts ListEventsOpts
			var err error
			if opts.Start, err = parseOptionalTime("start", start); err != nil {
				return err
			}
			if opts.End, err = parseOptionalTime("end", end); err != nil {
				return err
			}

			events, err := client.ListEvents(opts)
			if err != nil {
				return err
			}

			headers := []string{"KEY", "SCOPE", "NAME", "ID", "AT"}
			rows := make([][]string, len(events))
			for i, e := range events {
				rows[i] = []string{e.Key, e.Scope, e.Name, e.ID, out.FireTime(e.At)}
			}

			out.Print(headers, rows, events)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Range start (RFC3339, default now)")
	cmd.Flags().StringVar(&end, "end", "", "Range end (RFC3339, default start+24h)")

	return cmd
}

func newEventDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete EVENT_KEY",
		Short: "Delete a scheduled event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteEvent(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Event deleted: %s", args[0]))
			return nil
		},
	}
}

func newEventExpiryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "expiry EVENT_KEY",
		Short: "Show when an event fires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expiry, err := clientFn().GetEventExpiry(args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			out.Print(
				[]string{"KEY", "AT"},
				[][]string{{expiry.Key, out.FireTime(expiry.At)}},
				expiry,
			)
			return nil
		},
	}
}

func newEventInstantCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var global bool
	var payload string

	cmd := &cobra.Command{
		Use:   "instant NAME",
		Short: "Send an instant event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parsePayload(payload)
			if err != nil {
				return err
			}

			req := InstantEventRequest{Name: args[0], Global: global, Payload: raw}
			if err := clientFn().InstantEvent(req); err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Instant event sent: %s", args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Deliver to every instance")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload")

	return cmd
}

func newEventPruneCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove data of events that already fired",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().Prune(); err != nil {
				return err
			}
			outputFn().Success("Prune completed")
			return nil
		},
	}
}

// --- Helpers ---

// parsePayload проверяет, что строка — валидный JSON. Пустая строка — нет payload.
func parsePayload(s string) (json.RawMessage, error) {
	if s == "" {
		return nil, nil
	}
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("invalid --payload: not a JSON value")
	}
	return json.RawMessage(s), nil
}

func parseOptionalTime(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: %w", flag, s, err)
	}
	return t, nil
}
