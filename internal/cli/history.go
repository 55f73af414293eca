package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewHistoryCmd создаёт команду просмотра журнала сработавших событий.
func NewHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts HistoryOpts

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show fired events journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := clientFn().History(opts)
			if err != nil {
				return err
			}

			headers := []string{"ID", "FIRED_AT", "SOURCE", "SCOPE", "NAME", "EVENT_ID"}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{
					strconv.FormatInt(e.ID, 10), e.FiredAt, e.Source, e.Scope, e.Name, e.EventID,
				}
			}

			outputFn().Print(headers, rows, entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Filter by event name")
	cmd.Flags().StringVar(&opts.Source, "source", "", "Filter by source (expiry, instant)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Max entries")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Skip entries")

	return cmd
}

// NewInstanceCmd создаёт команду просмотра информации об инстансе.
func NewInstanceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "instance",
		Short: "Show instance ID and registered handlers",
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := clientFn().Instance()
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"INSTANCE_ID", "HANDLERS"},
				[][]string{{inst.InstanceID, strings.Join(inst.Handlers, ",")}},
				inst,
			)
			return nil
		},
	}
}
