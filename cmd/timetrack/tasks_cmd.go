package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-timetrack-client/tasks"
	"github.com/spf13/cobra"
)

func newTasksCmd(a *app) *cobra.Command {
	var jsonOutput, timeline bool
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks assigned to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := a.store.Current(); !ok {
				return fmt.Errorf("not logged in, run 'timetrack login'")
			}
			client := tasks.NewClient(a.gateway, tasks.WithTimeout(a.config.GetTasksTimeout()))
			list, err := client.MyTasks(cmd.Context())
			if err != nil {
				return fmt.Errorf("could not load tasks: %s", userMessage(err))
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if timeline {
					return enc.Encode(tasks.Timeline(list.Tasks))
				}
				return enc.Encode(list)
			}
			if list.Degraded {
				fmt.Fprintln(out, "The server sent an unreadable task list.")
			}
			if len(list.Tasks) == 0 {
				fmt.Fprintln(out, "No tasks assigned.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			if timeline {
				fmt.Fprintln(tw, "TASK\tHOURS")
				for _, e := range tasks.Timeline(list.Tasks) {
					fmt.Fprintf(tw, "%s\t%.2f\n", e.Title, e.Hours)
				}
				return tw.Flush()
			}
			fmt.Fprintln(tw, "ID\tTASK\tASSIGNED TO\tESTIMATE\tHIGHLIGHT\tRECORDED\tCOMPLETED")
			for _, t := range list.Tasks {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Title, t.AssignedTo, tasks.FormatMinutes(t.EstimatedMinutes),
					t.Highlight, t.TimeRecorded, t.CompletedAt)
			}
			fmt.Fprintf(tw, "\n%d task(s)\n", list.Count)
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&timeline, "timeline", false, "Show estimated hours per task")
	return cmd
}
