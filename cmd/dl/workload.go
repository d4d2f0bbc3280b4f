package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/desklinehq/deskline/internal/workload"
	"github.com/spf13/cobra"
)

func newWorkloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Agent workload and capacity commands",
	}

	cmd.AddCommand(newWorkloadAgentCmd())
	cmd.AddCommand(newWorkloadTeamCmd())
	return cmd
}

func newWorkloadAgentCmd() *cobra.Command {
	var (
		configPath string
		from       string
		to         string
	)

	cmd := &cobra.Command{
		Use:   "agent <agent-id>",
		Short: "Show one agent's workload",
		Long:  "Shows an agent's active load, capacity utilization, and performance averages over completions in the window.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			return runWorkloadAgent(cmd, configPath, args[0], w)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	cmd.Flags().StringVar(&from, "from", "", "window start (RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "window end (RFC 3339)")
	return cmd
}

func runWorkloadAgent(cmd *cobra.Command, configPath, agentID string, w workload.Window) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	s, err := workload.ForAgent(gormDB, agentID, w, cfg.MaxCapacity)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Agent:        %s\n", s.AgentID)
	fmt.Fprintf(out, "Active:       %d\n", s.ActiveAssignments)
	fmt.Fprintf(out, "Utilization:  %.0f%%\n", s.CapacityUtilization)
	fmt.Fprintf(out, "Overdue:      %d\n", s.Overdue)
	fmt.Fprintf(out, "Completed:    %d\n", s.Completed)
	fmt.Fprintf(out, "SLA breaches: %d\n", s.Breaches)
	if s.AvgFirstResponse > 0 {
		fmt.Fprintf(out, "Avg first response: %s\n", s.AvgFirstResponse.Round(time.Second))
	}
	if s.AvgResolution > 0 {
		fmt.Fprintf(out, "Avg resolution:     %s\n", s.AvgResolution.Round(time.Second))
	}
	if s.AvgSatisfaction > 0 {
		fmt.Fprintf(out, "Avg satisfaction:   %.1f/5\n", s.AvgSatisfaction)
	}
	return nil
}

func newWorkloadTeamCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "team",
		Short: "Show team-wide workload",
		Long:  "Lists every agent holding open assignments with active counts, utilization, and overdue counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkloadTeam(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	return cmd
}

func runWorkloadTeam(cmd *cobra.Command, configPath string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	rows, err := workload.Team(gormDB, cfg.MaxCapacity)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No open assignments.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tACTIVE\tUTIL\tOVERDUE")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t%.0f%%\t%d\n",
			r.AgentID, r.ActiveAssignments, r.CapacityUtilization, r.Overdue)
	}
	w.Flush()
	return nil
}

// parseWindow parses optional RFC 3339 bounds into a reporting window.
func parseWindow(from, to string) (workload.Window, error) {
	var w workload.Window
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return w, fmt.Errorf("parse --from: %w", err)
		}
		w.From = t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return w, fmt.Errorf("parse --to: %w", err)
		}
		w.To = t
	}
	return w, nil
}
