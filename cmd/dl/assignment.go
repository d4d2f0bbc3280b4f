package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desklinehq/deskline/internal/assignment"
	"github.com/desklinehq/deskline/internal/sla"
	"github.com/spf13/cobra"
)

func newAssignmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assignment",
		Aliases: []string{"as"},
		Short:   "Assignment lifecycle commands",
	}

	cmd.AddCommand(newAssignmentCreateCmd())
	cmd.AddCommand(newAssignmentListCmd())
	cmd.AddCommand(newAssignmentShowCmd())
	cmd.AddCommand(newAssignmentTransferCmd())
	cmd.AddCommand(newAssignmentEscalateCmd())
	cmd.AddCommand(newAssignmentCompleteCmd())
	cmd.AddCommand(newAssignmentCancelCmd())
	cmd.AddCommand(newAssignmentPriorityCmd())
	cmd.AddCommand(newAssignmentMetricsCmd())
	cmd.AddCommand(newAssignmentFieldCmd())
	return cmd
}

func newAssignmentCreateCmd() *cobra.Command {
	var (
		configPath     string
		entityType     string
		entityID       string
		agentID        string
		priority       string
		asType         string
		requiredSkills []string
		agentSkills    []string
		assignedBy     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new assignment",
		Long:  "Assigns an entity to an agent. Fails if the entity already has an open assignment.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssignmentCreate(cmd, configPath, assignment.CreateOpts{
				EntityType:     entityType,
				EntityID:       entityID,
				AgentID:        agentID,
				Priority:       sla.Priority(priority),
				Type:           asType,
				RequiredSkills: requiredSkills,
				AgentSkills:    agentSkills,
				AssignedBy:     assignedBy,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "entity type, e.g. conversation or ticket (required)")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity ID (required)")
	cmd.Flags().StringVar(&agentID, "agent", "", "agent to assign to (required)")
	cmd.Flags().StringVar(&priority, "priority", "medium", "priority (low, medium, high, urgent)")
	cmd.Flags().StringVar(&asType, "type", "manual", "assignment type (manual, automatic, escalation)")
	cmd.Flags().StringSliceVar(&requiredSkills, "required-skills", nil, "skills the entity requires")
	cmd.Flags().StringSliceVar(&agentSkills, "agent-skills", nil, "skills the agent holds")
	cmd.Flags().StringVar(&assignedBy, "by", "", "who made the assignment")
	cmd.MarkFlagRequired("entity-type")
	cmd.MarkFlagRequired("entity-id")
	cmd.MarkFlagRequired("agent")
	return cmd
}

func runAssignmentCreate(cmd *cobra.Command, configPath string, opts assignment.CreateOpts) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	opts.Policy = policyFromConfig(cfg)

	a, err := assignment.Create(gormDB, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created assignment %s\n", a.ID)
	fmt.Fprintf(out, "Agent: %s\n", a.AgentID)
	fmt.Fprintf(out, "SLA deadline: %s\n", a.SLADeadline.Format("2006-01-02 15:04:05"))
	if a.RequiredSkills != "" {
		fmt.Fprintf(out, "Skill match: %.0f%%\n", a.SkillMatchScore*100)
	}
	return nil
}

func newAssignmentListCmd() *cobra.Command {
	var (
		configPath string
		agentID    string
		status     string
		entityType string
		entityID   string
		priority   string
		overdue    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments",
		Long:  "Lists assignments with optional filters. Output is formatted as a table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if overdue {
				return runAssignmentListOverdue(cmd, configPath)
			}
			return runAssignmentList(cmd, configPath, assignment.ListFilters{
				AgentID:    agentID,
				Status:     status,
				EntityType: entityType,
				EntityID:   entityID,
				Priority:   priority,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	cmd.Flags().StringVar(&agentID, "agent", "", "filter by agent")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "filter by entity type")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "filter by entity ID")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "show only open assignments past their SLA deadline")
	return cmd
}

func runAssignmentList(cmd *cobra.Command, configPath string, filters assignment.ListFilters) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	list, err := assignment.List(gormDB, filters)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No assignments found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENTITY\tAGENT\tSTATUS\tPRI\tDEADLINE\tESC")
	for _, a := range list {
		esc := "-"
		if a.EscalationLevel > 0 {
			esc = fmt.Sprintf("L%d", a.EscalationLevel)
		}
		fmt.Fprintf(w, "%s\t%s/%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(a.ID), a.EntityType, a.EntityID, a.AgentID, a.Status, a.Priority,
			a.SLADeadline.Format("2006-01-02 15:04"), esc)
	}
	w.Flush()
	return nil
}

func runAssignmentListOverdue(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	list, err := assignment.ListOverdue(gormDB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No overdue assignments.")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENTITY\tAGENT\tPRI\tOVERDUE BY")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%s/%s\t%s\t%s\t%s\n",
			shortID(a.ID), a.EntityType, a.EntityID, a.AgentID, a.Priority,
			now.Sub(a.SLADeadline).Round(time.Minute))
	}
	w.Flush()
	return nil
}

func newAssignmentShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show assignment details",
		Long:  "Displays full details of an assignment including SLA state, escalation, metrics, and transfer history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssignmentShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	return cmd
}

func runAssignmentShow(cmd *cobra.Command, configPath, id string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	a, err := assignment.Get(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:           %s\n", a.ID)
	fmt.Fprintf(out, "Entity:       %s/%s\n", a.EntityType, a.EntityID)
	fmt.Fprintf(out, "Agent:        %s\n", a.AgentID)
	fmt.Fprintf(out, "Status:       %s\n", a.Status)
	fmt.Fprintf(out, "Type:         %s\n", a.Type)
	fmt.Fprintf(out, "Priority:     %s\n", a.Priority)
	if a.AssignedBy != "" {
		fmt.Fprintf(out, "Assigned by:  %s\n", a.AssignedBy)
	}
	fmt.Fprintf(out, "Assigned:     %s\n", a.AssignedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "SLA deadline: %s\n", a.SLADeadline.Format("2006-01-02 15:04:05"))
	if assignment.IsOverdue(a) {
		fmt.Fprintf(out, "Overdue by:   %s\n", time.Since(a.SLADeadline).Round(time.Minute))
	}
	if a.SLAMet != nil {
		fmt.Fprintf(out, "SLA met:      %t\n", *a.SLAMet)
	}
	if a.EscalationLevel > 0 {
		fmt.Fprintf(out, "Escalation:   L%d", a.EscalationLevel)
		if a.EscalatedTo != "" {
			fmt.Fprintf(out, " → %s", a.EscalatedTo)
		}
		if a.EscalatedAt != nil {
			fmt.Fprintf(out, " (%s)", a.EscalatedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(out)
	}
	if a.CompletedAt != nil {
		fmt.Fprintf(out, "Closed:       %s\n", a.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if a.CompletionReason != "" {
		fmt.Fprintf(out, "Reason:       %s\n", a.CompletionReason)
	}
	if a.SatisfactionScore != nil {
		fmt.Fprintf(out, "Satisfaction: %d/5\n", *a.SatisfactionScore)
	}
	if req := assignment.DecodeSkills(a.RequiredSkills); len(req) > 0 {
		fmt.Fprintf(out, "Required:     %s\n", strings.Join(req, ", "))
		fmt.Fprintf(out, "Skill match:  %.0f%%\n", a.SkillMatchScore*100)
	}
	fmt.Fprintf(out, "Duration:     %s\n", assignment.Duration(a).Round(time.Second))

	if a.TotalMessages > 0 || a.TotalInteractions > 0 {
		fmt.Fprintln(out, "\nMetrics:")
		fmt.Fprintf(out, "  Messages:       %d\n", a.TotalMessages)
		fmt.Fprintf(out, "  Interactions:   %d\n", a.TotalInteractions)
		if a.FirstResponseTime > 0 {
			fmt.Fprintf(out, "  First response: %s\n", a.FirstResponseTime)
		}
		if a.AverageResponseTime > 0 {
			fmt.Fprintf(out, "  Avg response:   %s\n", a.AverageResponseTime)
		}
		if a.ResolutionTime > 0 {
			fmt.Fprintf(out, "  Resolution:     %s\n", a.ResolutionTime)
		}
	}

	if len(a.Transfers) > 0 {
		fmt.Fprintln(out, "\nTransfers:")
		for _, t := range a.Transfers {
			line := fmt.Sprintf("  [%s] %s → %s", t.CreatedAt.Format("2006-01-02 15:04"), t.FromAgent, t.ToAgent)
			if t.Reason != "" {
				line += ": " + t.Reason
			}
			fmt.Fprintln(out, line)
		}
	}

	fields, err := assignment.Fields(gormDB, a.ID)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		fmt.Fprintln(out, "\nFields:")
		for k, v := range fields {
			fmt.Fprintf(out, "  %s: %s\n", k, v)
		}
	}

	return nil
}

func newAssignmentTransferCmd() *cobra.Command {
	var (
		configPath string
		toAgent    string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "transfer <id>",
		Short: "Transfer an assignment to another agent",
		Long:  "Hands an open assignment to a new agent and records the hand-off. The SLA deadline does not change.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			a, err := assignment.Transfer(gormDB, args[0], toAgent, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s to %s\n", a.ID, a.AgentID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	cmd.Flags().StringVar(&toAgent, "to", "", "agent to transfer to (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "why the assignment is being handed off")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newAssignmentEscalateCmd() *cobra.Command {
	var (
		configPath string
		toAgent    string
		level      int
	)

	cmd := &cobra.Command{
		Use:   "escalate <id>",
		Short: "Escalate an assignment",
		Long:  "Raises an assignment's escalation level. Levels only increase; ownership is unchanged.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			a, err := assignment.Escalate(gormDB, args[0], toAgent, level)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Escalated %s to level %d\n", a.ID, a.EscalationLevel)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	cmd.Flags().StringVar(&toAgent, "to", "", "who to engage for the escalation")
	cmd.Flags().IntVar(&level, "level", 1, "new escalation level (must exceed the current one)")
	return cmd
}

func newAssignmentCompleteCmd() *cobra.Command {
	var (
		configPath   string
		reason       string
		satisfaction int
	)

	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete an assignment",
		Long:  "Closes an open assignment as fulfilled and records whether the SLA was met.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			var score *int
			if cmd.Flags().Changed("satisfaction") {
				score = &satisfaction
			}
			a, err := assignment.Complete(gormDB, args[0], reason, score)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Completed %s\n", a.ID)
			if a.SLAMet != nil {
				fmt.Fprintf(out, "SLA met: %t\n", *a.SLAMet)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	cmd.Flags().StringVar(&reason, "reason", "", "completion reason")
	cmd.Flags().IntVar(&satisfaction, "satisfaction", 0, "customer satisfaction score (0-5)")
	return cmd
}

func newAssignmentCancelCmd() *cobra.Command {
	var (
		configPath string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an assignment",
		Long:  "Closes an open assignment without a fulfillment outcome. The record is kept for audit.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			a, err := assignment.Cancel(gormDB, args[0], reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %s\n", a.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cmd
}

func newAssignmentPriorityCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "priority <id> <priority>",
		Short: "Change an assignment's priority",
		Long:  "Sets a new priority and recomputes the SLA deadline from the original assignment time.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			a, err := assignment.Reprioritize(gormDB, args[0], sla.Priority(args[1]), policyFromConfig(cfg))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Set %s to %s\n", a.ID, a.Priority)
			fmt.Fprintf(out, "SLA deadline: %s\n", a.SLADeadline.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	return cmd
}

func newAssignmentMetricsCmd() *cobra.Command {
	var (
		configPath   string
		firstResp    time.Duration
		avgResp      time.Duration
		resolution   time.Duration
		messages     int
		interactions int
	)

	cmd := &cobra.Command{
		Use:   "metrics <id>",
		Short: "Update assignment metrics",
		Long:  "Records response-time and volume metrics on an open assignment. Counters never decrease.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m assignment.MetricsUpdate
			if cmd.Flags().Changed("first-response") {
				m.FirstResponseTime = &firstResp
			}
			if cmd.Flags().Changed("avg-response") {
				m.AverageResponseTime = &avgResp
			}
			if cmd.Flags().Changed("resolution") {
				m.ResolutionTime = &resolution
			}
			if cmd.Flags().Changed("messages") {
				m.TotalMessages = &messages
			}
			if cmd.Flags().Changed("interactions") {
				m.TotalInteractions = &interactions
			}
			if m == (assignment.MetricsUpdate{}) {
				return fmt.Errorf("no metrics to update; use --first-response, --avg-response, --resolution, --messages, or --interactions")
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			a, err := assignment.UpdateMetrics(gormDB, args[0], m)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated metrics for %s\n", a.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	cmd.Flags().DurationVar(&firstResp, "first-response", 0, "time to first response, e.g. 5m30s")
	cmd.Flags().DurationVar(&avgResp, "avg-response", 0, "average response time")
	cmd.Flags().DurationVar(&resolution, "resolution", 0, "time to resolution")
	cmd.Flags().IntVar(&messages, "messages", 0, "total message count")
	cmd.Flags().IntVar(&interactions, "interactions", 0, "total interaction count")
	return cmd
}

func newAssignmentFieldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Manage assignment custom fields",
	}

	cmd.AddCommand(newAssignmentFieldSetCmd())
	cmd.AddCommand(newAssignmentFieldListCmd())
	return cmd
}

func newAssignmentFieldSetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "set <id> <key> <value>",
		Short: "Set a custom field",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := assignment.SetField(gormDB, args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s=%s on %s\n", args[1], args[2], args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	return cmd
}

func newAssignmentFieldListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list <id>",
		Short: "List custom fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			fields, err := assignment.Fields(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(fields) == 0 {
				fmt.Fprintf(out, "No fields for %s\n", args[0])
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tVALUE")
			for k, v := range fields {
				fmt.Fprintf(w, "%s\t%s\n", k, v)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	return cmd
}

// shortID truncates a UUID for table display.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
