package cmd

import (
	"fmt"

	"github.com/kozaktomas/presence-check/internal/agent"
	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List registered agents",
	Args:  cobra.NoArgs,
	RunE:  runAgents,
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <agent-id>",
	Short: "Show one agent's registration",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsShow,
}

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.AddCommand(agentsShowCmd)
}

func runAgents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	templates, err := b.templates.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list registrations: %w", err)
	}
	if len(templates) == 0 {
		fmt.Println("No agents registered")
		return nil
	}

	fmt.Printf("%-10s %-26s %-5s %s\n", "AGENT", "BASE", "DIM", "REGISTERED")
	for _, t := range templates {
		fmt.Printf("%-10s %-26s %-5d %s\n", t.AgentID, t.Base, t.Dim(), t.RegisteredAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("\nTotal: %d agents\n", len(templates))
	return nil
}

func runAgentsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := agent.ParseID(args[0])
	if err != nil {
		return err
	}

	_, b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	tmpl, err := b.templates.GetTemplate(ctx, id.String())
	if err != nil {
		return fmt.Errorf("failed to load registration: %w", err)
	}
	if tmpl == nil {
		return fmt.Errorf("agent %s is not registered", id)
	}

	fmt.Printf("Agent:      %s\n", tmpl.AgentID)
	fmt.Printf("Base:       %s\n", tmpl.Base)
	fmt.Printf("Embedding:  %d dimensions\n", tmpl.Dim())
	if tmpl.Model != "" {
		fmt.Printf("Model:      %s\n", tmpl.Model)
	}
	fmt.Printf("Image:      %d bytes\n", len(tmpl.Image))
	fmt.Printf("Registered: %s\n", tmpl.RegisteredAt.Format("2006-01-02 15:04:05"))
	return nil
}
