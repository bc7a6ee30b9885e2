package cmd

import (
	"fmt"
	"os"

	"github.com/google/renameio"
	"github.com/kozaktomas/presence-check/internal/agent"
	"github.com/kozaktomas/presence-check/internal/audit"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect, export and import the attendance journal",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries in chronological order",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the journal as CSV",
	Long: `Writes the journal with a header row, using the configured language for
column names and status labels and the configured timezone for timestamps.`,
	Args: cobra.NoArgs,
	RunE: runJournalExport,
}

var journalImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Append entries from an existing CSV journal",
	Long: `Reads a journal_presence.csv file (French or neutral labels, header row
optional) and appends every entry to the configured journal backend in file
order. Use it once when moving from the CSV journal to a database.`,
	Args: cobra.ExactArgs(1),
	RunE: runJournalImport,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd, journalExportCmd, journalImportCmd)

	journalListCmd.Flags().String("agent", "", "Only show entries for this agent")
	journalExportCmd.Flags().String("agent", "", "Only export entries for this agent")
	journalExportCmd.Flags().StringP("output", "o", "-", "Output file (- for stdout)")
}

// journalFilter builds a filter from --agent.
func journalFilter(cmd *cobra.Command) (audit.Filter, error) {
	id := mustGetString(cmd, "agent")
	if id == "" {
		return audit.Filter{}, nil
	}
	parsed, err := agent.ParseID(id)
	if err != nil {
		return audit.Filter{}, err
	}
	return audit.Filter{AgentID: parsed.String()}, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	filter, err := journalFilter(cmd)
	if err != nil {
		return err
	}

	_, b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	entries, err := b.journal.Query(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to query journal: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("Journal is empty")
		return nil
	}

	fmt.Printf("%-10s %-19s %12s %12s %8s  %s\n", "AGENT", "TIMESTAMP", "LATITUDE", "LONGITUDE", "DIST_M", "STATUS")
	for _, e := range audit.InLocation(entries, b.loc) {
		fmt.Printf("%-10s %-19s %12.6f %12.6f %8d  %s\n",
			e.AgentID, e.Timestamp.Format(audit.TimestampLayout), e.Latitude, e.Longitude, e.DistanceMeters, b.labels.Label(e.Status))
	}
	fmt.Printf("\nTotal: %d entries\n", len(entries))
	return nil
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	filter, err := journalFilter(cmd)
	if err != nil {
		return err
	}

	_, b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	entries, err := b.journal.Query(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to query journal: %w", err)
	}
	entries = audit.InLocation(entries, b.loc)

	output := mustGetString(cmd, "output")
	if output == "-" {
		return audit.Encode(os.Stdout, entries, b.labels)
	}
	pf, err := renameio.TempFile("", output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer pf.Cleanup()
	if err := audit.Encode(pf, entries, b.labels); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d entries to %s\n", len(entries), output)
	return nil
}

func runJournalImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	entries, err := audit.Decode(f, b.loc)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}
	if len(entries) == 0 {
		fmt.Println("Nothing to import")
		return nil
	}

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Importing entries"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("entries"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	// Entries are appended one by one so the journal keeps file order.
	for i, e := range entries {
		if err := b.journal.Append(ctx, e); err != nil {
			bar.Finish()
			return fmt.Errorf("failed to append entry %d: %w", i+1, err)
		}
		bar.Add(1)
	}
	bar.Finish()

	fmt.Printf("\nImported %d entries\n", len(entries))
	return nil
}
