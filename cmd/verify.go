package cmd

import (
	"fmt"

	"github.com/kozaktomas/presence-check/internal/verification"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <agent-id>",
	Short: "Verify an agent's attendance",
	Long: `Captures a frame, matches it against the agent's registered face and
checks the distance to the base location. Validated and rejected attempts are
appended to the journal; attempts without a registration or without exactly
one face are reported but not journaled.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("image", "", "Image file to use instead of the camera")
	addLocationFlags(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	manual, err := manualLocation(cmd)
	if err != nil {
		return err
	}

	cfg, b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	engine, err := newEngine(ctx, cfg, b, nil)
	if err != nil {
		return err
	}

	res, err := engine.Verify(ctx, verification.VerifyRequest{
		AgentID:  args[0],
		Location: manual,
		Camera:   cameraFromFlags(cmd),
	})
	if res.Outcome != nil {
		fmt.Printf("Attempt:  %s\n", res.AttemptID)
		fmt.Printf("Agent:    %s\n", res.AgentID)
		fmt.Printf("Position: %s\n", res.Current)
		fmt.Printf("Outcome:  %s\n", verification.Describe(res.Outcome))
	}
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	if res.Entry != nil {
		fmt.Printf("Journaled as %s\n", b.labels.Label(res.Entry.Status))
	}
	return verification.OutcomeError(res.Outcome)
}
