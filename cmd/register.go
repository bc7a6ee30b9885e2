package cmd

import (
	"fmt"

	"github.com/kozaktomas/presence-check/internal/capture"
	"github.com/kozaktomas/presence-check/internal/verification"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <agent-id>",
	Short: "Register an agent's reference face and base location",
	Long: `Captures a frame (from --image or the configured snapshot camera), checks
that it holds exactly one face and stores its embedding together with the
current position as the agent's base. A previous registration is replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("image", "", "Image file to use instead of the camera")
	addLocationFlags(registerCmd)
}

// cameraFromFlags returns a file camera for --image, or nil for the configured camera.
func cameraFromFlags(cmd *cobra.Command) capture.Camera {
	if path := mustGetString(cmd, "image"); path != "" {
		return capture.FileCamera{Path: path}
	}
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
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

	tmpl, err := engine.Register(ctx, verification.RegisterRequest{
		AgentID:  args[0],
		Location: manual,
		Camera:   cameraFromFlags(cmd),
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Printf("Agent:      %s\n", tmpl.AgentID)
	fmt.Printf("Base:       %s\n", tmpl.Base)
	fmt.Printf("Embedding:  %d dimensions (%s)\n", tmpl.Dim(), tmpl.Model)
	fmt.Printf("Registered: %s\n", tmpl.RegisteredAt.Format("2006-01-02 15:04:05"))
	return nil
}
