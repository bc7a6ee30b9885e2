package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "presence-check",
	Short: "Face and location based attendance verification",
	Long: `Presence Check registers an agent's reference face and base location,
then verifies attendance by matching a fresh capture against the stored face
and checking the distance to the base. Every decided attempt is appended to
an attendance journal.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
