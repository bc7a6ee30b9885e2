package cmd

import (
	"fmt"

	"github.com/kozaktomas/presence-check/internal/geo"
	"github.com/spf13/cobra"
)

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
// This is appropriate for flags defined in init() - errors indicate programming bugs.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetFloat64 gets a float64 flag value or panics if the flag doesn't exist.
func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// addLocationFlags registers --lat and --lon for a manually entered position.
func addLocationFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", 0, "Manual latitude, used when no location source is configured or it fails")
	cmd.Flags().Float64("lon", 0, "Manual longitude")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
}

// manualLocation returns the --lat/--lon position, or nil when neither is set.
func manualLocation(cmd *cobra.Command) (*geo.Coordinate, error) {
	if !cmd.Flags().Changed("lat") && !cmd.Flags().Changed("lon") {
		return nil, nil
	}
	c := geo.Coordinate{
		Latitude:  mustGetFloat64(cmd, "lat"),
		Longitude: mustGetFloat64(cmd, "lon"),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
