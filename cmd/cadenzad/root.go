package main

import "github.com/spf13/cobra"

// rootCmd is the base command for the cadenzad daemon.
var rootCmd = &cobra.Command{
	Use:   "cadenzad",
	Short: "Audio/visual synchronization daemon",
	Long: `cadenzad runs the cadenza sync engine against a transport clock
(an oscsync master or a fixed-tempo manual transport) and optionally bridges
the engine's notification stream onto MQTT.`,
}
