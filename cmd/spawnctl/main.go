// Command spawnctl drives a running spawnd over its admin API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/udisondev/npcspawn/internal/admin"
	"github.com/udisondev/npcspawn/internal/config"
)

var (
	addrFlag    string
	apiKeyFlag  string
	timeoutFlag time.Duration
)

// RootCmd is the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "spawnctl",
	Short: "Control the NPC spawn scheduler",
	Long: `spawnctl talks to the spawnd admin API: reload declarations,
force respawns, reset areas and inspect spawn entries.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	_ = config.LoadEnvFile(".env")

	RootCmd.PersistentFlags().StringVar(&addrFlag, "addr", envOr(config.EnvAdminAddress, "127.0.0.1:7080"), "admin API address")
	RootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", os.Getenv(config.EnvAdminAPIKey), "admin API key")
	RootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 30*time.Second, "request timeout")
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newClient() *admin.Client {
	c := admin.NewClient(addrFlag, apiKeyFlag)
	c.HTTPClient.Timeout = timeoutFlag
	return c
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
