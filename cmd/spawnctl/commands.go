package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/udisondev/npcspawn/internal/admin"
	"github.com/udisondev/npcspawn/internal/model"
)

var (
	roomFilter string
	areaFilter string

	registerReq admin.RegisterRequest
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := newClient().Health(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s entries, %s ticks\n",
			h.Status, humanize.Comma(int64(h.Entries)), humanize.Comma(int64(h.Ticks)))
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-read spawn declarations and repopulate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := newClient().Reload(cmd.Context())
		return reportSpawned(cmd.OutOrStdout(), n, err)
	},
}

var respawnCmd = &cobra.Command{
	Use:   "respawn <room>",
	Short: "Force respawn of every entry in a room (id, #id or key)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := newClient().ForceRespawn(cmd.Context(), args[0])
		return reportSpawned(cmd.OutOrStdout(), n, err)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <area>",
	Short: "Despawn and repopulate every entry of an area",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := newClient().ResetArea(cmd.Context(), args[0])
		return reportSpawned(cmd.OutOrStdout(), n, err)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List spawn entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := newClient().List(cmd.Context(), roomFilter, areaFilter)
		if err != nil {
			return err
		}
		return printEntries(cmd.OutOrStdout(), entries, time.Now())
	},
}

var showCmd = &cobra.Command{
	Use:   "show <entry-id>",
	Short: "Show one spawn entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("entry id: %w", err)
		}
		sum, err := newClient().Entry(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printEntries(cmd.OutOrStdout(), []model.EntrySummary{sum}, time.Now())
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <area> <template> <room>",
	Short: "Register a new spawn entry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := registerReq
		req.Area = args[0]
		req.Template = numericOrString(args[1])
		req.Room = numericOrString(args[2])

		sum, err := newClient().Register(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printEntries(cmd.OutOrStdout(), []model.EntrySummary{sum}, time.Now())
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <entry-id>",
	Short: "Stop scheduling a spawn entry (its NPCs stay)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("entry id: %w", err)
		}
		if err := newClient().Remove(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "removed", id)
		return nil
	},
}

var killCmd = &cobra.Command{
	Use:   "kill <object-id>",
	Short: "Kill a live NPC and schedule its respawn",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		objectID, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("object id: %w", err)
		}
		if err := newClient().Kill(cmd.Context(), uint32(objectID)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "killed", objectID)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&roomFilter, "room", "", "filter by room (id, #id or key)")
	listCmd.Flags().StringVar(&areaFilter, "area", "", "filter by area")

	registerCmd.Flags().Int32Var(&registerReq.MaxCount, "max", 1, "max simultaneous NPCs")
	registerCmd.Flags().Float64Var(&registerReq.RespawnDelay, "delay", 60, "respawn delay in seconds")

	RootCmd.AddCommand(statusCmd, reloadCmd, respawnCmd, resetCmd, listCmd, showCmd, registerCmd, removeCmd, killCmd)
}

func reportSpawned(out io.Writer, n int, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "spawned %s NPCs\n", humanize.Comma(int64(n)))
	return nil
}

// numericOrString keeps "20001" numeric so the server sees an id rather than a key.
func numericOrString(s string) any {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id
	}
	return s
}

func printEntries(out io.Writer, entries []model.EntrySummary, now time.Time) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAREA\tTEMPLATE\tROOM\tLIVE\tPENDING\tDELAY\tLAST SPAWN\tSTATE")
	for _, e := range entries {
		last := "never"
		if !e.LastSpawnAt.IsZero() {
			last = humanize.RelTime(e.LastSpawnAt, now, "ago", "from now")
		}
		state := "active"
		if e.Disabled {
			state = "disabled"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\t%s\n",
			e.ID, e.Area, e.Template, e.Room,
			e.Live, e.MaxCount, e.Pending,
			time.Duration(e.RespawnDelaySeconds)*time.Second,
			last, state)
	}
	return tw.Flush()
}
