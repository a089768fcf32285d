// Package db implements the commands that inspect the SQLite settings store.
package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/llm-page-context/internal/setup"
	cfgpkg "github.com/dtnitsch/llm-page-context/pkg/config"
	dbpkg "github.com/dtnitsch/llm-page-context/pkg/db"
)

// HistoryAction lists previous versions of the extraction config.
func HistoryAction(c *cli.Context) error {
	env, err := setup.Open(c)
	if err != nil {
		return err
	}
	defer env.Close()

	database, err := env.DB()
	if err != nil {
		return err
	}
	entries, err := database.History(c.Context, cfgpkg.StorageKey, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No config history found")
		return nil
	}

	// Print table header
	fmt.Printf("%-6s %-20s %-10s\n", "ID", "Replaced", "Bytes")
	fmt.Println(strings.Repeat("-", 40))
	for _, e := range entries {
		fmt.Printf("%-6d %-20s %-10d\n", e.ID, e.ReplacedAt.Format("2006-01-02 15:04:05"), len(e.Value))
	}

	fmt.Printf("\nTotal: %d versions\n", len(entries))
	fmt.Printf("\nTip: Use 'lpc db restore <id>' to bring one back\n")
	return nil
}

// RestoreAction re-imports a config version from history.
func RestoreAction(c *cli.Context) error {
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return setup.Usagef("invalid history id %q", c.Args().First())
	}
	env, err := setup.Open(c)
	if err != nil {
		return err
	}
	defer env.Close()

	database, err := env.DB()
	if err != nil {
		return err
	}
	entry, err := findEntry(c, database, id)
	if err != nil {
		return err
	}
	m, err := env.Manager(c)
	if err != nil {
		return err
	}
	issues, err := m.Import(c.Context, entry.Value)
	if err != nil {
		return fmt.Errorf("failed to restore version %d: %w", id, err)
	}
	fmt.Printf("Restored config version %d (%d field(s) reverted to defaults)\n", id, len(issues))
	return nil
}

func findEntry(c *cli.Context, database *dbpkg.DB, id int64) (dbpkg.HistoryEntry, error) {
	entries, err := database.History(c.Context, cfgpkg.StorageKey, c.Int("limit"))
	if err != nil {
		return dbpkg.HistoryEntry{}, fmt.Errorf("failed to list history: %w", err)
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return dbpkg.HistoryEntry{}, setup.Usagef("no config version %d in the last %d", id, len(entries))
}

func PathAction(c *cli.Context) error {
	env, err := setup.Open(c)
	if err != nil {
		return err
	}
	defer env.Close()

	database, err := env.DB()
	if err != nil {
		return err
	}
	fmt.Println(database.Path())
	return nil
}
