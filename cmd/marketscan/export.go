package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuki-osaki/marketscan/internal/config"
	"github.com/yuki-osaki/marketscan/internal/sink"
)

// NewExportCmd creates the export command.
// This command reads product records stored by previous crawls.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [item-id]",
		Short: "Export stored product records",
		Long: `Export reads the product database written by 'marketscan crawl' and
prints the stored records.

Without arguments it lists the most recently updated products. With an
item identifier it prints that single record in full.

Examples:
  # List the 20 most recently updated products
  marketscan export

  # List everything as JSON Lines
  marketscan export --json --limit 0

  # Show one product in full
  marketscan export B0ABCD1234

  # Read a database written with 'crawl --db'
  marketscan export --db ./products.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExportCmd,
	}

	cmd.Flags().String("db", filepath.Join(config.XDGDataDir(), dbFileName),
		"SQLite database to read")
	cmd.Flags().IntP("limit", "l", 20,
		"Maximum number of records to list (0 = all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output records as JSON Lines instead of a table")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, args []string) error {
	dbPath, err := cmd.Flags().GetString("db")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	// Opening creates an empty database, which would mask a wrong path
	// with a confusing "no records" message.
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("product database not found: %s (run 'marketscan crawl' first)", dbPath)
	}

	db, err := sink.NewSQLiteSink(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open product database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Read-only usage

	ctx := context.Background()

	if len(args) == 1 {
		return exportItem(ctx, db, args[0])
	}
	return exportList(ctx, db, limit, jsonOutput)
}

// exportItem prints one record in full as indented JSON.
func exportItem(ctx context.Context, db *sink.SQLiteSink, itemID string) error {
	rec, err := db.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("item %s not found", itemID)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rec)
}

// exportList prints stored records, newest first.
func exportList(ctx context.Context, db *sink.SQLiteSink, limit int, jsonOutput bool) error {
	records, err := db.List(ctx, limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No products stored.")
		fmt.Println("\nUse 'marketscan crawl <keyword>' to crawl a marketplace.")
		return nil
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		for _, rec := range records {
			if err := encoder.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	}

	total, err := db.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Stored products (showing %d of %d):\n\n", len(records), total)
	fmt.Printf("  %-12s  %-12s  %s\n", "Item", "Price", "Title")
	fmt.Println("  " + strings.Repeat("-", 60))
	for _, rec := range records {
		fmt.Printf("  %-12s  %-12s  %s\n", rec.ID, rec.Price, truncateTitle(rec.Title, 50))
	}
	fmt.Println("\nUse 'marketscan export <item-id>' to see a record in full.")

	return nil
}

// truncateTitle shortens long titles for the table view.
func truncateTitle(title string, max int) string {
	title = strings.TrimSpace(title)
	if len(title) <= max {
		return title
	}
	return title[:max-3] + "..."
}
