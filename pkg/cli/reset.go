package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/vantage-health/visor/pkg/data"
)

var resetCmd = &cli.Command{
	Name:            "reset",
	Usage:           "Delete the recorded inference history and start fresh",
	HideHelpCommand: true,
	Flags:           []cli.Flag{debugFlag},
	Action:          cmdReset,
}

func cmdReset(c *cli.Context) error {
	cfg := getConfig(c)

	if strings.HasPrefix(cfg.DSN, "postgres") {
		return fmt.Errorf("reset only supports local sqlite databases, not %s", cfg.DSN)
	}

	fmt.Printf("This will permanently delete all recorded inferences in %s\n", cfg.DSN)
	fmt.Print("Are you sure? [y/N]: ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		fmt.Println("Aborted.")
		return nil
	}

	// close the store before deleting the file
	if cfg.Store != nil {
		cfg.Store.Close()
		cfg.Store = nil
	}

	if err := os.Remove(cfg.DSN); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting database: %w", err)
	}

	slog.Info("database deleted", "path", cfg.DSN)

	store, err := data.Init(cfg.DSN)
	if err != nil {
		return fmt.Errorf("re-initializing database: %w", err)
	}
	cfg.Store = store

	slog.Info("database re-initialized", "path", cfg.DSN)
	fmt.Println("Reset complete.")
	return nil
}
