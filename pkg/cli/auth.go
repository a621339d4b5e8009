package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/urfave/cli/v2"
	"github.com/zalando/go-keyring"

	"github.com/vantage-health/visor/pkg/config"
)

const (
	keyFileName    = "api_key"
	keyringService = "visor"
	keyringUser    = "api_key"
)

var (
	keyFlag = &cli.StringFlag{
		Name:     "key",
		Usage:    "API key value",
		Required: true,
	}

	authCmd = &cli.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Manage the API key the serve command requires from callers",
		Subcommands: []*cli.Command{
			{
				Name:   "set",
				Usage:  "Store the API key in the OS keychain",
				Action: cmdAuthSet,
				Flags:  []cli.Flag{keyFlag},
			},
			{
				Name:   "clear",
				Usage:  "Remove the stored API key",
				Action: cmdAuthClear,
			},
		},
	}
)

func cmdAuthSet(c *cli.Context) error {
	if err := saveAPIKey(c.String(keyFlag.Name)); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}
	fmt.Println("API key saved")
	return nil
}

func cmdAuthClear(_ *cli.Context) error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil {
		slog.Debug("keychain delete failed", "error", err)
	}
	home, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		return err
	}
	if err := os.Remove(path.Join(home, keyFileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing key file: %w", err)
	}
	fmt.Println("API key cleared")
	return nil
}

func saveAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if err := keyring.Set(keyringService, keyringUser, key); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return saveAPIKeyFile(key)
	}

	// Clean up the fallback file if it exists
	if home, _, err := config.GetOrCreateHomeDir(appName); err == nil {
		os.Remove(path.Join(home, keyFileName))
	}
	return nil
}

func getAPIKey() (string, error) {
	// Try keychain first
	key, err := keyring.Get(keyringService, keyringUser)
	if err == nil && key != "" {
		return key, nil
	}

	// Fall back to file
	return getAPIKeyFile()
}

func saveAPIKeyFile(key string) error {
	home, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		return err
	}
	return os.WriteFile(path.Join(home, keyFileName), []byte(key), 0600)
}

func getAPIKeyFile() (string, error) {
	home, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		return "", err
	}
	keyPath := path.Join(home, keyFileName)
	b, err := os.ReadFile(keyPath)
	if err != nil {
		return "", fmt.Errorf("reading key file %s: %w", keyPath, err)
	}
	return string(b), nil
}
