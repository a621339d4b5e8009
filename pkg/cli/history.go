package cli

import (
	"github.com/urfave/cli/v2"
)

var (
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Limits number of results returned",
		Value: 50,
	}

	daysFlag = &cli.IntFlag{
		Name:  "days",
		Usage: "Trailing window in days",
		Value: 30,
	}

	historyCmd = &cli.Command{
		Name:            "history",
		Aliases:         []string{"h"},
		HideHelpCommand: true,
		Usage:           "Query the recorded inference history",
		Action:          cmdHistoryRecent,
		Flags:           []cli.Flag{limitFlag},
		Subcommands: []*cli.Command{
			{
				Name:   "summary",
				Usage:  "Per-day decision counts over a trailing window",
				Action: cmdHistorySummary,
				Flags:  []cli.Flag{daysFlag},
			},
		},
	}
)

func cmdHistoryRecent(c *cli.Context) error {
	cfg := getConfig(c)
	list, err := cfg.Store.GetRecentInferences(c.Int(limitFlag.Name))
	if err != nil {
		return err
	}
	return encode(list)
}

func cmdHistorySummary(c *cli.Context) error {
	cfg := getConfig(c)
	sum, err := cfg.Store.GetSummary(c.Int(daysFlag.Name))
	if err != nil {
		return err
	}
	return encode(sum)
}
