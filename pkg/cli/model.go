package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/vantage-health/visor/pkg/bundle"
)

var (
	fileFlag = &cli.StringFlag{
		Name:     "file",
		Usage:    "Path to the bundle file to verify",
		Required: true,
	}

	modelCmd = &cli.Command{
		Name:            "model",
		Aliases:         []string{"m"},
		HideHelpCommand: true,
		Usage:           "Inspect and verify model bundles",
		Subcommands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "Describe the currently configured bundle",
				Action: cmdModelInfo,
			},
			{
				Name:   "verify",
				Usage:  "Validate and build a bundle file without serving it",
				Action: cmdModelVerify,
				Flags:  []cli.Flag{fileFlag},
			},
			{
				Name:   "list",
				Usage:  "List bundles embedded in the binary",
				Action: cmdModelList,
			},
		},
	}
)

func cmdModelInfo(c *cli.Context) error {
	cfg := getConfig(c)
	pipe, b, err := loadPipeline(cfg)
	if err != nil {
		return err
	}
	return encode(makeModelInfo(pipe, b))
}

func cmdModelVerify(c *cli.Context) error {
	path := c.String(fileFlag.Name)

	b, err := bundle.Load(path)
	if err != nil {
		return err
	}
	pipe, err := b.Build()
	if err != nil {
		return err
	}

	fmt.Printf("OK: %s builds a %s pipeline with %d features\n", path, pipe.Model(), pipe.Schema().Len())
	return nil
}

func cmdModelList(_ *cli.Context) error {
	return encode(bundle.EmbeddedNames())
}
