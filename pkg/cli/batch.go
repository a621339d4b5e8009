package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/vantage-health/visor/pkg/schema"
)

var (
	batchInputFlag = &cli.StringFlag{
		Name:     "input",
		Usage:    "Path to a JSONL file with one record per line (use - for stdin)",
		Required: true,
	}

	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Number of concurrent scoring workers (default: from config)",
	}

	batchCmd = &cli.Command{
		Name:  "batch",
		Usage: "Score a file of records concurrently",
		UsageText: `visor batch --input records.jsonl
   visor batch --input records.jsonl --workers 8 --threshold 0.5`,
		Action: cmdBatch,
		Flags: []cli.Flag{
			batchInputFlag,
			workersFlag,
			thresholdFlag,
			noSaveFlag,
			debugFlag,
		},
	}
)

func cmdBatch(c *cli.Context) error {
	cfg := getConfig(c)

	recs, err := readRecords(c.String(batchInputFlag.Name))
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("no records in input")
	}

	p, _, err := loadPipeline(cfg)
	if err != nil {
		return err
	}

	workers := c.Int(workersFlag.Name)
	if workers <= 0 {
		workers = cfg.Conf.Workers
	}

	results, err := p.InferAll(c.Context, recs, resolveThreshold(c, cfg, p), workers)
	if err != nil {
		return err
	}

	if !c.Bool(noSaveFlag.Name) {
		for i, res := range results {
			if err := saveResult(cfg.Store, recs[i], res); err != nil {
				return err
			}
		}
	}

	slog.Debug("batch scored", "records", len(results), "workers", workers)
	return encode(results)
}

func readRecords(input string) ([]schema.Record, error) {
	var f *os.File
	if input == "-" {
		f = os.Stdin
	} else {
		var err error
		f, err = os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("opening input file: %w", err)
		}
		defer f.Close()
	}

	var recs []schema.Record
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var rec schema.Record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return recs, nil
}
