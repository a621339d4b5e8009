package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/vantage-health/visor/pkg/data"
	"github.com/vantage-health/visor/pkg/pipeline"
	"github.com/vantage-health/visor/pkg/schema"
)

var (
	inputFlag = &cli.StringFlag{
		Name:  "input",
		Usage: "Path to a JSON record file (use - for stdin)",
	}

	setFlag = &cli.StringSliceFlag{
		Name:  "set",
		Usage: "Feature value as name=value (can be specified multiple times)",
	}

	thresholdFlag = &cli.Float64Flag{
		Name:  "threshold",
		Usage: "Decision threshold in (0, 1) (default: bundle threshold)",
	}

	noSaveFlag = &cli.BoolFlag{
		Name:  "no-save",
		Usage: "Do not record the result in the inference history",
	}

	predictCmd = &cli.Command{
		Name:    "predict",
		Aliases: []string{"p"},
		Usage:   "Score a single record against the configured model bundle",
		UsageText: `visor predict --set age=65 --set hearte=1 --set edu=4
   visor predict --input record.json --threshold 0.5
   cat record.json | visor predict --input -`,
		Action: cmdPredict,
		Flags: []cli.Flag{
			inputFlag,
			setFlag,
			thresholdFlag,
			noSaveFlag,
			debugFlag,
		},
	}
)

func cmdPredict(c *cli.Context) error {
	cfg := getConfig(c)

	rec, err := readRecord(c.String(inputFlag.Name), c.StringSlice(setFlag.Name))
	if err != nil {
		return err
	}
	if len(rec) == 0 {
		return fmt.Errorf("no input: provide --input or at least one --set")
	}

	p, _, err := loadPipeline(cfg)
	if err != nil {
		return err
	}

	res, err := p.Infer(rec, resolveThreshold(c, cfg, p))
	if err != nil {
		return err
	}

	if !c.Bool(noSaveFlag.Name) {
		if err := saveResult(cfg.Store, rec, res); err != nil {
			return err
		}
	}

	return encode(res)
}

// readRecord assembles the raw input record from an optional JSON file plus
// --set overrides. Set values that parse as numbers become numbers; the
// rest stay strings for the encoder to handle.
func readRecord(input string, sets []string) (schema.Record, error) {
	rec := schema.Record{}

	if input != "" {
		var r io.Reader
		if input == "-" {
			r = os.Stdin
		} else {
			f, err := os.Open(input)
			if err != nil {
				return nil, fmt.Errorf("opening input file: %w", err)
			}
			defer f.Close()
			r = f
		}
		if err := json.NewDecoder(r).Decode(&rec); err != nil {
			return nil, fmt.Errorf("decoding input record: %w", err)
		}
	}

	for _, kv := range sets {
		name, val, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set value (want name=value): %s", kv)
		}
		rec[name] = parseValue(strings.TrimSpace(val))
	}

	return rec, nil
}

func parseValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func saveResult(store *data.Store, rec schema.Record, res *pipeline.Result) error {
	snapshot, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record snapshot: %w", err)
	}
	return store.SaveInference(&data.Inference{
		Model:       res.Model,
		Threshold:   res.Threshold,
		Probability: res.Probability,
		HighRisk:    res.HighRisk,
		Record:      string(snapshot),
	})
}
