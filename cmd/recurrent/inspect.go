package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/floats"

	"github.com/samcharles93/recurrent/internal/checkpoint"
)

type tensorSummary struct {
	Name  string  `json:"name"`
	Shape []int   `json:"shape"`
	Norm  float64 `json:"l2_norm"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type checkpointSummary struct {
	Path          string          `json:"path"`
	FormatVersion int             `json:"format_version"`
	VocabSize     int             `json:"vocab_size"`
	HiddenSize    int             `json:"hidden_size"`
	ContextWindow int             `json:"context_window"`
	InputSize     int             `json:"input_size"`
	OutputSize    int             `json:"output_size"`
	Parameters    int             `json:"parameters"`
	Tensors       []tensorSummary `json:"tensors"`
}

func inspectCmd() *cli.Command {
	var (
		path    string
		asJSON  bool
		noStats bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect a model checkpoint",
		ArgsUsage: "[checkpoint]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to the model checkpoint (JSON)",
				Value:       "model.json",
				Sources:     cli.EnvVars(envModelPath),
				Destination: &path,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the summary as JSON",
				Destination: &asJSON,
			},
			&cli.BoolFlag{
				Name:        "no-stats",
				Usage:       "skip per-tensor statistics",
				Destination: &noStats,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 0 {
				path = cmd.Args().First()
			} else if cfg.ModelPath != "" && !cmd.IsSet("model") {
				path = cfg.ModelPath
			}

			summary, err := summarize(path, !noStats)
			if err != nil {
				return err
			}
			if asJSON {
				out, err := json.MarshalIndent(summary, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			printSummary(summary, !noStats)
			return nil
		},
	}
}

func summarize(path string, stats bool) (*checkpointSummary, error) {
	rec, err := checkpoint.ReadRecord(path)
	if err != nil {
		return nil, err
	}
	window, err := rec.Window()
	if err != nil {
		return nil, err
	}
	params, err := rec.Params()
	if err != nil {
		return nil, err
	}

	s := &checkpointSummary{
		Path:          path,
		FormatVersion: rec.FormatVersion,
		VocabSize:     rec.OutputSize,
		HiddenSize:    rec.HiddenSize,
		ContextWindow: window,
		InputSize:     rec.InputSize,
		OutputSize:    rec.OutputSize,
	}
	for _, nt := range params.Named(rec.OutputSize, rec.HiddenSize) {
		data := nt.T.Data()
		s.Parameters += len(data)
		ts := tensorSummary{Name: nt.Name, Shape: nt.T.Shape()}
		if stats && len(data) > 0 {
			ts.Norm = floats.Norm(data, 2)
			ts.Min = floats.Min(data)
			ts.Max = floats.Max(data)
		}
		s.Tensors = append(s.Tensors, ts)
	}
	return s, nil
}

func printSummary(s *checkpointSummary, stats bool) {
	fmt.Printf("checkpoint:     %s\n", s.Path)
	fmt.Printf("format version: %d\n", s.FormatVersion)
	fmt.Printf("vocab size:     %d\n", s.VocabSize)
	fmt.Printf("hidden size:    %d\n", s.HiddenSize)
	fmt.Printf("context window: %d\n", s.ContextWindow)
	fmt.Printf("input size:     %d\n", s.InputSize)
	fmt.Printf("parameters:     %d\n", s.Parameters)
	fmt.Println()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if stats {
		_, _ = fmt.Fprintln(tw, "TENSOR\tSHAPE\tL2\tMIN\tMAX")
	} else {
		_, _ = fmt.Fprintln(tw, "TENSOR\tSHAPE")
	}
	for _, t := range s.Tensors {
		if stats {
			_, _ = fmt.Fprintf(tw, "%s\t%v\t%.4f\t%.4f\t%.4f\n", t.Name, t.Shape, t.Norm, t.Min, t.Max)
			continue
		}
		_, _ = fmt.Fprintf(tw, "%s\t%v\n", t.Name, t.Shape)
	}
	_ = tw.Flush()
}
