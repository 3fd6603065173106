package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"

	"booklogger/api/internal/export"
)

// recordFile is the JSON shape accepted by the render command. Blocks win
// over fields/customData, which win over the legacy columns.
type recordFile struct {
	Date         string  `json:"date"`
	Hours        float64 `json:"hours"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	Energy       string  `json:"energy"`
	Location     string  `json:"location"`
	Organization string  `json:"organization"`
	DisplayName  string  `json:"displayName"`
	Title        string  `json:"title"`

	Blocks []struct {
		Label string `json:"label"`
		Value any    `json:"value"`
	} `json:"blocks"`

	Fields []struct {
		Label string `json:"label"`
		Key   string `json:"key"`
		Type  string `json:"type"`
	} `json:"fields"`
	CustomData map[string]any `json:"customData"`

	WorkedOn string `json:"workedOn"`
	Learned  string `json:"learned"`
	Blockers string `json:"blockers"`
	Ideas    string `json:"ideas"`
	Tomorrow string `json:"tomorrow"`
}

func (f recordFile) record() export.Record {
	rec := export.Record{
		Date:          f.Date,
		Duration:      export.Duration{Hours: f.Hours, Start: f.StartTime, End: f.EndTime},
		Energy:        export.Energy(f.Energy),
		Location:      f.Location,
		Organization:  f.Organization,
		DisplayName:   f.DisplayName,
		DocumentTitle: f.Title,
	}

	if len(f.Blocks) > 0 {
		for _, b := range f.Blocks {
			rec.Blocks = append(rec.Blocks, export.ContentBlock{Label: b.Label, Value: b.Value})
		}
		return rec
	}

	fields := make([]export.FieldDef, 0, len(f.Fields))
	for _, field := range f.Fields {
		fields = append(fields, export.FieldDef{Label: field.Label, Key: field.Key, Type: export.FieldType(field.Type)})
	}
	legacy := export.LegacyFields{
		WorkedOn: f.WorkedOn,
		Learned:  f.Learned,
		Blockers: f.Blockers,
		Ideas:    f.Ideas,
		Tomorrow: f.Tomorrow,
	}
	rec.Blocks = export.ResolveBlocks(fields, f.CustomData, legacy).Blocks()
	return rec
}

func readRecord(r io.Reader) (export.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return export.Record{}, fmt.Errorf("read record: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var file recordFile
	if err := decoder.Decode(&file); err != nil {
		return export.Record{}, fmt.Errorf("decode record: %w", err)
	}
	return file.record(), nil
}

func newRenderCommand(ctx context.Context) *cobra.Command {
	var (
		outDir    string
		asBase64  bool
		printInfo bool
	)

	cmd := &cobra.Command{
		Use:   "render <record.json|->",
		Short: "Render one entry record to a PDF file or base64 text.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open record: %w", err)
				}
				defer file.Close()
				in = file
			}

			rec, err := readRecord(in)
			if err != nil {
				return err
			}
			doc, err := export.Build(rec, export.DefaultStyle())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asBase64 {
				fmt.Fprintln(out, doc.Base64())
				return nil
			}

			path, err := doc.SaveToFile(outDir)
			if err != nil {
				return err
			}
			if printInfo {
				fmt.Fprintf(out, "%s (%d pages, %d bytes)\n", path, doc.Pages(), len(doc.Bytes()))
				return nil
			}
			fmt.Fprintln(out, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory the PDF is written to")
	cmd.Flags().BoolVar(&asBase64, "base64", false, "Print the PDF as base64 instead of writing a file")
	cmd.Flags().BoolVar(&printInfo, "info", false, "Print page count and size after writing")

	return cmd
}

func newDurationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duration <start> <end>",
		Short: "Print the worked duration between two HH:MM clock times.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := export.Duration{Start: args[0], End: args[1]}
			if math.IsNaN(export.ComputeHours(d.Start, d.End)) {
				return fmt.Errorf("invalid clock range %q to %q", d.Start, d.End)
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.String())
			return nil
		},
	}
}
