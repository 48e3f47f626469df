package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"personalfinance/internal/extractor"
	"personalfinance/internal/parser"
)

// newParseCmd is a debugging aid: parse a statement file without
// touching the database and print what the importer would stage.
func newParseCmd() *cobra.Command {
	var hintFlag string

	cmd := &cobra.Command{
		Use:   "parse <statement.pdf|statement.csv>",
		Short: "Parse a statement file and print the candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			var hint *time.Time
			if hintFlag != "" {
				d, err := time.Parse("2006-01-02", hintFlag)
				if err != nil {
					return fmt.Errorf("--statement-date must be YYYY-MM-DD")
				}
				hint = &d
			}

			var (
				doc *extractor.Document
				err error
			)
			switch strings.ToLower(filepath.Ext(path)) {
			case ".csv":
				data, rerr := os.ReadFile(path)
				if rerr != nil {
					return rerr
				}
				doc, err = extractor.ExtractCSV(data)
			case ".pdf":
				doc, err = extractor.ExtractPDF(path)
			default:
				return fmt.Errorf("unsupported file type %q", filepath.Ext(path))
			}
			if err != nil {
				return err
			}

			p := parser.New(cfg.Import.FutureFraction)
			result := p.Parse(doc, parser.Options{Hint: hint})

			for _, w := range doc.Warnings {
				fmt.Println("WARNING:", w)
			}
			for _, d := range result.Diagnostics {
				fmt.Println("SKIPPED:", d)
			}

			fmt.Printf("\n%d candidate(s):\n", len(result.Candidates))
			for _, c := range result.Candidates {
				date := "??????????"
				if c.HasDate {
					date = c.Date.Format("2006-01-02")
					if c.YearInferred {
						date += "*"
					}
				}
				fmt.Printf("  p%d:%-4d %-11s %-8s %10s  %-10s %s\n",
					c.Page, c.LineIndex, date, c.Type, c.Amount.StringFixed(2), c.Category, c.Description)
			}
			if n := countInferred(result); n > 0 {
				fmt.Printf("\n* %d date(s) had their year inferred\n", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hintFlag, "statement-date", "", "statement date hint (YYYY-MM-DD)")
	return cmd
}

func countInferred(r *parser.Result) int {
	n := 0
	for _, c := range r.Candidates {
		if c.YearInferred {
			n++
		}
	}
	return n
}
