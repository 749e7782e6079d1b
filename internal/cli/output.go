package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/watzon/fnlist/internal/listing"
	"github.com/watzon/fnlist/internal/schedule"
)

// Output formats.
const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

// now is replaced in tests.
var now = time.Now

func renderFunctions(w io.Writer, format string, functions []listing.ListedFunction) error {
	if functions == nil {
		functions = []listing.ListedFunction{}
	}

	switch format {
	case formatJSON, formatYAML:
		return encode(w, format, functions)
	case formatTable:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tRUNTIME\tEXTENSION\tSCHEDULE\tNEXT RUN\tMAIN FILE")
		for _, fn := range functions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				fn.Name, fn.Runtime, dash(fn.Extension), dash(fn.Schedule), nextRun(fn.Schedule), fn.MainFile)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (expected json, yaml or table)", format)
	}
}

func renderFiles(w io.Writer, format string, files []listing.ListedFunctionFile) error {
	if files == nil {
		files = []listing.ListedFunctionFile{}
	}

	switch format {
	case formatJSON, formatYAML:
		return encode(w, format, files)
	case formatTable:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tRUNTIME\tEXTENSION\tSRC FILE")
		for _, file := range files {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", file.Name, file.Runtime, dash(file.Extension), file.SrcFile)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (expected json, yaml or table)", format)
	}
}

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// nextRun formats the next time expr fires, in UTC.
func nextRun(expr string) string {
	if expr == "" {
		return "-"
	}
	next, err := schedule.NextRun(expr, now())
	if err != nil {
		return "invalid"
	}
	return next.Format(time.RFC3339)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
