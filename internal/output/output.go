package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dshills/flowscribe/internal/report"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, r *report.Report) error
}

// Formats lists the supported output formats.
func Formats() []string {
	return []string{"markdown", "json"}
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "markdown", "md", "":
		return &MarkdownWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
// Image links in a markdown report written to a file are made relative to
// the file's directory.
func WriteReport(r *report.Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" && outPath != "-" {
		if md, ok := writer.(*MarkdownWriter); ok {
			md.BaseDir = filepath.Dir(outPath)
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, r)
}
