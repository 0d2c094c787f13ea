//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Ingest screens and analyzes every PDF in papers/inbox without prompting.
func Ingest() error {
	mg.Deps(Build)
	return litreview("ingest", "--auto", "papers/inbox")
}

// Export writes the complete records in every export format into output/.
func Export() error {
	mg.Deps(Build)
	for _, format := range []string{"json", "yaml", "csv", "ris", "csl", "md"} {
		out := filepath.Join("output", "collection."+format)
		if err := litreview("export", "--format", format, "-o", out); err != nil {
			return err
		}
	}
	return nil
}

// Taxonomy writes a Markdown taxonomy of the collection to output/taxonomy.md.
func Taxonomy() error {
	mg.Deps(Build)
	return litreview("taxonomy", "-o", filepath.Join("output", "taxonomy.md"))
}

// Backup snapshots the collection to output/backup.json.
func Backup() error {
	mg.Deps(Build)
	return litreview("backup", "-o", filepath.Join("output", "backup.json"))
}

// litreview runs the built binary with args.
func litreview(args ...string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("litreview %s: %w", args[0], err)
	}
	return nil
}
