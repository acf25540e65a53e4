// Command diagindex summarizes a graphbuild run's text diagnostics
// log (one JSON-encoded diag.Diagnostic per line, per §7): counts by
// severity and by entity kind, and the most frequent message
// templates. It takes the log path as a single positional argument
// rather than a parsed flag, since CLI argument parsing is out of
// scope (§1) and a fixed positional path needs no parsing library.
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/ogrid/graphcore/internal/diag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "diagindex:", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) != 2 {
		return fmt.Errorf("usage: diagindex <diagnostics.log>")
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var total, warnings, dataQuality int
	byEntity := make(map[diag.EntityKind]int)
	byTemplate := make(map[string]int)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var d diag.Diagnostic
		if err := json.Unmarshal(line, &d); err != nil {
			return fmt.Errorf("decode line %d: %w", total+1, err)
		}
		total++
		if d.Kind == diag.Warning {
			warnings++
		} else {
			dataQuality++
		}
		byEntity[d.Entity]++
		byTemplate[d.Template]++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	fmt.Printf("total diagnostics: %d (warnings: %d, data-quality: %d)\n", total, warnings, dataQuality)

	fmt.Println("by entity:")
	for _, e := range []diag.EntityKind{diag.EntityNode, diag.EntityWay, diag.EntityRelation, diag.EntitySegment, diag.EntityNone} {
		if n := byEntity[e]; n > 0 {
			fmt.Printf("  %-10s %d\n", e, n)
		}
	}

	type templateCount struct {
		template string
		count    int
	}
	templates := make([]templateCount, 0, len(byTemplate))
	for t, n := range byTemplate {
		templates = append(templates, templateCount{t, n})
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].count > templates[j].count })

	fmt.Println("by message:")
	for _, tc := range templates {
		fmt.Printf("  %-50s %d\n", tc.template, tc.count)
	}
	return nil
}
