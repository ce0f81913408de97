package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/wippyai/anyhandle"
	"github.com/wippyai/anyhandle/registry"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	hitStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98"))
	missStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// row is one rendered registry entry.
type row struct {
	name   string
	typ    string
	value  string
	id     registry.ID
	owners int
}

func snapshot(table *registry.Table) []row {
	var rows []row
	table.Each(func(e registry.Entry) bool {
		h, ok := table.Get(e.ID)
		if !ok {
			return true
		}
		rows = append(rows, row{
			id:   e.ID,
			name: e.Name,
			typ:  e.Type.String(),
			// Our clone counts as one owner.
			owners: h.RefCount() - 1,
			value:  formatValue(h.Load()),
		})
		h.Release()
		return true
	})
	return rows
}

// formatValue renders v in the syntax parseValue accepts for its kind.
func formatValue(v any) string {
	switch v := v.(type) {
	case []string:
		return strings.Join(v, ", ")
	case Record:
		return strconv.FormatInt(v.Value, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncate cuts s to width terminal cells without splitting a rune.
func truncate(s string, width int) string {
	if width <= 0 || ansi.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return ansi.Truncate(s, width, "")
	}
	return ansi.Truncate(s, width, "...")
}

// printListing writes one line per entry. width <= 0 disables truncation.
func printListing(w io.Writer, table *registry.Table, width int) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-4s %-12s %-18s %-6s %s", "ID", "NAME", "TYPE", "OWNERS", "VALUE")))
	for _, r := range snapshot(table) {
		line := fmt.Sprintf("%-4d %-12s %-18s %-6d %s", r.id, r.name, r.typ, r.owners, r.value)
		fmt.Fprintln(w, truncate(line, width))
	}
}

// probeResult records one downcast attempt.
type probeResult struct {
	err   error
	name  string
	value string
	id    registry.ID
}

// probe tries to downcast every entry to the Go type of kind.
func probe(table *registry.Table, kind string) ([]probeResult, error) {
	switch kind {
	case "int":
		return probeAs[int64](table), nil
	case "float":
		return probeAs[float64](table), nil
	case "string":
		return probeAs[string](table), nil
	case "bool":
		return probeAs[bool](table), nil
	case "record":
		return probeAs[Record](table), nil
	case "tags":
		return probeAs[[]string](table), nil
	default:
		return nil, fmt.Errorf("unknown kind %q (want one of %s)", kind, strings.Join(kinds, ", "))
	}
}

func probeAs[T any](table *registry.Table) []probeResult {
	var results []probeResult
	table.Each(func(e registry.Entry) bool {
		erased, ok := table.Get(e.ID)
		if !ok {
			return true
		}
		res := probeResult{id: e.ID, name: e.Name}
		h, err := anyhandle.Downcast[T](erased)
		if err != nil {
			res.err = err
			erased.Release()
		} else {
			res.value = formatValue(h.Load())
			h.Release()
		}
		results = append(results, res)
		return true
	})
	return results
}

func printProbe(w io.Writer, kind string, results []probeResult) {
	hits := 0
	for _, r := range results {
		if r.err != nil {
			fmt.Fprintf(w, "%s %-4d %-12s %v\n", missStyle.Render("miss"), r.id, r.name, r.err)
			continue
		}
		hits++
		fmt.Fprintf(w, "%s  %-4d %-12s %s\n", hitStyle.Render("hit"), r.id, r.name, r.value)
	}
	fmt.Fprintf(w, "\n%d of %d entries hold %s\n", hits, len(results), kind)
}

// editValue parses input as the kind of the entry's held type and stores
// it through an erased write guard.
func editValue(table *registry.Table, id registry.ID, input string) error {
	e, ok := table.Get(id)
	if !ok {
		return fmt.Errorf("entry %s not found", strconv.FormatUint(uint64(id), 10))
	}
	defer e.Release()

	kind := kindOf(e.Type())
	if kind == "" {
		return fmt.Errorf("entry %d holds %s, which cannot be edited", id, e.Type())
	}
	v, err := parseValue(kind, input)
	if err != nil {
		return fmt.Errorf("parse %s: %w", kind, err)
	}

	g := e.Write()
	defer g.Release()
	return g.Set(v)
}
