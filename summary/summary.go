// Package summary aggregates a record log into per-needle counts.
//
// Records are grouped by needle name. Each group reports its match count
// and the largest offset seen, and groups are ordered by happiness level
// (descending), count (descending) and name.
package summary

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hupe1980/haystack/codec"
	"github.com/hupe1980/haystack/record"
)

// Entry is the aggregate for one needle.
type Entry struct {
	Name           string
	HappinessLevel uint8
	Count          uint64
	MaxOffset      uint64
}

// Config controls aggregation and rendering.
type Config struct {
	// MaxRows limits the rendered rows. Zero renders all of them.
	MaxRows int
	// Width caps the table width in cells. Zero leaves it unbounded.
	Width int
	// Styled renders a bold header.
	Styled bool
	// Codec decodes records. Defaults to codec.Default.
	Codec codec.Codec
}

// Aggregate reads records, one per line, and returns the sorted entries.
// Blank lines are skipped. A partially written last line, as left by an
// interrupted scan, is ignored.
func Aggregate(r io.Reader, c codec.Codec) ([]Entry, error) {
	if c == nil {
		c = codec.Default
	}

	groups := make(map[string]*Entry)
	br := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadBytes('\n')
		complete := err == nil
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}

		if line = bytes.TrimSpace(line); len(line) > 0 {
			var rec record.Record
			if uerr := c.Unmarshal(line, &rec); uerr != nil {
				if !complete {
					break
				}
				return nil, fmt.Errorf("summary: line %d: %w", lineNo, uerr)
			}
			add(groups, &rec)
		}
		if !complete {
			break
		}
	}

	entries := make([]Entry, 0, len(groups))
	for _, e := range groups {
		entries = append(entries, *e)
	}
	Sort(entries)
	return entries, nil
}

func add(groups map[string]*Entry, rec *record.Record) {
	e, ok := groups[rec.Name]
	if !ok {
		e = &Entry{Name: rec.Name, HappinessLevel: rec.HappinessLevel}
		groups[rec.Name] = e
	}
	e.Count++
	e.MaxOffset = max(e.MaxOffset, rec.MatchStartGlobalOffset)
}

// Sort orders entries by happiness level descending, count descending, then
// name ascending.
func Sort(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.HappinessLevel, a.HappinessLevel); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// LoadFile aggregates the record log at path.
func LoadFile(ctx context.Context, path string, cfg Config) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Aggregate(f, cfg.Codec)
}

// Render draws the entries as a table.
func Render(entries []Entry, cfg Config) string {
	shown := entries
	if cfg.MaxRows > 0 && len(shown) > cfg.MaxRows {
		shown = shown[:cfg.MaxRows]
	}

	rows := make([][]string, 0, len(shown))
	for _, e := range shown {
		rows = append(rows, []string{
			e.Name,
			strconv.Itoa(int(e.HappinessLevel)),
			strconv.FormatUint(e.Count, 10),
			"0x" + record.FormatOffset(e.MaxOffset, record.OffsetWidth),
		})
	}

	header := lipgloss.NewStyle()
	if cfg.Styled {
		header = header.Bold(true)
	}
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("name", "happiness_level", "count", "max_offset").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header.Padding(0, 1)
			}
			return cell
		})
	if cfg.Width > 0 {
		t = t.Width(cfg.Width)
	}

	out := t.String()
	if hidden := len(entries) - len(shown); hidden > 0 {
		out += fmt.Sprintf("\n… %d more needles", hidden)
	}
	return out
}

// Summarize aggregates the record log at path and renders it.
func Summarize(ctx context.Context, path string, cfg Config) (string, error) {
	entries, err := LoadFile(ctx, path, cfg)
	if err != nil {
		return "", err
	}
	return Render(entries, cfg), nil
}
