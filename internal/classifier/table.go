package classifier

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

//go:embed places365_io.txt
var places365IO string

// Table maps Places365 category indices to an indoor/outdoor verdict.
// A Table is immutable once built.
type Table struct {
	names   []string
	outdoor []bool
	byName  map[string]int
}

// DefaultTable returns the bundled Places365 table. It is parsed once per
// process.
var DefaultTable = sync.OnceValues(func() (*Table, error) {
	return ParseTable(strings.NewReader(places365IO))
})

// ParseTable reads lines of the form "/<letter>/<category> <io>", where io
// is 1 for indoor and 2 for outdoor. The line number is the category index.
func ParseTable(r io.Reader) (*Table, error) {
	t := &Table{byName: make(map[string]int)}
	// base name -> first variant index, or -1 when variants disagree on io
	bases := make(map[string]int)

	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("io table line %d: expected 2 fields, got %d", line, len(fields))
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil || (v != 1 && v != 2) {
			return nil, fmt.Errorf("io table line %d: invalid io value %q", line, fields[1])
		}

		name := categoryName(fields[0])
		idx := len(t.names)
		t.names = append(t.names, name)
		t.outdoor = append(t.outdoor, v == 2)

		t.byName[name] = idx
		if base, _, ok := strings.Cut(name, "/"); ok {
			first, seen := bases[base]
			switch {
			case !seen:
				bases[base] = idx
			case first >= 0 && t.outdoor[first] != t.outdoor[idx]:
				bases[base] = -1
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("io table: %w", err)
	}

	// "arena" resolves to the first "arena/..." variant. "church" has indoor
	// and outdoor variants and stays unresolved.
	for base, idx := range bases {
		if _, taken := t.byName[base]; !taken && idx >= 0 {
			t.byName[base] = idx
		}
	}
	if len(t.names) == 0 {
		return nil, fmt.Errorf("io table: no categories")
	}
	return t, nil
}

// categoryName strips the "/x/" prefix: "/a/arena/hockey" -> "arena/hockey".
func categoryName(raw string) string {
	raw = strings.TrimPrefix(raw, "/")
	if len(raw) > 2 && raw[1] == '/' {
		raw = raw[2:]
	}
	return raw
}

// Len returns the number of categories.
func (t *Table) Len() int { return len(t.names) }

// Name returns the category name at index i.
func (t *Table) Name(i int) string {
	if i < 0 || i >= len(t.names) {
		return ""
	}
	return t.names[i]
}

// Names returns a copy of all category names in index order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Outdoor reports whether category i is an outdoor scene. ok is false for an
// index outside the table.
func (t *Table) Outdoor(i int) (outdoor, ok bool) {
	if i < 0 || i >= len(t.outdoor) {
		return false, false
	}
	return t.outdoor[i], true
}

// Lookup resolves a free-form category name ("Beach", "arena hockey",
// "/b/beach") to its index.
func (t *Table) Lookup(name string) (int, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(n, "/") {
		n = categoryName(n)
	}
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)

	if i, ok := t.byName[n]; ok {
		return i, true
	}
	// "arena_hockey" -> "arena/hockey"
	if i := strings.LastIndex(n, "_"); i > 0 {
		if idx, ok := t.byName[n[:i]+"/"+n[i+1:]]; ok {
			return idx, true
		}
	}
	return 0, false
}
