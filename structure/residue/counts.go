package residue

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// A Count is one line of the PDBe cc-counts.tdd file: a chemical
// component name and how often it turns up in the PDB.
type Count struct {
	Name string
	N    int64
}

// ReadCounts parses the tab delimited frequency file. Blank lines
// and # comments are skipped, as is a header line that does not
// have a number in the second field.
func ReadCounts(r io.Reader) ([]Count, error) {
	var counts []Count
	scnnr := bufio.NewScanner(r)
	for nline := 1; scnnr.Scan(); nline++ {
		line := strings.TrimRight(scnnr.Text(), " \t\r")
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, fmt.Errorf("cc-counts line %d: %d fields, want 2", nline, len(fields))
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			if nline == 1 {
				continue // header
			}
			return nil, fmt.Errorf("cc-counts line %d: %q is not a count", nline, fields[1])
		}
		counts = append(counts, Count{Name: fields[0], N: n})
	}
	if err := scnnr.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// FrequentNames gives the component names seen at least min times,
// sorted by name so callers get stable output.
func FrequentNames(counts []Count, min int64) []string {
	var names []string
	for _, c := range counts {
		if c.N >= min {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names
}
