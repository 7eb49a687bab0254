package cif

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Write renders the file back as CIF text. One-row categories come
// out as data items, everything else as loop_ tables. The output is
// not byte-identical to what was parsed (comments and column widths
// are gone) but it parses back to the same File.
func Write(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)
	for _, blk := range f.Blocks {
		fmt.Fprintf(bw, "data_%s\n#\n", blk.Name)
		for _, cat := range blk.Categories {
			if err := writeCategory(bw, cat); err != nil {
				return err
			}
			bw.WriteString("#\n")
		}
	}
	return bw.Flush()
}

func writeCategory(bw *bufio.Writer, cat *Category) error {
	if len(cat.Columns) == 0 {
		return nil
	}
	if cat.Rows() == 1 {
		return writeItems(bw, cat)
	}
	bw.WriteString("loop_\n")
	for _, col := range cat.Columns {
		fmt.Fprintf(bw, "_%s.%s\n", cat.Name, col.Name)
	}
	for i := 0; i < cat.Rows(); i++ {
		var line strings.Builder
		for j := range cat.Columns {
			v, multiline := renderValue(&cat.Columns[j], i)
			if multiline { // semicolon fields live on lines of their own
				if line.Len() != 0 {
					bw.WriteString(line.String())
					bw.WriteByte('\n')
					line.Reset()
				}
				bw.WriteString(v)
				bw.WriteByte('\n')
				continue
			}
			if line.Len() != 0 {
				line.WriteByte(' ')
			}
			line.WriteString(v)
		}
		if line.Len() != 0 {
			bw.WriteString(line.String())
			bw.WriteByte('\n')
		}
	}
	return nil
}

// writeItems handles the one-row case. The tag column is padded so
// the values line up, which is how files from the PDB look.
func writeItems(bw *bufio.Writer, cat *Category) error {
	width := 0
	for _, col := range cat.Columns {
		if n := len(cat.Name) + len(col.Name) + 2; n > width {
			width = n
		}
	}
	for j := range cat.Columns {
		tag := "_" + cat.Name + "." + cat.Columns[j].Name
		v, multiline := renderValue(&cat.Columns[j], 0)
		if multiline {
			fmt.Fprintf(bw, "%s\n%s\n", tag, v)
			continue
		}
		fmt.Fprintf(bw, "%-*s %s\n", width, tag, v)
	}
	return nil
}

// renderValue turns one cell back into CIF text. The bool says the
// result is a whole semicolon field including its delimiters, to be
// placed on lines of its own.
func renderValue(col *Column, i int) (string, bool) {
	if col.Mask != nil {
		switch col.Mask[i] {
		case Inapplicable:
			return ".", false
		case Unknown:
			return "?", false
		}
	}
	v := col.Values[i]
	switch {
	case v == "":
		return "''", false
	case strings.ContainsRune(v, '\n'),
		strings.Contains(v, "'") && strings.Contains(v, `"`):
		return ";" + v + "\n;", true
	case strings.Contains(v, "'"):
		return `"` + v + `"`, false
	case strings.Contains(v, `"`), strings.ContainsAny(v, " \t"),
		needsQuote(v):
		return "'" + v + "'", false
	default:
		return v, false
	}
}

// needsQuote spots bare words that would be misread: placeholders,
// directives and words starting with the characters CIF reserves.
func needsQuote(v string) bool {
	if v == "." || v == "?" {
		return true
	}
	switch v[0] {
	case '_', '#', '$', '[', ']', ';':
		return true
	}
	if strings.HasPrefix(v, "data_") || strings.HasPrefix(v, "loop_") ||
		strings.HasPrefix(v, "save_") {
		return true
	}
	return false
}
