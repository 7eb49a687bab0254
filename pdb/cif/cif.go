// Package cif reads and writes CIF formatted files (the text form of
// mmCIF and of the chemical component dictionary). Unlike a reader
// that hunts for a few interesting items, we keep everything we see.
// The result is a File of Blocks of Categories, which is also exactly
// the shape the binary (bcif) codec wants.
package cif

import (
	"fmt"
	"strconv"
)

// ValueKind says whether a value in a column is really there. CIF
// uses a bare "." for inapplicable and "?" for unknown. A quoted "."
// or "?" is an ordinary value.
type ValueKind uint8

const (
	Present      ValueKind = 0
	Inapplicable ValueKind = 1 // "."
	Unknown      ValueKind = 2 // "?"
)

// Column is one column of a category. Values holds the text form.
// Mask is nil if every value is present. If not nil, it has one entry
// per row and the Values entry for a masked row is the empty string.
type Column struct {
	Name   string
	Values []string
	Mask   []ValueKind
}

// Category is a set of columns of equal length. A single data item
// (_cat.item value) is a category with one row.
type Category struct {
	Name    string
	Columns []Column
}

// Block is one data_ block. The chemical component dictionary has
// thousands of them, coordinate files usually one.
type Block struct {
	Name       string
	Categories []*Category
}

// File is a parsed CIF file.
type File struct {
	Blocks []*Block
}

// Rows returns the number of rows in the category.
func (c *Category) Rows() int {
	if len(c.Columns) == 0 {
		return 0
	}
	return len(c.Columns[0].Values)
}

// Column returns the column with this name or nil.
func (c *Category) Column(name string) *Column {
	for i := range c.Columns {
		if c.Columns[i].Name == name {
			return &c.Columns[i]
		}
	}
	return nil
}

// Category returns the category with this name, without the leading
// underscore, or nil. Asking for "atom_site" finds "_atom_site.xyz"
// columns.
func (b *Block) Category(name string) *Category {
	for _, c := range b.Categories {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddCategory appends a category and returns it. If a category of
// the same name already exists (split tables happen in hand-edited
// files) the existing one is returned so the caller can merge into
// it. The parser insists a reopened table carries the same items.
func (b *Block) AddCategory(name string) *Category {
	if c := b.Category(name); c != nil {
		return c
	}
	c := &Category{Name: name}
	b.Categories = append(b.Categories, c)
	return c
}

// Block returns the block with this name or nil.
func (f *File) Block(name string) *Block {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Ok returns true if row i holds a real value.
func (col *Column) Ok(i int) bool {
	if col.Mask == nil {
		return true
	}
	return col.Mask[i] == Present
}

// Int parses row i as an integer.
func (col *Column) Int(i int) (int, error) {
	v, err := strconv.Atoi(col.Values[i])
	if err != nil {
		return 0, fmt.Errorf("column %s row %d: %w", col.Name, i, err)
	}
	return v, nil
}

// Float parses row i as a float.
func (col *Column) Float(i int) (float64, error) {
	v, err := strconv.ParseFloat(col.Values[i], 64)
	if err != nil {
		return 0, fmt.Errorf("column %s row %d: %w", col.Name, i, err)
	}
	return v, nil
}

// setMasked records a masked value at the next row of the column.
// The mask slice is only materialised when first needed.
func (col *Column) setMasked(kind ValueKind) {
	if col.Mask == nil {
		col.Mask = make([]ValueKind, len(col.Values))
	}
	col.Values = append(col.Values, "")
	col.Mask = append(col.Mask, kind)
}

// setValue records a present value at the next row of the column.
func (col *Column) setValue(s string) {
	col.Values = append(col.Values, s)
	if col.Mask != nil {
		col.Mask = append(col.Mask, Present)
	}
}
