/*
Cif2bcif converts a structure file from text mmCIF to binary CIF.
The binary form keeps every category and every value, so converting
back gives the same data. Numeric columns are packed and the whole
payload is compressed, which usually shrinks a coordinate file by a
factor of four or so against the gzipped text.

Usage:
	cif2bcif [flags] [infile [outfile]]

The flags are:
	-z compression
		none, gzip, zstd or lz4. The default is zstd.
	-p column=decimals
		Store a float column with this many decimals instead of
		what was seen in the text. May be repeated.
	-k category
		Keep only the named category. May be repeated. Handy for
		stripping a coordinate file down to atom_site.
	-v
		Report the number of bytes written.

With no filenames it is a filter from stdin to stdout. Do not just
type the command name, it will sit waiting on stdin.
*/
package main
