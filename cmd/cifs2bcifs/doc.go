/*
Cifs2bcifs walks a directory of mmCIF files, plain or gzipped, and
writes a mirror tree of binary CIF files. Conversions run in
parallel. A file that cannot be converted is reported on stderr and
skipped, and the command exits nonzero at the end if anything was
skipped, so it is safe to drive from a script that checks the exit
code.

Usage:
	cifs2bcifs [flags] indir outdir

The flags are:
	-z compression
		none, gzip, zstd or lz4. The default is zstd.
	-p column=decimals
		Store a float column with this many decimals. May be repeated.
	-r n
		Convert n files at a time. Defaults to the number of CPUs.
*/
package main
