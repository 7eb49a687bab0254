/*
Ccdgen downloads the wwPDB chemical component dictionary and the
component frequency table, filters out the components seen too
rarely to matter, and writes three artifacts: the residue dictionary
as JSON, the retained components as binary CIF and the frequency
table as it came. The downloads and the built artifacts are cached
by the content hash of the sources, so a rerun with unchanged
sources does no work beyond a hash.

Usage:
	ccdgen [flags]

The flags are:
	-c file
		YAML config file. Any field left out keeps its default.
	-f
		Force a new download and build, ignoring the cache.
*/
package main
