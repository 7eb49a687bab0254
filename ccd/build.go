package ccd

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/edsrzf/mmap-go"

	"github.com/bioml-tools/bio-datasets/pdb/bcif"
	"github.com/bioml-tools/bio-datasets/pdb/cif"
	"github.com/bioml-tools/bio-datasets/pdb/zwrap"
	"github.com/bioml-tools/bio-datasets/structure/protein"
	"github.com/bioml-tools/bio-datasets/structure/residue"
)

// Artifacts are the three files a finished build leaves in the
// output directory.
type Artifacts struct {
	Dictionary string
	Components string
	Counts     string

	// FromCache is true when nothing had to be rebuilt.
	FromCache bool
}

// A Builder runs the pipeline: download, hash, build or reuse, copy
// out.
type Builder struct {
	Cfg    Config
	Client *http.Client
	Log    *log.Logger
}

// NewBuilder gives a builder with the default http client and a
// logger on stderr.
func NewBuilder(cfg Config) *Builder {
	return &Builder{
		Cfg:    cfg,
		Client: http.DefaultClient,
		Log:    log.New(os.Stderr, "ccd: ", 0),
	}
}

// Run does the whole job. force skips the cache check and rebuilds
// even when the artifacts for the current sources exist.
func (b *Builder) Run(force bool) (Artifacts, error) {
	var arts Artifacts
	dlDir := filepath.Join(b.Cfg.CacheDir, "downloads")
	if err := os.MkdirAll(dlDir, 0755); err != nil {
		return arts, err
	}
	gzPath := filepath.Join(dlDir, "components.cif.gz")
	countsPath := filepath.Join(dlDir, CountsName)
	if err := b.fetch(b.Cfg.ComponentsURL, gzPath, force); err != nil {
		return arts, err
	}
	if err := b.fetch(b.Cfg.CountsURL, countsPath, force); err != nil {
		return arts, err
	}

	key, err := buildKey(gzPath, countsPath)
	if err != nil {
		return arts, err
	}
	keyDir := b.Cfg.cacheDirFor(key)
	if !force && b.Cfg.cached(key) {
		b.Log.Printf("cache hit %.12s", key)
		arts.FromCache = true
	} else {
		b.Log.Printf("building for key %.12s", key)
		if err := b.build(gzPath, countsPath, keyDir, force); err != nil {
			return arts, err
		}
	}

	// Copy the artifacts out of the cache.
	arts.Dictionary = filepath.Join(b.Cfg.OutDir, DictionaryName)
	arts.Components = filepath.Join(b.Cfg.OutDir, ComponentsName)
	arts.Counts = filepath.Join(b.Cfg.OutDir, CountsName)
	for _, name := range artifactNames {
		if err := copyFile(filepath.Join(b.Cfg.OutDir, name),
			filepath.Join(keyDir, name)); err != nil {
			return arts, err
		}
	}
	return arts, nil
}

// fetch downloads a url to a file. An existing download is reused
// unless force is set. These files are big and the sources slow.
func (b *Builder) fetch(url, dest string, force bool) error {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			return nil
		}
	}
	b.Log.Printf("fetching %s", url)
	resp, err := b.Client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ccd: fetching %s: %s", url, resp.Status)
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// build parses the sources and writes the three artifacts into
// keyDir.
func (b *Builder) build(gzPath, countsPath, keyDir string, force bool) error {
	counts, err := readCountsFile(countsPath)
	if err != nil {
		return err
	}
	keep := make(map[string]bool)
	for _, name := range residue.FrequentNames(counts, b.Cfg.MinCount) {
		keep[name] = true
	}
	for _, name := range protein.ResidueNames {
		keep[name] = true
	}

	// The dictionary is a couple of gigabytes uncompressed, so it
	// gets decompressed next to the download once and then read
	// through a mapping instead of the heap.
	cifPath := gzPath[:len(gzPath)-len(".gz")]
	if err := decompressTo(cifPath, gzPath, force); err != nil {
		return err
	}
	fp, err := os.Open(cifPath)
	if err != nil {
		return err
	}
	defer fp.Close()
	mm, err := mmap.Map(fp, mmap.RDONLY, 0)
	if err != nil {
		return err
	}
	defer mm.Unmap()

	f, err := cif.NewReader(bytes.NewReader(mm)).Read()
	if err != nil {
		return fmt.Errorf("ccd: parsing %s: %w", cifPath, err)
	}

	kept, dict, err := filterComponents(f, keep)
	if err != nil {
		return err
	}
	b.Log.Printf("kept %d of %d components", len(kept.Blocks), len(f.Blocks))

	if err := os.MkdirAll(keyDir, 0755); err != nil {
		return err
	}
	if err := writeDictionary(filepath.Join(keyDir, DictionaryName), dict); err != nil {
		return err
	}
	out, err := os.Create(filepath.Join(keyDir, ComponentsName))
	if err != nil {
		return err
	}
	if err := bcif.Write(out, kept, nil); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return copyFile(filepath.Join(keyDir, CountsName), countsPath)
}

func readCountsFile(path string) ([]residue.Count, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return residue.ReadCounts(fp)
}

// decompressTo writes the gunzipped form of src to dest. A nonempty
// dest is reused unless force says the download just changed.
func decompressTo(dest, src string, force bool) error {
	if fi, err := os.Stat(dest); !force && err == nil && fi.Size() > 0 {
		return nil
	}
	fp, err := os.Open(src)
	if err != nil {
		return err
	}
	defer fp.Close()
	zr, err := zwrap.Wrap(fp)
	if err != nil {
		return fmt.Errorf("ccd: %s is not gzipped: %w", src, err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// filterComponents keeps the blocks of the wanted components and
// builds the residue dictionary from their chem_comp_atom tables.
// Hydrogens do not go into the dictionary. The standard amino acids
// keep their curated atom14 ordering; everything else takes the
// order the dictionary file uses.
func filterComponents(f *cif.File, keep map[string]bool) (*cif.File, *residue.Dictionary, error) {
	kept := &cif.File{}
	extraAtoms := make(map[string][]string)
	var extraNames []string
	for _, blk := range f.Blocks {
		if !keep[blk.Name] {
			continue
		}
		kept.Blocks = append(kept.Blocks, blk)
		if _, isStandard := protein.ResidueAtoms[blk.Name]; isStandard {
			continue
		}
		atoms, err := componentAtoms(blk)
		if err != nil {
			return nil, nil, err
		}
		extraAtoms[blk.Name] = atoms
		extraNames = append(extraNames, blk.Name)
	}
	sort.Strings(extraNames)

	dict := &residue.Dictionary{
		BackboneAtoms: protein.BackboneAtoms,
		UnknownName:   "UNK",
		ResidueAtoms:  make(map[string][]string),
		Conversions: []residue.Conversion{
			{From: "MSE", To: "MET", AtomSwaps: [][2]string{{"SE", "SD"}}},
			{From: "SEC", To: "CYS", AtomSwaps: [][2]string{{"SE", "SG"}}},
		},
	}
	for i, name := range protein.ResidueNames {
		dict.ResidueNames = append(dict.ResidueNames, name)
		dict.ResidueTypes = append(dict.ResidueTypes, protein.ResidueTypes[i])
		dict.ResidueAtoms[name] = protein.ResidueAtoms[name]
	}
	for _, name := range extraNames {
		dict.ResidueNames = append(dict.ResidueNames, name)
		dict.ResidueTypes = append(dict.ResidueTypes, "X")
		dict.ResidueAtoms[name] = extraAtoms[name]
	}

	// The atom type vocabulary: the canonical 37 first, then every
	// other atom name in sorted order.
	seen := make(map[string]bool, len(protein.AtomTypes))
	dict.AtomTypes = append(dict.AtomTypes, protein.AtomTypes...)
	for _, at := range protein.AtomTypes {
		seen[at] = true
	}
	var others []string
	for _, atoms := range dict.ResidueAtoms {
		for _, at := range atoms {
			if !seen[at] {
				seen[at] = true
				others = append(others, at)
			}
		}
	}
	sort.Strings(others)
	dict.AtomTypes = append(dict.AtomTypes, others...)

	if err := dict.Build(); err != nil {
		return nil, nil, err
	}
	return kept, dict, nil
}

// componentAtoms pulls the heavy atom names of one component block.
func componentAtoms(blk *cif.Block) ([]string, error) {
	cat := blk.Category("chem_comp_atom")
	if cat == nil {
		return nil, fmt.Errorf("ccd: component %s has no chem_comp_atom", blk.Name)
	}
	names := cat.Column("atom_id")
	elements := cat.Column("type_symbol")
	if names == nil || elements == nil {
		return nil, fmt.Errorf("ccd: component %s chem_comp_atom is incomplete", blk.Name)
	}
	var atoms []string
	for i := 0; i < cat.Rows(); i++ {
		if el := elements.Values[i]; el == "H" || el == "D" {
			continue
		}
		atoms = append(atoms, names.Values[i])
	}
	if len(atoms) == 0 {
		return nil, fmt.Errorf("ccd: component %s has no heavy atoms", blk.Name)
	}
	return atoms, nil
}

func writeDictionary(path string, dict *residue.Dictionary) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dict.WriteJSON(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
