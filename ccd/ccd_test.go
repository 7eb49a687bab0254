package ccd

import (
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/bioml-tools/bio-datasets/pdb"
	"github.com/bioml-tools/bio-datasets/structure/residue"
)

const miniComponents = `data_ALA
loop_
_chem_comp_atom.comp_id
_chem_comp_atom.atom_id
_chem_comp_atom.type_symbol
ALA N  N
ALA CA C
ALA C  C
ALA O  O
ALA CB C
ALA H  H
#
data_HEM
loop_
_chem_comp_atom.comp_id
_chem_comp_atom.atom_id
_chem_comp_atom.type_symbol
HEM FE  FE
HEM NA  N
HEM NB  N
HEM HHA H
#
data_XQZ
loop_
_chem_comp_atom.comp_id
_chem_comp_atom.atom_id
_chem_comp_atom.type_symbol
XQZ C1 C
XQZ O1 O
#
`

const miniCounts = "name\tcount\nALA\t180000\nHEM\t25000\nXQZ\t3\n"

// ccdServer serves a gzipped component dictionary and a counts file
// the way the real sources do, counting the hits so tests can see
// whether a download was reused.
func ccdServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/components.cif.gz", func(w http.ResponseWriter, r *http.Request) {
		*hits++
		zw := gzip.NewWriter(w)
		if _, err := zw.Write([]byte(miniComponents)); err != nil {
			t.Error(err)
		}
		if err := zw.Close(); err != nil {
			t.Error(err)
		}
	})
	mux.HandleFunc("/cc-counts.tdd", func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if _, err := w.Write([]byte(miniCounts)); err != nil {
			t.Error(err)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testBuilder(t *testing.T, srv *httptest.Server) *Builder {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ComponentsURL = srv.URL + "/components.cif.gz"
	cfg.CountsURL = srv.URL + "/cc-counts.tdd"
	cfg.CacheDir = filepath.Join(t.TempDir(), "cache")
	cfg.OutDir = t.TempDir()
	b := NewBuilder(cfg)
	b.Log = log.New(os.Stderr, "ccd test: ", 0)
	return b
}

func TestBuildArtifacts(t *testing.T) {
	var hits int
	b := testBuilder(t, ccdServer(t, &hits))
	arts, err := b.Run(false)
	if err != nil {
		t.Fatal(err)
	}
	if arts.FromCache {
		t.Error("first run claims a cache hit")
	}
	if hits != 2 {
		t.Errorf("wanted 2 downloads, saw %d", hits)
	}

	fp, err := os.Open(arts.Dictionary)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	dict, err := residue.ReadJSON(fp)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := dict.Index("HEM"); !ok {
		t.Error("frequent component HEM missing from dictionary")
	}
	if _, ok := dict.Index("XQZ"); ok {
		t.Error("rare component XQZ should have been dropped")
	}
	if got := dict.AtomNames("HEM"); len(got) != 3 || got[0] != "FE" {
		t.Errorf("HEM heavy atoms wrong: %v", got)
	}
	if got := dict.AtomNames("ALA"); strings.Join(got, " ") != "N CA C O CB" {
		t.Errorf("ALA kept curated atom order, got %v", got)
	}

	f, err := pdb.ReadFile(arts.Components)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Blocks) != 2 {
		t.Fatalf("wanted 2 component blocks, got %d", len(f.Blocks))
	}
	if f.Blocks[0].Name != "ALA" || f.Blocks[1].Name != "HEM" {
		t.Errorf("wrong blocks kept: %s %s", f.Blocks[0].Name, f.Blocks[1].Name)
	}

	counts, err := os.ReadFile(arts.Counts)
	if err != nil {
		t.Fatal(err)
	}
	if string(counts) != miniCounts {
		t.Error("counts file was not passed through unchanged")
	}
}

func TestBuildCacheHit(t *testing.T) {
	var hits int
	b := testBuilder(t, ccdServer(t, &hits))
	if _, err := b.Run(false); err != nil {
		t.Fatal(err)
	}
	arts, err := b.Run(false)
	if err != nil {
		t.Fatal(err)
	}
	if !arts.FromCache {
		t.Error("second run should hit the cache")
	}
	if hits != 2 {
		t.Errorf("second run should reuse downloads, saw %d hits", hits)
	}
}

func TestBuildForce(t *testing.T) {
	var hits int
	b := testBuilder(t, ccdServer(t, &hits))
	if _, err := b.Run(false); err != nil {
		t.Fatal(err)
	}
	arts, err := b.Run(true)
	if err != nil {
		t.Fatal(err)
	}
	if arts.FromCache {
		t.Error("forced run must rebuild")
	}
	if hits != 4 {
		t.Errorf("forced run should download again, saw %d hits", hits)
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ccd.yaml")
	if err := os.WriteFile(path,
		[]byte("min_count: 500\nout_dir: /tmp/somewhere\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MinCount != 500 {
		t.Errorf("min_count not read, got %d", cfg.MinCount)
	}
	if cfg.OutDir != "/tmp/somewhere" {
		t.Errorf("out_dir not read, got %s", cfg.OutDir)
	}
	if cfg.ComponentsURL == "" {
		t.Error("defaults should survive a partial config")
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("min_count: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadConfig(bad); err == nil {
		t.Error("negative min_count accepted")
	}
}

func TestBuildKeyChanges(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	bb := filepath.Join(dir, "b")
	if err := os.WriteFile(a, []byte("one"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bb, []byte("two"), 0644); err != nil {
		t.Fatal(err)
	}
	k1, err := buildKey(a, bb)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bb, []byte("two!"), 0644); err != nil {
		t.Fatal(err)
	}
	k2, err := buildKey(a, bb)
	if err != nil {
		t.Fatal(err)
	}
	if k1 == k2 {
		t.Error("key did not change with the input")
	}
	// One file holding both parts must not collide with two files.
	c := filepath.Join(dir, "c")
	if err := os.WriteFile(c, []byte("onetwo!"), 0644); err != nil {
		t.Fatal(err)
	}
	c1, err := buildKey(c)
	if err != nil {
		t.Fatal(err)
	}
	if c1 == k2 {
		t.Error("concatenation collision")
	}
}
