package ccd

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// The artifact file names. The build writes them under the cache key
// and then copies them to the output directory.
const (
	DictionaryName = "ccd_residue_dictionary.json"
	ComponentsName = "components.bcif"
	CountsName     = "cc-counts.tdd"
)

var artifactNames = []string{DictionaryName, ComponentsName, CountsName}

// buildKey hashes the source files that feed the build. Each part is
// prefixed with its length so moving a byte between parts cannot
// give the same key.
func buildKey(paths ...string) (string, error) {
	h := blake3.New()
	var lenBuf [8]byte
	for _, p := range paths {
		fp, err := os.Open(p)
		if err != nil {
			return "", err
		}
		n, err := io.Copy(h, fp)
		fp.Close()
		if err != nil {
			return "", err
		}
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(n))
		h.Write(lenBuf[:])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// cacheDirFor is where artifacts for one build key live.
func (cfg *Config) cacheDirFor(key string) string {
	return filepath.Join(cfg.CacheDir, "artifacts", key)
}

// cached says whether every artifact for a key is already there.
func (cfg *Config) cached(key string) bool {
	dir := cfg.cacheDirFor(key)
	for _, name := range artifactNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// copyFile copies src to dst, creating the parent directory.
func copyFile(dst, src string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
