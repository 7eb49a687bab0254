// Go to a pdb website and download coordinates.
// pdb europe files are at https://www.ebi.ac.uk/pdbe/entry-files/download/5pti.cif
// The main point is to visit the web page and return a reader that
// can be used like the file readers.
package pdb

import (
	"errors"
	"io"
	"net/http"

	"github.com/bioml-tools/bio-datasets/pdb/zwrap"
)

// pdbSites is where Fetch looks. Tests poke a local server in here.
var pdbSites = []struct {
	urlBase   string
	urlSuffix string
	gzipped   bool
}{
	{"https://files.rcsb.org/download/",
		".cif.gz",
		true},
	{"https://www.ebi.ac.uk/pdbe/entry-files/download/",
		".cif",
		false},
	{"https://ftp.pdbj.org/mmcif/",
		".cif.gz",
		true},
	{"https://models.rcsb.org/",
		".bcif",
		false},
}

// NSites is how many download sites Fetch knows about.
var NSites = len(pdbSites)

// Fetch is given a four letter pdb code. It goes to the protein data
// bank and should return a reader.
// There are several sites for structures. You can pick which one you
// want with siteNum. If you give a value that is too big, we use a
// modulo to wrap it around, rather than generate an error. This makes
// it easier to cycle through them or pick one at random.
// Sites return normal or gzipped data, but if it is a gzipping site,
// we call zwrap to decompress and return that as the reader. The last
// site serves binary cif, which Read sorts out by sniffing.
func Fetch(acqCode string, siteNum int) (io.ReadCloser, error) {
	urls := pdbSites
	if siteNum >= len(urls) {
		siteNum = siteNum % len(urls)
	}

	if len(acqCode) != 4 {
		return nil, errors.New("acq code should be four char, not " + acqCode)
	}

	url := urls[siteNum].urlBase + acqCode + urls[siteNum].urlSuffix

	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		s := "Wanted " + acqCode + " using " + url
		t := ", got " + resp.Status
		resp.Body.Close()
		return nil, errors.New(s + t)
	}

	if urls[siteNum].gzipped {
		if resp.Body, err = zwrap.Wrap(resp.Body); err != nil {
			resp.Body.Close()
			return nil, err
		}
	}

	return resp.Body, nil
}
