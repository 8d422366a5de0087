package celldata

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/carbocation/pfx"
)

// ProblematicPath is the sidecar file that lists the problematic features of
// a run whose output prefix is prefix.
func ProblematicPath(prefix string) string {
	return prefix + "_problematicFeats.csv"
}

// WriteProblematic writes one "<feature>,noValues" line per feature.
func WriteProblematic(w io.Writer, features []string) error {
	bw := bufio.NewWriter(w)
	for _, f := range features {
		if _, err := fmt.Fprintf(bw, "%s,noValues\n", f); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteProblematicFile writes the sidecar for prefix. Nothing is written when
// there are no problematic features.
func WriteProblematicFile(prefix string, features []string) error {
	if len(features) == 0 {
		return nil
	}

	f, err := os.Create(ProblematicPath(prefix))
	if err != nil {
		return pfx.Err(err)
	}

	if err := WriteProblematic(f, features); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	if err := f.Close(); err != nil {
		return pfx.Err(err)
	}

	return nil
}
