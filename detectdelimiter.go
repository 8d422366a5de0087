package histdiff

import (
	"bytes"
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 && len(delimiters[0]) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}

// DetermineDelimiterBytes is DetermineDelimiter over an in-memory file. Files
// with a single column have no delimiter to find; for those, a tab is assumed
// when the header has one and a comma otherwise.
func DetermineDelimiterBytes(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if !bytes.ContainsAny(header, ",\t;|") {
		return ','
	}

	return DetermineDelimiter(bytes.NewReader(data))
}

// OutputDelimiter picks the delimiter of a result file from its name: tab for
// .tsv and .txt, comma for everything else.
func OutputDelimiter(path string) rune {
	switch extension(path) {
	case ".tsv", ".txt":
		return '\t'
	}

	return ','
}
