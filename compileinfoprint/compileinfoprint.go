// Package compileinfoprint is imported by HistDiff binaries for the side
// effect of printing their build information to stderr at startup.
package compileinfoprint

import "github.com/carbocation/histdiff/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
