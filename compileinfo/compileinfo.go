// Package compileinfo reports how a HistDiff binary was built, so that the
// scores a run produces can be traced back to the code that produced them.
package compileinfo

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

type CompileInfo struct {
	Package    string
	Module     string
	Version    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	if c.GoVersion == "" {
		return "Build information is unavailable for this binary."
	}

	out := fmt.Sprintf("This %s binary (%s %s) was built with %s", c.Package, c.Module, c.Version, c.GoVersion)
	if c.Commit != "" {
		out += fmt.Sprintf(" at commit %v at time %v", c.Commit, c.CommitTime)
	}
	out += "."
	if c.Modified {
		out += " Files in the repo were modified after that commit."
	}

	return out
}

// FromBuildInfo extracts the fields of interest from bi.
func FromBuildInfo(bi *debug.BuildInfo) CompileInfo {
	out := CompileInfo{}
	if bi == nil {
		return out
	}

	out.GoVersion = bi.GoVersion
	out.Package = bi.Path
	out.Module = bi.Main.Path
	out.Version = bi.Main.Version
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

func Get() CompileInfo {
	z, ok := debug.ReadBuildInfo()
	if !ok {
		return CompileInfo{}
	}

	return FromBuildInfo(z)
}

func Fprint(w io.Writer) {
	fmt.Fprintf(w, "%s\n", Get())
}

func PrintToStdErr() {
	Fprint(os.Stderr)
}
