package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These are intended to be set via -ldflags at build time.
var (
	version   = "dev"
	commitSHA = ""
	buildDate = ""
)

func Version() string {
	v := version
	if commitSHA == "" {
		commitSHA = vcsRevision()
	}
	if commitSHA != "" {
		v += "+" + commitSHA
	}
	if buildDate != "" {
		v += " (" + buildDate + ")"
	}
	return v
}

// vcsRevision falls back to the revision stamped by the go tool when the
// binary was built without ldflags.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}

func UserAgent() string {
	return fmt.Sprintf("apidocs/%s (%s; %s)", version, runtime.GOOS, runtime.GOARCH)
}
