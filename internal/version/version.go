package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/zoothing/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/zoothing/internal/version.Commit=abc123"
//
// Unset values are filled from the embedded build info.
var (
	Version = ""
	Commit  = ""
)

func init() {
	info, _ := debug.ReadBuildInfo()
	Version, Commit = resolve(Version, Commit, info)
}

// resolve fills version and commit from build info. A module version of a
// `go install`ed binary wins over "dev"; the VCS revision is shortened and
// marked when the tree was dirty.
func resolve(version, commit string, info *debug.BuildInfo) (string, string) {
	if info != nil {
		if version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		if commit == "" {
			commit = vcsCommit(info.Settings)
		}
	}
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	return version, commit
}

func vcsCommit(settings []debug.BuildSetting) string {
	var rev string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

// Full returns the version with its commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Banner returns the startup banner printed by the connection manager and
// embedded in the settings page. br separates the lines ("\n" for the console,
// "<br>" for HTML); an empty br means "\n".
func Banner(br string) string {
	if br == "" {
		br = "\n"
	}
	return "ZooThing connection manager version " + Version + br +
		"commit " + Commit + br
}
