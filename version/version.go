package version

import "runtime/debug"

// Stamped with -ldflags "-X .../version.Version=v1.4.0" in release builds.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
}

// Get merges the ldflags values with the VCS stamp of the Go toolchain.
// Values set by ldflags win.
func Get() Info {
	i := Info{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		i.merge(bi)
	}
	return i
}

func (i *Info) merge(bi *debug.BuildInfo) {
	i.GoVersion = bi.GoVersion
	vcs := map[string]string{}
	for _, s := range bi.Settings {
		vcs[s.Key] = s.Value
	}
	i.GitCommit = firstNonEmpty(i.GitCommit, vcs["vcs.revision"])
	i.BuildTime = firstNonEmpty(i.BuildTime, vcs["vcs.time"])
	i.Dirty = vcs["vcs.modified"] == "true"
	if len(i.GitCommit) > 7 {
		i.GitCommit = i.GitCommit[:7]
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// String is "version[-commit][-dirty]".
func (i Info) String() string {
	s := i.Version
	if i.GitCommit == "" {
		return s
	}
	s += "-" + i.GitCommit
	if i.Dirty {
		s += "-dirty"
	}
	return s
}
