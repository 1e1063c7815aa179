// Package version carries build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X hostmon/internal/version.Version=v0.3.0 -X hostmon/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

var (
	// Version is the release tag. Empty for development builds.
	Version = ""
	// Commit is the short git SHA of the build.
	Commit = ""
)

// String returns Version for releases, "dev-<sha>" for untagged builds with
// a known commit, and "dev" otherwise.
func String() string {
	if Version != "" {
		return Version
	}
	if Commit != "" {
		return "dev-" + Commit
	}
	return "dev"
}
