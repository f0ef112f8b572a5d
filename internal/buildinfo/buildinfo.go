// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// Set with -ldflags "-X github.com/garyellow/sedori-linebot-go/internal/buildinfo.Version=v1.2.3"
// (and likewise Commit and BuildDate).
var (
	Version   = ""
	Commit    = ""
	BuildDate = ""
)

// String renders the build metadata for logs and health output, e.g.
// "v1.2.3 (abc1234, 2026-01-01T00:00:00Z)". Unset fields are omitted.
func String() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	switch {
	case commit != "" && BuildDate != "":
		return v + " (" + commit + ", " + BuildDate + ")"
	case commit != "":
		return v + " (" + commit + ")"
	default:
		return v
	}
}
