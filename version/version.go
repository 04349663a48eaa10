package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = NemPeerSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// NemPeerSemVer is the current version of the peer node.
	// It's the Semantic Version of the software.
	// Must be a string because scripts like dist.sh read this file.
	NemPeerSemVer = "0.9.0"

	// Application is the name the node reports in its metadata.
	Application = "nem-peer"

	// Platform is the platform the node reports in its metadata.
	Platform = "go"
)
