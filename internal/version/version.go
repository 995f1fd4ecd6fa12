package version

// Set at build time with -ldflags "-X github.com/incidentnow/agentproxy/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)
