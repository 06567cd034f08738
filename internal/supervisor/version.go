package supervisor

// ServiceName is reported by /version.
const ServiceName = "Clash Verge Service"

// Version is set at build time with -ldflags "-X .../internal/supervisor.Version=...".
var Version = "dev"

// VersionInfo is the /version payload.
type VersionInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
}
