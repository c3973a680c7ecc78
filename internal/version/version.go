package version

// Version is the current version of the meridian-trading binaries.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/meridian-quant/meridian-trading/internal/version.Version=1.2.3"
// The default value indicates a development build.
var Version = "v0.1.0"

// GetVersion returns the current version.
func GetVersion() string {
	return Version
}
