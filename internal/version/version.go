// ABOUTME: Version information for rawstream
// ABOUTME: Reported by the version command, /health and mDNS TXT records
package version

// Version is overridden at build time with -ldflags "-X ...version.Version=..."
var Version = "0.3.0"

const (
	// Product is the product name
	Product = "rawstream"

	// Manufacturer is the manufacturer name
	Manufacturer = "Resonate Protocol"
)

// String returns the product and version, e.g. "rawstream 0.3.0"
func String() string {
	return Product + " " + Version
}
