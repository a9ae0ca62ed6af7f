package version

// Version is the running devenv version, overridable at build time via
// -ldflags "-X github.com/devenv-tools/devenv/internal/version.Version=...".
var Version = "1.2.0"
