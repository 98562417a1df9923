package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
)

var (
	// These will be set by build flags or default to development values
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info contains version information
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Package   string `json:"package"`
}

// GetVersion returns the version string, preferring compile-time version if available
func GetVersion() string {
	if Version != "dev" && Version != "" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}

	return "development"
}

// GetCommit returns the git commit hash, preferring compile-time commit if available
func GetCommit() string {
	if Commit != "unknown" && Commit != "" {
		return Commit
	}
	return buildSetting("vcs.revision")
}

// GetBuildDate returns the build date, preferring compile-time date if available
func GetBuildDate() string {
	if Date != "unknown" && Date != "" {
		return Date
	}
	return buildSetting("vcs.time")
}

func buildSetting(key string) string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == key {
				return setting.Value
			}
		}
	}
	return "unknown"
}

// GetInfo returns complete version information
func GetInfo() Info {
	return Info{
		Version:   GetVersion(),
		Commit:    GetCommit(),
		Date:      GetBuildDate(),
		GoVersion: runtime.Version(),
		Package:   "fastgen",
	}
}

// GetFullVersion returns a formatted version string with commit and date
func GetFullVersion() string {
	info := GetInfo()
	if info.Commit != "unknown" && len(info.Commit) > 7 {
		shortCommit := info.Commit[:7]
		if info.Date != "unknown" {
			return fmt.Sprintf("%s (%s, built %s)", info.Version, shortCommit, info.Date)
		}
		return fmt.Sprintf("%s (%s)", info.Version, shortCommit)
	}
	return info.Version
}

// PrintVersion writes human-readable version information to w
func PrintVersion(w io.Writer, appName string) {
	info := GetInfo()
	fmt.Fprintf(w, "%s version %s\n", appName, GetFullVersion())
	fmt.Fprintf(w, "Package: %s\n", info.Package)
	fmt.Fprintf(w, "Commit: %s\n", info.Commit)
	fmt.Fprintf(w, "Build Date: %s\n", info.Date)
	fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
}
