// Package version reports build metadata for fastgen.
//
// Values come from -ldflags when set:
//
//	-ldflags "-X github.com/dendrascience/fastgen/version.Version=v1.0.0 -X github.com/dendrascience/fastgen/version.Commit=abc123"
//
// and otherwise from debug.ReadBuildInfo. The version string is stamped into every
// folder manifest and into the run statistics file.
package version
