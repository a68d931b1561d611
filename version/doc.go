// Package version reports build version information for gospawn binaries.
//
//	go build -ldflags "-X github.com/kbukum/gospawn/version.Version=1.0.0"
package version
