// Package buildinfo exposes build-time version information.
//
// Values are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/rcuht-go/internal/infra/buildinfo.Version=v1.0.0"
//
// A missing commit falls back to the VCS revision recorded by the Go
// toolchain.
package buildinfo
