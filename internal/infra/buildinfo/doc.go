// Package buildinfo exposes version information for prodadmin.
//
// Version, Commit and BuildTime are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/prodadmin-go/internal/infra/buildinfo.Version=v1.2.0" ./cmd/prodadmin
//
// When Commit is not injected, the VCS revision recorded by the Go
// toolchain is used instead.
package buildinfo
