// Package version exposes build information set at link time:
//
//	go build -ldflags "-X github.com/hyodoblog/mojiokoshi-line-bot/version.Version=1.2.0" ./cmd/mojiokoshi
//
// Missing values fall back to the VCS stamps embedded by the Go toolchain.
package version
