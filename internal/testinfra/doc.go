// Package testinfra holds test helpers shared across packages: an in-memory
// store that satisfies the service interfaces, and (behind the integration
// build tag) MongoDB and Redis containers started with testcontainers-go.
//
//	go test -tags integration ./internal/repository/... ./internal/cache/...
package testinfra
