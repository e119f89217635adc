// Package server holds the HTTP server configuration.
//
// The Config struct defines the listen port, the API key guarding the reporting
// endpoints, and the site name of the plant this instance serves. It is embedded
// by core/config and read by cmd/start.go when the fiber app is created.
package server
