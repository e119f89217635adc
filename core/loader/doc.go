// Package loader provides the plugin-like feature loading system.
//
// Each feature implements the Feature interface and is registered with a
// Manager at startup; LoadAll mounts the enabled ones on the fiber app.
//
// # Feature Interface
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// Features such as 'report' and 'integrity' are developed and tested in
// isolation and only meet in cmd/start.go.
package loader
