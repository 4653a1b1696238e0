// Package application provides application initialization and dependency wiring.
// It selects the catalog source, performs the startup catalog load, and creates
// the storage, calculator, metrics, handlers, routers and HTTP server
// instances, making the main package cleaner and more focused on CLI parsing
// and orchestration.
package application
