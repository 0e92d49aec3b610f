// Package api hosts the HTTP server: router construction, the security
// middleware chain, controller registration, and graceful shutdown.
package api
