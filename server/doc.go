// Package server runs the HTTP side of the bot: a Gin engine behind a
// ServeMux, the middleware chain of server/middleware, h2c, and the probes
// of server/endpoint, registered as a component.
package server
