// Package server hosts the Fiber HTTP service: the Telegram webhook endpoint,
// the request-id and recover middleware, the /-/ diagnostics routes and the
// shared upstream http.Client used by every collaborator client.
package server
