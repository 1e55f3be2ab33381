// Package api contains the HTTP handlers, request/response models, and
// middleware for the service's REST endpoints. Handlers stay thin: they
// decode and validate requests, call into the service layer, and shape
// responses.
package api
