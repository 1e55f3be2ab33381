// Package generation provides interfaces and error types for the external
// AI providers the pipeline depends on. It abstracts prompt generation
// (Gemini) and video generation (HTTP provider), allowing the pipeline
// jobs to run against any conforming implementation without coupling to
// specific external services.
package generation
