// Package fal implements the generation.VideoGenerator interface against
// a fal-style hosted video-generation HTTP API, plus a mock provider that
// fabricates artifact URLs for environments without provider access.
package fal
