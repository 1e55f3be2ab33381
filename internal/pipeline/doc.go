// Package pipeline implements the product-video generation pipeline as a
// chain of independently schedulable jobs: orchestration, prompt
// generation, a named continuation, and video generation. Stages never
// call each other directly; each schedules its successor by registered
// job name through the event bus, passing only primitive payload data.
package pipeline
