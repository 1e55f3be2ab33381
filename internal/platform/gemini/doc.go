// Package gemini implements the generation.PromptGenerator interface
// using Google's Gemini API.
package gemini
