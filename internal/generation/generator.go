package generation

import "context"

// ProductInput carries the product fields a prompt is generated from.
type ProductInput struct {
	Title       string
	Description string
	ImageURL    string
}

// PromptGenerator defines the interface for producing a video-generation
// prompt from product details. This interface is the boundary between the
// pipeline jobs and the LLM provider.
type PromptGenerator interface {
	// GeneratePrompt creates a video-generation prompt for the given
	// product. Implementations classify failures using the sentinel
	// errors in this package; they do not retry internally.
	GeneratePrompt(ctx context.Context, input ProductInput) (string, error)
}

// VideoGenerator defines the interface for rendering a product video from
// an input image and a prompt.
type VideoGenerator interface {
	// GenerateVideo renders a video and returns the artifact URL.
	GenerateVideo(ctx context.Context, imageURL, promptText string) (string, error)
}
