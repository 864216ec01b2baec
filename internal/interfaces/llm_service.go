package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the generation-service boundary for text work:
// variant generation prompts and parent-level summarization.
type LLMService interface {
	// Chat generates a completion response for the conversation history
	Chat(ctx context.Context, messages []Message) (string, error)

	// DescribeImage generates a text description for one image. mediaType
	// is the MIME type (e.g. "image/jpeg") and data is the raw image
	// bytes; prompt steers the description.
	DescribeImage(ctx context.Context, mediaType string, data []byte, prompt string) (string, error)

	// HealthCheck verifies the service can handle requests
	HealthCheck(ctx context.Context) error

	// Close releases resources
	Close() error
}

// EmbeddingService generates embedding vectors for text
type EmbeddingService interface {
	// Embed generates an embedding vector for the given text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases resources
	Close() error
}
