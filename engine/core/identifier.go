package core

import "github.com/google/uuid"

// GenerateID returns a unique identifier for a renderer resource
// (textures, shaders, buffers). IDs are only used for logging and
// bookkeeping, never handed to the GPU.
func GenerateID() string {
	return uuid.New().String()
}
