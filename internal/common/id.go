package common

import (
	"github.com/google/uuid"
)

// NewTaskID generates a unique task ID with the "task_" prefix
func NewTaskID() string {
	return "task_" + uuid.New().String()
}

// NewMediaID generates a unique media asset ID with the "media_" prefix
func NewMediaID() string {
	return "media_" + uuid.New().String()
}

// NewFrameID generates a unique frame analysis ID with the "frame_" prefix
func NewFrameID() string {
	return "frame_" + uuid.New().String()
}

// NewMappingID generates a unique frame mapping ID with the "map_" prefix
func NewMappingID() string {
	return "map_" + uuid.New().String()
}

// NewKeywordID generates a unique research keyword ID with the "kw_" prefix
func NewKeywordID() string {
	return "kw_" + uuid.New().String()
}

// NewVariantID generates a unique keyword variant ID with the "var_" prefix
func NewVariantID() string {
	return "var_" + uuid.New().String()
}
