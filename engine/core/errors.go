package core

import (
	"errors"
)

var (
	// ErrSwapchainBooting is returned while the swapchain is being
	// resized or recreated and the frame should be skipped.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	// ErrNoSuitableGPU is returned when no physical device scores
	// above zero during adapter selection.
	ErrNoSuitableGPU = errors.New("no suitable GPU found")
	ErrUnknown = errors.New("unknown")
)
