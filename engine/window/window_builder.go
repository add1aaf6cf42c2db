package window

import "github.com/kiln-engine/kiln-go/common"

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithExtent sets the initial window size.
//
// Parameters:
//   - extent: initial size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithExtent(extent common.Extent) WindowBuilderOption {
	return func(w *engineWindow) {
		w.extent = extent
	}
}
