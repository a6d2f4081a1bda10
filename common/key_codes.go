package common

// Virtual key codes delivered by the window's key callbacks.
// These values match GLFW key codes, which use ASCII values for printable keys.
const (
	KeySpace  = 32
	KeyL      = 76
	KeyP      = 80
	KeyR      = 82
	KeyEscape = 256
)
