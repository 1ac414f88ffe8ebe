package syncclient

// Player is the local media surface the sync client reconciles. The embedding
// application (e.g. the extension companion) adapts its playback engine to
// this interface; tests use a fake.
type Player interface {
	// Position returns the current playback position in seconds.
	Position() float64

	// Playing reports whether playback is currently running.
	Playing() bool

	// Seek jumps to the given position in seconds.
	Seek(position float64)

	Play()
	Pause()
}
