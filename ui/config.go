package ui

// Config contains TUI-specific configuration.
type Config struct {
	CacheDir string

	// Path to the playlist manifest
	ManifestPath string

	EnableMouse bool
	ShowSizes   bool

	// For debugging the UI without an audio device
	MockAudio bool `env:"VOICEBOX_MOCK_AUDIO"`
}
