package voice

// FetchState is the per-item download pipeline state.
type FetchState int

const (
	// FetchIdle means no download has been attempted.
	FetchIdle FetchState = iota
	// FetchLoading means a download is in flight.
	FetchLoading
	// FetchReady means the clip is cached and playable. Terminal for
	// the life of the item.
	FetchReady
	// FetchFailed means the last download or store attempt failed.
	// Terminal until the user explicitly retries.
	FetchFailed
)

// String returns the string representation of the state.
func (s FetchState) String() string {
	switch s {
	case FetchIdle:
		return "idle"
	case FetchLoading:
		return "loading"
	case FetchReady:
		return "ready"
	case FetchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CanStartFetch reports whether a new download may be dispatched from this
// state. Loading excludes itself, which is what keeps fetches
// at-most-one; Ready never re-downloads.
func (s FetchState) CanStartFetch() bool {
	return s == FetchIdle || s == FetchFailed
}
