package circuitbreaker

type State int

const (
	// StateClosed lets calls through to the provider.
	StateClosed State = iota
	// StateOpen short-circuits calls after repeated provider failures.
	StateOpen
	// StateHalfOpen lets a probe call decide whether to close again.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
