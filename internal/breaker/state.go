package breaker

// State tracks the breaker lifecycle for one outbound module.
type State uint16

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the wire label for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}
