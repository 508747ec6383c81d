package provider

type State int

const (
	StateCreated State = iota
	StateInitialized
	StateLaunching
	StateAuthorized
	StateErrored
	StateUnloaded
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateLaunching:
		return "launching"
	case StateAuthorized:
		return "authorized"
	case StateErrored:
		return "errored"
	case StateUnloaded:
		return "unloaded"
	default:
		return "unknown"
	}
}

// Terminal reports whether the handshake has finished.
func (s State) Terminal() bool {
	return s == StateAuthorized || s == StateErrored || s == StateUnloaded
}
