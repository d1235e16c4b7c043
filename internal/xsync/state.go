package xsync

// State is the vendor client's position in the login cycle. It is only ever
// changed by Loop and exists for logs and metrics.
type State int32

const (
	StateInit State = iota
	StateAwaitingLogin
	StateLoginOK
	StateAwaitingNewToken
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateAwaitingLogin:
		return "AWAITING_LOGIN"
	case StateLoginOK:
		return "LOGIN_OK"
	case StateAwaitingNewToken:
		return "AWAITING_NEW_TOKEN"
	default:
		return "UNKNOWN"
	}
}

func stateNames() []string {
	return []string{
		StateInit.String(),
		StateAwaitingLogin.String(),
		StateLoginOK.String(),
		StateAwaitingNewToken.String(),
	}
}
