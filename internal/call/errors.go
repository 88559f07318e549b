package call

import "errors"

var (
	// ErrCapability wraps audio.ErrUnsupported when the platform cannot
	// capture audio.
	ErrCapability            = errors.New("audio capture not supported")
	ErrDeviceAccess          = errors.New("Failed to access microphone")
	ErrConnection            = errors.New("voice service connection failed")
	ErrServiceNotInitialized = errors.New("Voice service not initialized")
	// ErrStartAborted is returned by StartCall when EndCall ran before the
	// session finished starting.
	ErrStartAborted = errors.New("call ended while starting")
	ErrCallActive   = errors.New("call in progress")
)

// InactivityMessage is reported in SessionState.Error when a call times out.
const InactivityMessage = "Call ended due to inactivity"

// Greeting is spoken once per session after the backend connects.
const Greeting = "Hello! I'm SumNex. How can I help you today?"
