// Package mvproto exports the wire-level contract external tooling uses to
// talk to mvd: the command verb constants and the JSON request/response
// envelopes for the HTTP ingress (spec.md §6.1, §6.3). It plays the same
// role pkg/api plays for the teacher's agent — the one stable external
// surface, kept free of any internal reconciler or FSM type so a future
// physical-remote bridge or test harness can depend on it alone.
package mvproto

// Command verbs recognized by the POST / ingress, case-sensitive, exactly
// as spec.md §6.3 lists them. Launch takes one additional word (a URL);
// every other verb takes none.
const (
	CmdActivateTV   = "Activate_tv"
	CmdBack         = "Back"
	CmdDown         = "Down"
	CmdDownArrow    = "S"
	CmdHome         = "Home"
	CmdInfo         = "Info"
	CmdLaunch       = "Launch"
	CmdLeft         = "Left"
	CmdLeftArrow    = "W"
	CmdMute         = "Mute"
	CmdPlayPause    = "Play_pause"
	CmdPowerOn      = "Power_on"
	CmdPower        = "Power"
	CmdRemote       = "Remote"
	CmdDeactivateTV = "Deactivate_tv"
	CmdReset        = "Reset"
	CmdRight        = "Right"
	CmdRightArrow   = "E"
	CmdScreensaver  = "Screensaver"
	CmdSelect       = "Select"
	CmdSleep        = "Sleep"
	CmdTest         = "Test"
	CmdUp           = "Up"
	CmdUpArrow      = "N"
	CmdVolumeDown   = "Volume_down"
	CmdVolumeUp     = "Volume_up"
	CmdWake         = "Wake"
)

// CommandRequest is the POST / request body: a single space-separated
// command line, e.g. "Launch https://example.com/app".
type CommandRequest struct {
	Command string `json:"command"`
}

// ErrorResponse is the body of a non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusEvent is one message pushed to /ws subscribers. The HTTP server
// sends an EventScreen message carrying the screen and volume descriptions
// after each successful POST command; nothing sends EventMatrixState.
type StatusEvent struct {
	Type        string `json:"type"`
	Screen      string `json:"screen,omitempty"`
	Volume      string `json:"volume,omitempty"`
	MatrixState string `json:"matrixState,omitempty"`
}

// Event type tags for StatusEvent.Type.
const (
	EventScreen      = "screen"
	EventMatrixState = "matrixState"
)
