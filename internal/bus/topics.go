package bus

// Topics derives the device's topic names from the two deployment-specific
// prefixes: Control for requests to the device (e.g. "cmnd/lamp/") and
// Events for messages from it (e.g. "stat/lamp/").
type Topics struct {
	Control string
	Events  string
}

// StatusRequest is the topic a status poll is published on.
func (t Topics) StatusRequest() string { return t.Control + "STATUS" }

// StatusResponse is the topic the device acknowledges a status poll on. The
// presence of a message is the acknowledgment; the payload is ignored.
func (t Topics) StatusResponse() string { return t.Events + "STATUS" }

// PresenceEvent carries online/offline transitions.
func (t Topics) PresenceEvent() string { return t.Events + "ONLINE_STATUS" }

// PresenceQuery and PresenceResponse let other parties ask for the current
// presence belief without waiting for a transition.
func (t Topics) PresenceQuery() string    { return t.Events + "ONLINE_STATUS_REQ" }
func (t Topics) PresenceResponse() string { return t.Events + "ONLINE_STATUS_RESP" }

// Command is the topic a rule's command is published on.
func (t Topics) Command(action string) string { return t.Control + action }

// Ack is the topic the device reports the resulting state for an action on.
func (t Topics) Ack(action string) string { return t.Events + action }
