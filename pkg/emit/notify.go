package emit

import "github.com/tdevries60/bro/internal/logger"

// EventKind classifies notable-event signals.
type EventKind string

const (
	// KindSiteExec is raised when a successful "SITE EXEC" is observed.
	KindSiteExec EventKind = "site_exec"
)

// Event is a notable-event signal, distinct from record emission. It carries
// a formatted message and the identity of the connection that raised it.
type Event struct {
	Kind     EventKind `json:"kind"`
	Message  string    `json:"message"`
	ConnUID  string    `json:"conn_uid"`
	OrigAddr string    `json:"orig_addr"`
	RespAddr string    `json:"resp_addr"`
}

// Notifier receives notable-event signals. Implementations must not block.
type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ev Event)

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev Event) { f(ev) }

// LogNotifier logs notable events at warn level.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs the event.
func (n *LogNotifier) Notify(ev Event) {
	// Notable events are operator-facing; warn keeps them visible at the
	// default level.
	logger.Warn("notable event",
		"kind", string(ev.Kind),
		logger.KeyConnUID, ev.ConnUID,
		logger.KeyOrigAddr, ev.OrigAddr,
		logger.KeyRespAddr, ev.RespAddr,
		"message", ev.Message,
	)
}
