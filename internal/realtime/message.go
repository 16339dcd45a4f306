package realtime

type Event string

const (
	EventDreamCreated    Event = "DreamCreated"
	EventDreamProcessed  Event = "DreamProcessed"
	EventLocationCreated Event = "LocationCreated"
	EventLocationUpdated Event = "LocationUpdated"
	EventLocationMerged  Event = "LocationMerged"
	EventJobProgress     Event = "JobProgress"
	EventJobFailed       Event = "JobFailed"
	EventJobDone         Event = "JobDone"
)

// ChannelWorld carries every dream world change.
const ChannelWorld = "world"

type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}
