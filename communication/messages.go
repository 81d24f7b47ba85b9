package communication

// Request kinds sent by clients.
const (
	KindSubscribeOutput   = "subscribe_output"
	KindUnsubscribeOutput = "unsubscribe_output"
	KindGetCyclers        = "get_cyclers"
	KindGetParameters     = "get_parameters"
	KindUpdateParameter   = "update_parameter"
)

// KindOutputUpdate is the kind of messages pushed to subscribers.
const KindOutputUpdate = "output_update"

// Request is a text message from a client.
type Request struct {
	ID     int    `json:"id"`
	Kind   string `json:"kind"`
	Cycler string `json:"cycler,omitempty"`
	Path   string `json:"path,omitempty"`
	Value  any    `json:"value"`
}

// Response answers the request with the same id.
type Response struct {
	ID    int    `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Value any    `json:"value,omitempty"`
}

// OutputUpdate carries the value of a subscribed path after a cycler published.
type OutputUpdate struct {
	Kind   string `json:"kind"`
	Cycler string `json:"cycler"`
	Path   string `json:"path"`
	Value  any    `json:"value"`
}
