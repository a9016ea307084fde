package robot

// rosbridge-style operation tags
const (
	opCallService     = "call_service"
	opServiceResponse = "service_response"
	opSubscribe       = "subscribe"
	opUnsubscribe     = "unsubscribe"
	opPublish         = "publish"
)

// Services exposed by the robot peer
const (
	serviceNavigation = "/navigation_status"
	serviceArm        = "/get_strawberry_service"
)

// Primitive action names carried in args.action
const (
	actionWaitNavigation = "waiting_navigation_status"
	actionNavigateToPose = "navigation_to_pose"
	actionGrabObject     = "grab_object"
	actionTurnWaist      = "turn_waist"
	actionPutObject      = "put_object"
	actionScan           = "scan"
	actionCvDetect       = "cv_detect"
)

// request is an outbound frame. Service-call fields and topic fields
// are mutually exclusive per op.
type request struct {
	Op           string         `json:"op"`
	ID           string         `json:"id,omitempty"`
	Service      string         `json:"service,omitempty"`
	Args         map[string]any `json:"args,omitempty"`
	Topic        string         `json:"topic,omitempty"`
	Type         string         `json:"type,omitempty"`
	ThrottleRate int            `json:"throttle_rate,omitempty"`
	QueueLength  int            `json:"queue_length,omitempty"`
}

// envelope is an inbound frame, decoded generically and dispatched on Op
type envelope struct {
	Op      string         `json:"op"`
	ID      string         `json:"id,omitempty"`
	Service string         `json:"service,omitempty"`
	Result  bool           `json:"result"`
	Values  map[string]any `json:"values,omitempty"`
	Topic   string         `json:"topic,omitempty"`
	Msg     map[string]any `json:"msg,omitempty"`
}
