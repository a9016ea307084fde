package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ServiceCall records one call_service request the peer received
type ServiceCall struct {
	Service string
	Action  string
	Args    map[string]any
}

// ServiceReply scripts the peer's answer to one action. A zero Values
// map is filled with {"finish": Result} so happy-path stubs stay short.
type ServiceReply struct {
	Result bool
	Values map[string]any
	Delay  time.Duration
	Drop   bool // swallow the request and never answer
	HangUp bool // sever the link after recording the request
}

// inbound rosbridge frame as the robot client writes it
type peerFrame struct {
	Op      string         `json:"op"`
	ID      string         `json:"id,omitempty"`
	Service string         `json:"service,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Topic   string         `json:"topic,omitempty"`
	Type    string         `json:"type,omitempty"`
}

type peerResponse struct {
	Op      string         `json:"op"`
	ID      string         `json:"id"`
	Service string         `json:"service"`
	Result  bool           `json:"result"`
	Values  map[string]any `json:"values"`
}

type peerPublish struct {
	Op    string         `json:"op"`
	Topic string         `json:"topic"`
	Msg   map[string]any `json:"msg"`
}

// MockRobotPeer is an in-process rosbridge endpoint for robot-client
// tests and BDD scenarios. Unstubbed actions succeed with finish:true,
// so tests only script the calls they care about.
type MockRobotPeer struct {
	server *httptest.Server

	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     *websocket.Conn
	queued   map[string][]ServiceReply
	standing map[string]ServiceReply
	calls    []ServiceCall
	topics   map[string]bool
	sessions int
}

func NewMockRobotPeer() *MockRobotPeer {
	p := &MockRobotPeer{
		queued:   make(map[string][]ServiceReply),
		standing: make(map[string]ServiceReply),
		topics:   make(map[string]bool),
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	return p
}

// Address returns host:port suitable for robot.Config.Address
func (p *MockRobotPeer) Address() string {
	return strings.TrimPrefix(p.server.URL, "http://")
}

func (p *MockRobotPeer) Close() {
	p.DropLink()
	p.server.Close()
}

// Stub installs a standing reply for an action
func (p *MockRobotPeer) Stub(action string, result bool, values map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.standing[action] = ServiceReply{Result: result, Values: values}
}

// StubOnce queues a one-shot reply; queued replies win over standing ones
func (p *MockRobotPeer) StubOnce(action string, result bool, values map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queued[action] = append(p.queued[action], ServiceReply{Result: result, Values: values})
}

// StubReply queues a fully specified one-shot reply (delay, drop)
func (p *MockRobotPeer) StubReply(action string, reply ServiceReply) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queued[action] = append(p.queued[action], reply)
}

// DropNext makes the peer swallow the next request for the action,
// which the client observes as a reply timeout
func (p *MockRobotPeer) DropNext(action string) {
	p.StubReply(action, ServiceReply{Drop: true})
}

// HangUpNext severs the session as soon as the next request for the
// action arrives, before any reply is written. The client observes the
// in-flight call failing with a lost link.
func (p *MockRobotPeer) HangUpNext(action string) {
	p.StubReply(action, ServiceReply{HangUp: true})
}

// Calls returns every recorded request in arrival order
func (p *MockRobotPeer) Calls() []ServiceCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ServiceCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallsFor filters recorded requests by action
func (p *MockRobotPeer) CallsFor(action string) []ServiceCall {
	var out []ServiceCall
	for _, call := range p.Calls() {
		if call.Action == action {
			out = append(out, call)
		}
	}
	return out
}

func (p *MockRobotPeer) CallCount(action string) int {
	return len(p.CallsFor(action))
}

// Subscribed reports whether the client holds a live subscription
func (p *MockRobotPeer) Subscribed(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.topics[topic]
}

// Publish pushes a topic frame to the connected client
func (p *MockRobotPeer) Publish(topic string, msg map[string]any) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = conn.WriteJSON(peerPublish{Op: "publish", Topic: topic, Msg: msg})
}

// DropLink severs the current session abruptly, as a robot reboot
// would. Subscriptions die with the session; the client is expected to
// resubscribe after reconnecting.
func (p *MockRobotPeer) DropLink() {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.topics = make(map[string]bool)
	p.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Sessions counts accepted websocket connections, including reconnects
func (p *MockRobotPeer) Sessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions
}

func (p *MockRobotPeer) handle(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	p.mu.Lock()
	p.conn = conn
	p.sessions++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.conn == conn {
			p.conn = nil
			p.topics = make(map[string]bool)
		}
		p.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var frame peerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Op {
		case "call_service":
			p.serveCall(conn, frame)
		case "subscribe":
			p.mu.Lock()
			p.topics[frame.Topic] = true
			p.mu.Unlock()
		case "unsubscribe":
			p.mu.Lock()
			delete(p.topics, frame.Topic)
			p.mu.Unlock()
		}
	}
}

func (p *MockRobotPeer) serveCall(conn *websocket.Conn, frame peerFrame) {
	action, _ := frame.Args["action"].(string)
	args := make(map[string]any, len(frame.Args))
	for k, v := range frame.Args {
		if k != "action" {
			args[k] = v
		}
	}

	p.mu.Lock()
	p.calls = append(p.calls, ServiceCall{Service: frame.Service, Action: action, Args: args})
	reply, scripted := p.nextReplyLocked(action)
	p.mu.Unlock()

	if !scripted {
		reply = ServiceReply{Result: true}
	}
	if reply.HangUp {
		_ = conn.Close()
		return
	}
	if reply.Drop {
		return
	}
	if reply.Delay > 0 {
		time.Sleep(reply.Delay)
	}

	values := reply.Values
	if values == nil {
		values = map[string]any{"finish": reply.Result}
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = conn.WriteJSON(peerResponse{
		Op:      "service_response",
		ID:      frame.ID,
		Service: frame.Service,
		Result:  reply.Result,
		Values:  values,
	})
}

func (p *MockRobotPeer) nextReplyLocked(action string) (ServiceReply, bool) {
	if queue := p.queued[action]; len(queue) > 0 {
		reply := queue[0]
		p.queued[action] = queue[1:]
		return reply, true
	}
	reply, ok := p.standing[action]
	return reply, ok
}
