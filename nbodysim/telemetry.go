package nbodysim

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TelemetryUpdate is the JSON frame pushed to telemetry clients after
// each step.
type TelemetryUpdate struct {
	Step       int        `json:"step"`
	TotalSteps int        `json:"total_steps"`
	Progress   float64    `json:"progress"`
	BodyCount  int        `json:"body_count"`
	Stats      Statistics `json:"stats"`
}

// TelemetryServer streams per-step progress and system statistics to
// websocket clients on /ws. It is a side channel: a slow or absent client
// never blocks the step loop, updates are simply dropped for it.
type TelemetryServer struct {
	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener

	mutex   sync.Mutex
	clients map[*telemetryClient]struct{}
}

type telemetryClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewTelemetryServer binds the telemetry listener on addr. Serving starts
// immediately on a background goroutine.
func NewTelemetryServer(addr string) (*TelemetryServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	ts := &TelemetryServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		listener: ln,
		clients:  make(map[*telemetryClient]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ts.handleWebSocket)
	ts.server = &http.Server{Handler: mux}

	go func() {
		if err := ts.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("telemetry: serve: %v", err)
		}
	}()
	return ts, nil
}

// Addr returns the listener's address, useful when binding to port 0.
func (ts *TelemetryServer) Addr() string {
	return ts.listener.Addr().String()
}

func (ts *TelemetryServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ts.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("telemetry: upgrade: %v", err)
		return
	}

	client := &telemetryClient{conn: conn, send: make(chan []byte, 64)}
	ts.mutex.Lock()
	ts.clients[client] = struct{}{}
	ts.mutex.Unlock()

	go ts.writer(client)
	go ts.reader(client)
}

func (ts *TelemetryServer) writer(client *telemetryClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.send:
			if !ok {
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				ts.drop(client)
				return
			}
		case <-ticker.C:
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ts.drop(client)
				return
			}
		}
	}
}

// reader drains the connection so close frames and pongs are processed.
func (ts *TelemetryServer) reader(client *telemetryClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			ts.drop(client)
			return
		}
	}
}

func (ts *TelemetryServer) drop(client *telemetryClient) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	if _, ok := ts.clients[client]; ok {
		delete(ts.clients, client)
		client.conn.Close()
	}
}

// OnStepComplete fans the step's update out to every connected client,
// dropping the frame for clients whose send queue is full.
func (ts *TelemetryServer) OnStepComplete(step, totalSteps int, bodies []Body) {
	update := TelemetryUpdate{
		Step:       step,
		TotalSteps: totalSteps,
		Progress:   float64(step) / float64(totalSteps),
		BodyCount:  len(bodies),
		Stats:      Measure(bodies),
	}
	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("telemetry: marshal: %v", err)
		return
	}

	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	for client := range ts.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

// Close stops the server and disconnects every client.
func (ts *TelemetryServer) Close() error {
	ts.mutex.Lock()
	for client := range ts.clients {
		delete(ts.clients, client)
		client.conn.Close()
	}
	ts.mutex.Unlock()
	return ts.server.Close()
}
