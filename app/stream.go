package app

import (
	"context"
	"io"
	"net/http"
	"sync"

	"diesel.com/sph/config"
	F "diesel.com/sph/fluid"
	U "diesel.com/sph/utils"
	"github.com/gorilla/websocket"
	jww "github.com/spf13/jwalterweatherman"
)

//FrameMessage - one frame as sent to stream clients
type FrameMessage struct {
	Type      string    `json:"type"`
	Index     int       `json:"index"`
	Time      float64   `json:"time"`
	Dimension int       `json:"dimension"`
	Radius    float64   `json:"radius"`
	Positions []float32 `json:"positions"`
	Densities []float32 `json:"densities"`
}

//ControlMessage from a client. Type "parameters" carries override fields by
//their run config names
type ControlMessage struct {
	Type       string                 `json:"type"`
	Parameters map[string]interface{} `json:"parameters"`
}

//ReplyMessage acknowledges or rejects a control message
type ReplyMessage struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}

//Hub streams frames to websocket clients and forwards their parameter
//changes to control
type Hub struct {
	upgrader websocket.Upgrader
	control  func(config.Overrides) error
	log      *jww.Notepad

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex //Per connection write lock

	lastMu sync.Mutex
	last   *FrameMessage

	frames chan *FrameMessage
}

func NewHub(control func(config.Overrides) error, log *jww.Notepad) *Hub {
	if log == nil {
		log = jww.NewNotepad(jww.LevelError, jww.LevelError, io.Discard, io.Discard, "", 0)
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1 << 16,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		control: control,
		log:     log,
		clients: make(map[*websocket.Conn]*sync.Mutex),
		frames:  make(chan *FrameMessage, 4),
	}
}

//NewFrameMessage packs a snapshot for the wire
func NewFrameMessage(snap *F.Snapshot) *FrameMessage {
	return &FrameMessage{
		Type:      "frame",
		Index:     snap.Frame,
		Time:      snap.Time,
		Dimension: int(snap.Dimension),
		Radius:    snap.Radius,
		Positions: U.TransferPositionData(nil, snap.Positions),
		Densities: U.TransferScalarData(nil, snap.Densities),
	}
}

//ObserveFrame queues the frame for broadcast. Frames are dropped while the
//queue is full so slow clients never stall the solver
func (h *Hub) ObserveFrame(snap *F.Snapshot) error {
	msg := NewFrameMessage(snap)
	h.lastMu.Lock()
	h.last = msg
	h.lastMu.Unlock()

	select {
	case h.frames <- msg:
	default:
		h.log.TRACE.Printf("Stream dropped frame %d", msg.Index)
	}
	return nil
}

//Run broadcasts queued frames until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.frames:
			h.broadcast(msg)
		}
	}
}

func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WARN.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connMutex := &sync.Mutex{}
	h.clientsMu.Lock()
	h.clients[conn] = connMutex
	h.clientsMu.Unlock()
	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, conn)
		h.clientsMu.Unlock()
	}()
	h.log.INFO.Printf("Stream client connected from %s", r.RemoteAddr)

	h.lastMu.Lock()
	last := h.last
	h.lastMu.Unlock()
	if last != nil {
		if err := h.write(conn, connMutex, last); err != nil {
			return
		}
	}

	for {
		var msg ControlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			h.log.INFO.Printf("Stream client %s disconnected: %v", r.RemoteAddr, err)
			return
		}
		reply := h.handleControl(&msg)
		if err := h.write(conn, connMutex, reply); err != nil {
			return
		}
	}
}

func (h *Hub) handleControl(msg *ControlMessage) *ReplyMessage {
	if msg.Type != "parameters" {
		return &ReplyMessage{Type: "error", Error: "unknown message type '" + msg.Type + "'"}
	}
	o, err := config.DecodeOverrides(msg.Parameters)
	if err == nil && h.control != nil {
		err = h.control(o)
	}
	if err != nil {
		h.log.WARN.Printf("Rejected parameters %v: %v", msg.Parameters, err)
		return &ReplyMessage{Type: "error", Error: err.Error()}
	}
	return &ReplyMessage{Type: "ack"}
}

func (h *Hub) write(conn *websocket.Conn, mutex *sync.Mutex, v interface{}) error {
	mutex.Lock()
	defer mutex.Unlock()
	return conn.WriteJSON(v)
}

func (h *Hub) broadcast(msg *FrameMessage) {
	h.clientsMu.RLock()
	clientsToRemove := []*websocket.Conn{}
	for client, mutex := range h.clients {
		if err := h.write(client, mutex, msg); err != nil {
			clientsToRemove = append(clientsToRemove, client)
		}
	}
	h.clientsMu.RUnlock()

	if len(clientsToRemove) > 0 {
		h.clientsMu.Lock()
		for _, client := range clientsToRemove {
			delete(h.clients, client)
			client.Close()
		}
		h.clientsMu.Unlock()
	}
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}
