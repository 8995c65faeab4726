package conv

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	myMiddleware "github.com/LickLitty/ungservice2025/internal/middleware"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum frame size allowed from peer.
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

// Handler serves the live conversation view: one websocket per open thread,
// streaming reconciled snapshots out and accepting sends in.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// sendFrame is what the browser submits: just the body text.
type sendFrame struct {
	Body string `json:"body"`
}

// viewFrame is what we push down. Type is "snapshot" for the full log,
// "send_confirmed" with the accepted server message, or "send_failed" when
// a send rolled back (with the body so the compose box can restore it).
type viewFrame struct {
	Type     string    `json:"type"`
	Messages []Message `json:"messages,omitempty"`
	Body     string    `json:"body,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// wsClient is the middleman between the websocket connection and a thread
// session.
type wsClient struct {
	session *Session
	conn    *websocket.Conn
	send    chan []byte
}

// ServeWs opens the thread named by ?thread= and bridges it to a websocket.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	key, err := ParseThreadKey(r.URL.Query().Get("thread"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// A direct thread is only visible to its two participants. Job thread
	// access mirrors the job chat page: any authenticated viewer of the
	// job may open it.
	if !key.IsJob() && key.UserA != userID && key.UserB != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	// The request context dies when this handler returns, so the session
	// runs on its own context; readPump closes it when the socket drops.
	session := NewSession(h.store, key, userID)
	session.Start(context.Background())

	client := &wsClient{
		session: session,
		conn:    conn,
		send:    make(chan []byte, 16),
	}

	go client.forwardUpdates()
	go client.writePump()
	go client.readPump()
}

// forwardUpdates turns session wakeups into snapshot frames. The wakeup
// channel coalesces, so each frame carries the freshest log.
func (c *wsClient) forwardUpdates() {
	c.pushSnapshot()
	for {
		select {
		case <-c.session.Updates():
			c.pushSnapshot()
		case <-c.session.Done():
			return
		}
	}
}

func (c *wsClient) pushSnapshot() {
	frame, err := json.Marshal(viewFrame{Type: "snapshot", Messages: c.session.Log()})
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
		// Viewer is not keeping up; the next snapshot supersedes this one.
	}
}

// readPump pumps send requests from the websocket into the session.
func (c *wsClient) readPump() {
	defer func() {
		// Deselect: cancel the subscription, stop the poll timer. The send
		// channel stays open; writePump exits on the dead connection.
		c.session.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("conv: ws read: %v", err)
			}
			break
		}

		var frame sendFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		c.submit(frame.Body)
	}
}

func (c *wsClient) submit(body string) {
	d, err := c.session.Send(body)
	if err != nil {
		c.pushFailure(body, err)
		return
	}
	go func() {
		<-d.doneCh()
		if err := d.Err(); err != nil {
			c.pushFailure(d.Body, err)
			return
		}
		c.pushConfirmed(d.Message())
	}()
}

// pushConfirmed tells the browser which server message its send became, so
// the compose box can clear without waiting for the next snapshot.
func (c *wsClient) pushConfirmed(msg Message) {
	frame, err := json.Marshal(viewFrame{Type: "send_confirmed", Messages: []Message{msg}})
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *wsClient) pushFailure(body string, err error) {
	frame, merr := json.Marshal(viewFrame{Type: "send_failed", Body: body, Error: err.Error()})
	if merr != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

// writePump pumps frames from the send channel to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GetHistory serves a one-shot ordered fetch for ?thread=, for views that
// do not hold a live session open.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	key, err := ParseThreadKey(r.URL.Query().Get("thread"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !key.IsJob() && key.UserA != userID && key.UserB != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	msgs, err := h.store.FetchMessages(r.Context(), key, time.Time{})
	if err != nil {
		http.Error(w, "failed to load messages", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}
	json.NewEncoder(w).Encode(msgs)
}

// PostMessage is the plain REST send: insert and return the stored row.
// Live views go through the websocket's optimistic pipeline instead.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Thread string `json:"thread"`
		Body   string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	key, err := ParseThreadKey(req.Thread)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !key.IsJob() && key.UserA != userID && key.UserB != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		http.Error(w, ErrEmptyBody.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.store.InsertMessage(r.Context(), key, userID, req.Body)
	if err != nil {
		http.Error(w, "failed to send message", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}
