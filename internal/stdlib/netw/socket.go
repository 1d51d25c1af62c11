// Package netw exposes a WebSocket client as a foreign object. Grounded
// on the teacher's internal/network/websocket.go WebSocketConn (dial,
// background reader goroutine feeding a buffered channel, mutex-guarded
// close), collapsed from a connection-id-keyed NetworkModule map into one
// foreign object per dial, the same shape db.Conn takes for a database
// connection.
package netw

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"hulascript/internal/foreign"
	"hulascript/internal/instance"
	"hulascript/internal/value"
)

var Methods = foreign.MethodTable{
	"send":    0,
	"receive": 1,
	"close":   2,
	"ping":    3,
}

// Socket is one open WebSocket client connection.
type Socket struct {
	foreign.Base
	url    string
	conn   *websocket.Conn
	inbox  chan []byte
	closed bool
}

func Dial(url string) (*Socket, error) {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("socket: dial failed: %w", err)
	}
	s := &Socket{Base: foreign.Base{TypeName: "socket"}, url: url, conn: conn, inbox: make(chan []byte, 100)}
	go s.readLoop()
	return s, nil
}

func (s *Socket) readLoop() {
	defer close(s.inbox)
	for {
		if s.closed {
			return
		}
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.closed = true
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		select {
		case s.inbox <- msg:
		default:
			<-s.inbox
			s.inbox <- msg
		}
	}
}

func (s *Socket) ToString() string { return fmt.Sprintf("<socket %s>", s.url) }

func (s *Socket) LoadProperty(nameHash uint64) (value.Value, bool) { return value.Value{}, false }

func (s *Socket) CallMethod(methodID uint32, args []value.Value, host foreign.Host) (value.Value, error) {
	switch methodID {
	case Methods["send"]:
		if len(args) != 1 || args[0].Tag != value.String {
			return value.Value{}, fmt.Errorf("socket: send(text) requires a string argument")
		}
		if s.closed {
			return value.Value{}, fmt.Errorf("socket: connection is closed")
		}
		return value.NilValue(), s.conn.WriteMessage(websocket.TextMessage, []byte(args[0].Str.Data))
	case Methods["receive"]:
		timeout := 30 * time.Second
		if len(args) == 1 && args[0].Tag == value.Number {
			timeout = time.Duration(args[0].Num * float64(time.Second))
		}
		select {
		case msg, ok := <-s.inbox:
			if !ok {
				return value.NilValue(), fmt.Errorf("socket: connection closed")
			}
			return host.MakeString(string(msg)), nil
		case <-time.After(timeout):
			return value.NilValue(), fmt.Errorf("socket: receive timed out")
		}
	case Methods["close"]:
		s.closed = true
		s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return value.NilValue(), s.conn.Close()
	case Methods["ping"]:
		return value.NilValue(), s.conn.WriteMessage(websocket.PingMessage, []byte{})
	default:
		return value.Value{}, fmt.Errorf("socket: no such method id %d", methodID)
	}
}

// Register binds socket_connect(url) as a global.
func Register(in *instance.Instance) bool {
	connect := in.MakeForeignFunction(func(args []value.Value, host foreign.Host) (value.Value, error) {
		if len(args) != 1 || args[0].Tag != value.String {
			return value.Value{}, fmt.Errorf("socket_connect(url) requires a string argument")
		}
		s, err := Dial(args[0].Str.Data)
		if err != nil {
			return value.Value{}, err
		}
		return in.AddForeignObject(s), nil
	})
	return in.DeclareGlobal("socket_connect", connect)
}
