package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"spawncycle.ai/internal/protocol"
	"spawncycle.ai/internal/sim/model"
	"spawncycle.ai/internal/sim/multiworld"
	"spawncycle.ai/internal/sim/world"
)

type Options struct {
	// Operators may send COMMAND and SET_SPAWN. Empty means every player.
	Operators []string
	// RequestTimeout bounds each round trip into a world loop.
	RequestTimeout time.Duration
}

type Server struct {
	worlds *multiworld.Manager
	log    *log.Logger
	ops    map[string]bool
	reqTTL time.Duration

	upgrader websocket.Upgrader
}

func NewServer(m *multiworld.Manager, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	s := &Server{
		worlds: m,
		log:    logger,
		reqTTL: opts.RequestTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	if len(opts.Operators) > 0 {
		s.ops = map[string]bool{}
		for _, name := range opts.Operators {
			s.ops[strings.ToLower(strings.TrimSpace(name))] = true
		}
	}
	return s
}

type session struct {
	playerID string
	name     string
	world    *world.World
	out      chan []byte
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := s.handshake(ctx, conn)
		if sess == nil {
			return
		}

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-sess.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			reply := s.dispatch(ctx, sess, msg)
			if reply == nil {
				continue
			}
			b, err := json.Marshal(reply)
			if err != nil {
				continue
			}
			select {
			case sess.out <- b:
			case <-ctx.Done():
			}
		}

		// Cleanup.
		sess.world.Leave(sess.playerID)
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil
	}
	hello.PlayerName = strings.TrimSpace(hello.PlayerName)
	if hello.PlayerName == "" {
		closeWith(conn, "player_name required")
		return nil
	}
	w, ok := s.worlds.Resolve(hello.World)
	if !ok {
		_ = writeJSON(conn, protocol.NewReply(false, protocol.ErrWorldNotFound, "Unknown world "+hello.World))
		closeWith(conn, "unknown world")
		return nil
	}

	out := make(chan []byte, 16)
	jctx, cancel := context.WithTimeout(ctx, s.reqTTL)
	defer cancel()
	resp, err := w.Join(jctx, hello.PlayerName, out)
	if err != nil {
		_ = writeJSON(conn, protocol.NewReply(false, protocol.ErrWorldBusy, "World is not accepting joins"))
		return nil
	}

	// The world may already have queued broadcasts on out; WELCOME goes first
	// because the writer goroutine has not started yet.
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        resp.PlayerID,
		FirstJoin:       resp.FirstJoin,
		World:           w.Name(),
		Spawn:           resp.Spawn.ToArray(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		w.Leave(resp.PlayerID)
		return nil
	}
	s.log.Printf("player %s joined %s as %s", hello.PlayerName, w.Name(), resp.PlayerID)
	return &session{playerID: resp.PlayerID, name: hello.PlayerName, world: w, out: out}
}

// dispatch handles one client message and returns the REPLY to send, if any.
func (s *Server) dispatch(ctx context.Context, sess *session, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.NewReply(false, protocol.ErrProtoBadRequest, "malformed message")
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.NewReply(false, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	rctx, cancel := context.WithTimeout(ctx, s.reqTTL)
	defer cancel()

	switch base.Type {
	case protocol.TypeRespawn:
		var m protocol.RespawnMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return protocol.NewReply(false, protocol.ErrProtoBadRequest, err.Error())
		}
		at, err := sess.world.Respawn(rctx, sess.playerID, m.HasBed)
		if err != nil {
			return protocol.NewReply(false, protocol.ErrWorldBusy, "respawn timed out")
		}
		return protocol.NewReply(true, "", "Respawned at "+at.String())

	case protocol.TypeSetBed:
		var m protocol.SetBedMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return protocol.NewReply(false, protocol.ErrProtoBadRequest, err.Error())
		}
		var bed *model.Vec3i
		if m.Pos != nil {
			b := model.FromArray(*m.Pos)
			bed = &b
		}
		if err := sess.world.SetBed(rctx, sess.playerID, bed); err != nil {
			return protocol.NewReply(false, protocol.ErrBadRequest, err.Error())
		}
		if bed == nil {
			return protocol.NewReply(true, "", "Bed cleared")
		}
		return protocol.NewReply(true, "", "Bed set at "+bed.String())

	case protocol.TypeCommand:
		var m protocol.CommandMsg
		if err := json.Unmarshal(msg, &m); err != nil || strings.TrimSpace(m.Name) == "" {
			return protocol.NewReply(false, protocol.ErrProtoBadRequest, "command name required")
		}
		if !s.isOperator(sess.name) {
			return protocol.NewReply(false, protocol.ErrNoPermission, "You do not have permission to use this command.")
		}
		resp, err := sess.world.Command(rctx, m.Name, m.Args)
		if err != nil {
			return protocol.NewReply(false, protocol.ErrWorldBusy, "command timed out")
		}
		if !resp.OK {
			return protocol.NewReply(false, protocol.ErrUnknownCommand, "Unknown command: "+m.Name)
		}
		return protocol.NewReply(true, "", resp.Lines...)

	case protocol.TypeSetSpawn:
		var m protocol.SetSpawnMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return protocol.NewReply(false, protocol.ErrProtoBadRequest, err.Error())
		}
		if !s.isOperator(sess.name) {
			return protocol.NewReply(false, protocol.ErrNoPermission, "You do not have permission to set the spawn.")
		}
		p := model.FromArray(m.Pos)
		if err := sess.world.RequestSetSpawn(rctx, p); err != nil {
			return protocol.NewReply(false, protocol.ErrBadRequest, err.Error())
		}
		return protocol.NewReply(true, "", "Spawn set to "+p.String())

	default:
		return protocol.NewReply(false, protocol.ErrProtoBadRequest, "unsupported message type "+base.Type)
	}
}

func (s *Server) isOperator(name string) bool {
	if s.ops == nil {
		return true
	}
	return s.ops[strings.ToLower(name)]
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
