package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"spawncycle.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "player name")
		world    = flag.String("world", "", "world to join (default: server default)")
		bed      = flag.String("bed", "", "set a bed at x,y,z before respawning (\"none\" clears it)")
		command  = flag.String("cmd", "", "command to run after joining, e.g. \"forcespawnmove reset\"")
		respawns = flag.Int("respawns", 0, "number of respawns to perform")
		every    = flag.Duration("every", 2*time.Second, "delay between respawns")
		stay     = flag.Bool("stay", false, "keep listening for broadcasts until interrupted")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      *name,
		World:           *world,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	done := make(chan struct{})
	welcomed := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(conn, logger, welcomed)
	}()

	select {
	case <-welcomed:
	case <-done:
		logger.Fatalf("connection closed before WELCOME")
	case <-time.After(5 * time.Second):
		logger.Fatalf("no WELCOME")
	}

	for _, msg := range plan(*bed, *command, *respawns) {
		if err := conn.WriteJSON(msg); err != nil {
			logger.Fatalf("send: %v", err)
		}
		if _, ok := msg.(protocol.RespawnMsg); ok && *every > 0 {
			time.Sleep(*every)
		}
	}

	if !*stay {
		// Give the last REPLY a moment to arrive.
		time.Sleep(500 * time.Millisecond)
		return
	}
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	select {
	case <-stop:
	case <-done:
	}
}

func readLoop(conn *websocket.Conn, logger *log.Logger, welcomed chan struct{}) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME player_id=%s world=%s first_join=%v spawn=%v", w.PlayerID, w.World, w.FirstJoin, w.Spawn)
			close(welcomed)
		case protocol.TypeBroadcast:
			var b protocol.BroadcastMsg
			if err := json.Unmarshal(msg, &b); err == nil {
				logger.Printf("BROADCAST %s", b.Text)
			}
		case protocol.TypeReply:
			var r protocol.ReplyMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			if r.Code != "" {
				logger.Printf("REPLY ok=%v code=%s %s", r.OK, r.Code, strings.Join(r.Lines, " | "))
			} else {
				logger.Printf("REPLY ok=%v %s", r.OK, strings.Join(r.Lines, " | "))
			}
		}
	}
}

// plan builds the messages to send after WELCOME, in order.
func plan(bed, command string, respawns int) []any {
	var out []any
	switch b := strings.TrimSpace(bed); {
	case b == "":
	case strings.EqualFold(b, "none"):
		out = append(out, protocol.SetBedMsg{Type: protocol.TypeSetBed, ProtocolVersion: protocol.Version})
	default:
		if v, err := parseVec3(b); err == nil {
			out = append(out, protocol.SetBedMsg{Type: protocol.TypeSetBed, ProtocolVersion: protocol.Version, Pos: &v})
		}
	}
	if fields := strings.Fields(command); len(fields) > 0 {
		out = append(out, protocol.CommandMsg{
			Type:            protocol.TypeCommand,
			ProtocolVersion: protocol.Version,
			Name:            strings.TrimPrefix(fields[0], "/"),
			Args:            fields[1:],
		})
	}
	for i := 0; i < respawns; i++ {
		out = append(out, protocol.RespawnMsg{Type: protocol.TypeRespawn, ProtocolVersion: protocol.Version})
	}
	return out
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}
