package world

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"spawncycle.ai/internal/protocol"
	"spawncycle.ai/internal/sim/model"
	"spawncycle.ai/internal/sim/spawncycle"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case id := <-w.leave:
			w.handleLeave(id)
		case req := <-w.respawn:
			w.handleRespawn(req)
		case req := <-w.setBed:
			w.handleSetBed(req)
		case req := <-w.command:
			w.handleCommand(req)
		case req := <-w.setSpawn:
			req.Resp <- w.SetSpawnLocation(req.Pos)
		case text := <-w.broadcast:
			w.fanout(text)
		case fn := <-w.submit:
			fn()
		case resp := <-w.status:
			resp <- w.statusLocked()
		case <-ticker.C:
			w.StepOnce()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances one tick and runs due tasks. Run calls it from the
// ticker; tests call it directly.
func (w *World) StepOnce() uint64 {
	t := w.tick.Load()
	w.sched.runDue(t)
	w.tick.Add(1)
	return t
}

// Submit queues fn onto the loop goroutine.
func (w *World) Submit(ctx context.Context, fn func()) error {
	select {
	case w.submit <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues fn onto the loop goroutine without blocking; false means the
// queue was full and fn was dropped.
func (w *World) Post(fn func()) bool {
	select {
	case w.submit <- fn:
		return true
	default:
		return false
	}
}

// Broadcast queues text for every connected client. Safe from any goroutine;
// messages are dropped when the queue is full.
func (w *World) Broadcast(text string) {
	select {
	case w.broadcast <- text:
	default:
		w.log.Printf("broadcast queue full; dropped: %q", text)
	}
}

func (w *World) fanout(text string) {
	b, err := json.Marshal(protocol.NewBroadcast(text))
	if err != nil {
		return
	}
	for _, c := range w.clients {
		sendLatest(c.Out, b)
	}
}

func (w *World) handleJoin(req JoinRequest) {
	id, seen := w.byName[req.Name]
	first := !seen
	if w.reg != nil {
		first = w.reg.MarkJoined(req.Name)
	}
	if !seen {
		n := w.nextPlayerNum.Add(1)
		id = fmt.Sprintf("P%06d", n)
		w.byName[req.Name] = id
		w.players[id] = &model.Player{ID: id, Name: req.Name, JoinedAt: w.tick.Load()}
	}
	p := w.players[id]
	p.Online = true
	if req.Out != nil {
		w.clients[id] = &clientState{Out: req.Out}
	}

	resp := JoinResponse{PlayerID: id, FirstJoin: first, Spawn: w.SpawnLocation()}
	if req.Resp != nil {
		req.Resp <- resp
	}
	w.log.Printf("join: %s (%s) first=%v", req.Name, id, first)
	if w.hooks.OnJoin != nil {
		w.hooks.OnJoin(spawncycle.JoinEvent{Player: id, FirstJoin: first})
	}
}

func (w *World) handleLeave(id string) {
	delete(w.clients, id)
	if p := w.players[id]; p != nil {
		p.Online = false
	}
}

// handleRespawn places the player at their bed or the current spawn, then
// fires OnRespawn; a spawn move it causes applies to later respawns.
func (w *World) handleRespawn(req RespawnRequest) {
	p := w.players[req.PlayerID]
	hasBed := req.HasBed || p.HasBed()
	at := w.SpawnLocation()
	if p.HasBed() {
		at = *p.Bed
	}
	if req.Resp != nil {
		req.Resp <- at
	}
	if w.hooks.OnRespawn != nil {
		w.hooks.OnRespawn(spawncycle.RespawnEvent{Player: req.PlayerID, HasBed: hasBed})
	}
}

func (w *World) handleSetBed(req SetBedRequest) {
	p := w.players[req.PlayerID]
	var err error
	switch {
	case p == nil:
		err = fmt.Errorf("unknown player %q", req.PlayerID)
	case req.Bed == nil:
		p.Bed = nil
	case !w.terrain.InBounds(req.Bed.X, req.Bed.Z):
		err = fmt.Errorf("%w: %s", ErrOutOfBounds, *req.Bed)
	default:
		b := *req.Bed
		p.Bed = &b
	}
	if req.Resp != nil {
		req.Resp <- err
	}
}

func (w *World) handleCommand(req CommandRequest) {
	var resp CommandResponse
	if w.hooks.OnCommand != nil {
		resp.Lines, resp.OK = w.hooks.OnCommand(req.Name, req.Args)
	}
	if req.Resp != nil {
		req.Resp <- resp
	}
}

func (w *World) statusLocked() Status {
	st := Status{
		Name:          w.cfg.Name,
		Tick:          w.tick.Load(),
		Spawn:         w.SpawnLocation(),
		Players:       len(w.players),
		Online:        len(w.clients),
		LoadedChunks:  len(w.terrain.Chunks),
		ScheduledJobs: w.sched.Pending(),
	}
	return st
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
