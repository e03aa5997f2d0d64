package world

import (
	"context"

	"spawncycle.ai/internal/sim/model"
)

// The methods below are the off-loop entry points used by transports and the
// admin API. Each enqueues a request and waits for the loop's reply.

func (w *World) Join(ctx context.Context, name string, out chan []byte) (JoinResponse, error) {
	req := JoinRequest{Name: name, Out: out, Resp: make(chan JoinResponse, 1)}
	if err := send(ctx, w.join, req); err != nil {
		return JoinResponse{}, err
	}
	return recv(ctx, req.Resp)
}

func (w *World) Leave(playerID string) {
	select {
	case w.leave <- playerID:
	default:
		// Loop gone or saturated; the client's sends are non-blocking.
	}
}

func (w *World) Respawn(ctx context.Context, playerID string, hasBed bool) (model.Vec3i, error) {
	req := RespawnRequest{PlayerID: playerID, HasBed: hasBed, Resp: make(chan model.Vec3i, 1)}
	if err := send(ctx, w.respawn, req); err != nil {
		return model.Vec3i{}, err
	}
	return recv(ctx, req.Resp)
}

func (w *World) SetBed(ctx context.Context, playerID string, bed *model.Vec3i) error {
	req := SetBedRequest{PlayerID: playerID, Bed: bed, Resp: make(chan error, 1)}
	if err := send(ctx, w.setBed, req); err != nil {
		return err
	}
	err, rerr := recv(ctx, req.Resp)
	if rerr != nil {
		return rerr
	}
	return err
}

func (w *World) Command(ctx context.Context, name string, args []string) (CommandResponse, error) {
	req := CommandRequest{Name: name, Args: args, Resp: make(chan CommandResponse, 1)}
	if err := send(ctx, w.command, req); err != nil {
		return CommandResponse{}, err
	}
	return recv(ctx, req.Resp)
}

// RequestSetSpawn moves spawn from outside the cycle (operator action).
func (w *World) RequestSetSpawn(ctx context.Context, pos model.Vec3i) error {
	req := SetSpawnRequest{Pos: pos, Resp: make(chan error, 1)}
	if err := send(ctx, w.setSpawn, req); err != nil {
		return err
	}
	err, rerr := recv(ctx, req.Resp)
	if rerr != nil {
		return rerr
	}
	return err
}

func (w *World) Status(ctx context.Context) (Status, error) {
	resp := make(chan Status, 1)
	if err := send(ctx, w.status, resp); err != nil {
		return Status{}, err
	}
	return recv(ctx, resp)
}

func send[T any](ctx context.Context, ch chan T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recv[T any](ctx context.Context, ch chan T) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
