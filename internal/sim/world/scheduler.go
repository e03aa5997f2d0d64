package world

import (
	"sort"

	"spawncycle.ai/internal/sim/spawncycle"
)

type task struct {
	id     spawncycle.TaskID
	owner  string
	fn     func()
	next   uint64
	every  uint64 // 0 = run once
	cancel bool
}

// Scheduler runs tasks on the world loop at tick granularity. It is not safe
// for use off the loop goroutine.
type Scheduler struct {
	now    func() uint64
	tasks  []*task
	nextID spawncycle.TaskID
}

func newScheduler(now func() uint64) *Scheduler {
	return &Scheduler{now: now}
}

func (s *Scheduler) schedule(owner string, fn func(), delayTicks, intervalTicks int64) spawncycle.TaskID {
	if delayTicks < 0 {
		delayTicks = 0
	}
	if intervalTicks < 0 {
		intervalTicks = 0
	}
	s.nextID++
	s.tasks = append(s.tasks, &task{
		id:    s.nextID,
		owner: owner,
		fn:    fn,
		next:  s.now() + uint64(delayTicks),
		every: uint64(intervalTicks),
	})
	return s.nextID
}

func (s *Scheduler) cancelOwner(owner string) {
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.owner == owner {
			t.cancel = true
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = kept
}

// Pending reports scheduled task counts per owner.
func (s *Scheduler) Pending() map[string]int {
	out := map[string]int{}
	for _, t := range s.tasks {
		out[t.owner]++
	}
	return out
}

// runDue runs every task due at tick in schedule order. Tasks may schedule or
// cancel tasks; cancelled tasks do not run later in the same pass.
func (s *Scheduler) runDue(tick uint64) {
	due := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.next <= tick {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].id < due[j].id })
	for _, t := range due {
		if t.cancel {
			continue
		}
		t.fn()
		if t.every == 0 {
			t.cancel = true
			continue
		}
		t.next = tick + t.every
	}
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.cancel {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = kept
}

// Owner returns a spawncycle.Scheduler whose CancelAll only affects tasks
// scheduled through it.
func (s *Scheduler) Owner(name string) *OwnerScheduler {
	return &OwnerScheduler{s: s, owner: name}
}

type OwnerScheduler struct {
	s     *Scheduler
	owner string
}

func (o *OwnerScheduler) SchedulePeriodic(fn func(), delayTicks, intervalTicks int64) spawncycle.TaskID {
	return o.s.schedule(o.owner, fn, delayTicks, intervalTicks)
}

func (o *OwnerScheduler) CancelAll() { o.s.cancelOwner(o.owner) }
