package simdrv

import "github.com/evo-platform/evo-core/internal/ioreg"

// pendingReaction is one scheduled DI change, expressed as a tick deadline
// so the queue never depends on wall-clock time (spec.md 9's guidance to
// prefer monotonic ticks for RT-path scheduling over timers).
type pendingReaction struct {
	deadlineTick uint64
	diIndex      int
	result       bool
}

// boolBank narrows a digital bank to the read access LinkQueue needs,
// avoiding a dependency on wire.IoBank.
type boolBank interface {
	Get(i int) bool
}

// LinkQueue models spec.md 4.2's linked DO->DI reaction chains: a DO edge
// schedules a future DI change after a configured delay, used to simulate
// pneumatic cylinders and similar delayed feedback.
type LinkQueue struct {
	links        map[int][]ioreg.LinkedReaction
	cyclePeriodS float64
	pending      []pendingReaction
	prevValues   map[int]bool
	latched      map[int]bool // DI values set by reactions that have fired
}

// NewLinkQueue builds a queue from the registry's DO->DI link declarations.
// cyclePeriodS is the HAL cycle period in seconds, used to convert delay_s
// into a tick count.
func NewLinkQueue(links map[int][]ioreg.LinkedReaction, cyclePeriodS float64) *LinkQueue {
	return &LinkQueue{links: links, cyclePeriodS: cyclePeriodS, prevValues: make(map[int]bool, len(links))}
}

// Observe compares the current DO bank against the previous one, enqueues
// any matching reactions on a trigger edge, latches any reactions whose
// deadline has arrived, and writes every latched DI value into out, so a
// fired reaction holds its DI until a later reaction changes it.
func (q *LinkQueue) Observe(tick uint64, doBank boolBank, out interface{ Set(int, bool) }) {
	for doIndex, reactions := range q.links {
		cur := doBank.Get(doIndex)
		prev := q.prevValues[doIndex]
		if cur == prev {
			continue
		}
		for _, rx := range reactions {
			wantOn := rx.Trigger == "on"
			if cur != wantOn {
				continue
			}
			delayTicks := uint64(0)
			if q.cyclePeriodS > 0 {
				delayTicks = uint64(rx.DelayS/q.cyclePeriodS + 0.5)
			}
			q.pending = append(q.pending, pendingReaction{
				deadlineTick: tick + delayTicks,
				diIndex:      rx.DiIndex,
				result:       rx.Result == "on",
			})
		}
		q.prevValues[doIndex] = cur
	}

	if q.latched == nil {
		q.latched = make(map[int]bool)
	}
	remaining := q.pending[:0]
	for _, p := range q.pending {
		if tick >= p.deadlineTick {
			q.latched[p.diIndex] = p.result
		} else {
			remaining = append(remaining, p)
		}
	}
	q.pending = remaining
	for di, v := range q.latched {
		out.Set(di, v)
	}
}
