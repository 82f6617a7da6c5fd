// services/pwm/fade.go
package pwm

import (
	"context"
	"math"
	"time"

	pwmcore "pwmgroup-go/pwm"
	"pwmgroup-go/types"
	"pwmgroup-go/x/ramp"
)

type fadeKey struct {
	group string
	ch    pwmcore.ChannelID
}

type fade struct {
	id     uint32
	cancel context.CancelFunc
}

// fadeStep is posted by a fade goroutine; the service loop applies it.
type fadeStep struct {
	key     fadeKey
	id      uint32
	percent float32
	last    bool
}

func scaled(percent float32) uint32 {
	return uint32(math.Round(float64(percent) * fadeScale))
}

// startFade cancels any fade on the same channel and ramps from the
// channel's last known percentage to the target. Steps are delivered to
// the service loop; the goroutine never touches the handle.
func (s *Service) startFade(parent context.Context, key fadeKey, from float32, p types.PWMFade) {
	s.cancelFade(key)

	s.fadeSeq++
	id := s.fadeSeq
	ctx, cancel := context.WithCancel(parent)
	s.fades[key] = fade{id: id, cancel: cancel}

	cur := scaled(from)
	to := scaled(p.To)
	d := time.Duration(p.DurationMs) * time.Millisecond

	go func() {
		defer cancel()
		tick := s.tick(ctx)
		ramp.Linear(cur, to, d, p.Steps, tick, func(level uint32) {
			st := fadeStep{key: key, id: id, percent: float32(level) / fadeScale, last: level == to}
			select {
			case s.steps <- st:
			case <-ctx.Done():
			}
		})
	}()
}

// applyFadeStep runs on the service loop. Steps from a superseded fade
// are dropped.
func (s *Service) applyFadeStep(st fadeStep) {
	f, ok := s.fades[st.key]
	if !ok || f.id != st.id {
		return
	}
	g := s.groups[st.key.group]
	if g == nil {
		s.cancelFade(st.key)
		return
	}
	if err := g.h.SetDutyPercent(st.key.ch, st.percent); err != nil {
		s.log.Warnf("fade on %s/%d aborted: %v", st.key.group, st.key.ch, err)
		s.cancelFade(st.key)
		return
	}
	g.percent[st.key.ch] = st.percent
	s.publishValue(g, st.key.ch)
	if st.last {
		s.cancelFade(st.key)
	}
}

func (s *Service) cancelFade(key fadeKey) {
	if f, ok := s.fades[key]; ok {
		f.cancel()
		delete(s.fades, key)
	}
}

func (s *Service) cancelGroupFades(group string) {
	for k := range s.fades {
		if k.group == group {
			s.cancelFade(k)
		}
	}
}
