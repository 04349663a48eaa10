package scheduler

import "time"

// DelayStrategy yields the delays between consecutive runs of a timer. A
// strategy is owned by a single timer and is not safe for concurrent use.
type DelayStrategy interface {
	// Next returns the delay before the next run, or false once the strategy
	// is exhausted.
	Next() (time.Duration, bool)
}

// UniformDelay always returns the same delay.
type UniformDelay struct {
	delay  time.Duration
	rounds int // 0 is unlimited
	used   int
}

// NewUniformDelay returns a strategy that never runs out.
func NewUniformDelay(delay time.Duration) *UniformDelay {
	return &UniformDelay{delay: delay}
}

// NewLimitedUniformDelay returns a strategy exhausted after rounds delays.
func NewLimitedUniformDelay(delay time.Duration, rounds int) *UniformDelay {
	return &UniformDelay{delay: delay, rounds: rounds}
}

func (s *UniformDelay) Next() (time.Duration, bool) {
	if s.rounds > 0 && s.used >= s.rounds {
		return 0, false
	}
	s.used++
	return s.delay, true
}

// LinearDelay grows the delay linearly from min to max over a fixed number
// of rounds.
type LinearDelay struct {
	min, max time.Duration
	rounds   int
	used     int
}

// NewLinearDelay returns a strategy going from min to max in rounds steps.
func NewLinearDelay(min, max time.Duration, rounds int) *LinearDelay {
	if rounds < 1 {
		rounds = 1
	}
	return &LinearDelay{min: min, max: max, rounds: rounds}
}

// NewLinearDelayWithDuration returns a linear strategy whose delays add up to
// roughly duration.
func NewLinearDelayWithDuration(min, max, duration time.Duration) *LinearDelay {
	rounds := 1
	if min+max > 0 {
		rounds = int(2 * duration / (min + max))
	}
	return NewLinearDelay(min, max, rounds)
}

func (s *LinearDelay) Next() (time.Duration, bool) {
	if s.used >= s.rounds {
		return 0, false
	}

	delay := s.min
	if s.rounds > 1 {
		delay += (s.max - s.min) * time.Duration(s.used) / time.Duration(s.rounds-1)
	}
	s.used++
	return delay, true
}

// AggregateDelay consumes its strategies one after the other.
type AggregateDelay struct {
	strategies []DelayStrategy
}

// NewAggregateDelay chains strategies.
func NewAggregateDelay(strategies ...DelayStrategy) *AggregateDelay {
	return &AggregateDelay{strategies: strategies}
}

func (s *AggregateDelay) Next() (time.Duration, bool) {
	for len(s.strategies) > 0 {
		if delay, ok := s.strategies[0].Next(); ok {
			return delay, true
		}
		s.strategies = s.strategies[1:]
	}
	return 0, false
}
