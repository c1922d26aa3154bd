package game

import "slices"

// NextSeat walks seats circularly from current and returns the first seat
// accepted by eligible, along with how many steps it took to get there. A
// nil eligible accepts every seat. ok is false when current is not seated
// or nobody qualifies.
func NextSeat(seats []int, current int, eligible func(seat int) bool) (next, steps int, ok bool) {
	idx := slices.Index(seats, current)
	if idx < 0 {
		return 0, 0, false
	}

	n := len(seats)
	for step := 1; step <= n; step++ {
		seat := seats[(idx+step)%n]
		if eligible == nil || eligible(seat) {
			return seat, step, true
		}
	}
	return 0, 0, false
}

// Distance returns how many steps forward it takes to get from one seat to
// another. Going from a seat to itself is a full lap.
func Distance(seats []int, from, to int) (int, bool) {
	i, j := slices.Index(seats, from), slices.Index(seats, to)
	if i < 0 || j < 0 {
		return 0, false
	}

	n := len(seats)
	d := (j - i + n) % n
	if d == 0 {
		d = n
	}
	return d, true
}

// NonLocked returns the seats whose hands may still be targeted after caller
// has called it: the seats from the current turn up to the one before the
// caller, in turn order. The run starts as the whole table and loses one
// seat per turn. ok is false when either seat is unknown.
func NonLocked(seats []int, caller, turn int) ([]int, bool) {
	c := slices.Index(seats, caller)
	if c < 0 {
		return nil, false
	}

	n := len(seats)
	rotation := make([]int, n)
	for i := range n {
		rotation[i] = seats[(c+i)%n]
	}

	t := slices.Index(rotation, turn)
	if t < 0 {
		return nil, false
	}
	return rotation[t:], true
}
