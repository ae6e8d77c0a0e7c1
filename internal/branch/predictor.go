// Package branch implements pluggable branch prediction for the
// reservation station's fetch stage: given a jump instruction's static
// operands, guess the destination pc before the jump actually resolves,
// then get told afterward whether the guess was right.
package branch

import "github.com/t86sim/t86/internal/isa"

// Predictor guesses a jump's destination at fetch time and is later told
// which way the branch actually went, so it can adjust future guesses.
type Predictor interface {
	// NextGuess returns the predicted destination for a jump fetched at
	// pc. fallthroughPC is pc+1, the destination to guess when nothing
	// better is known.
	NextGuess(pc int64, jump isa.Instruction, fallthroughPC int64) int64

	RegisterBranchTaken(pc, destination int64)
	RegisterBranchNotTaken(pc int64)
}

// Naive always follows a statically known destination operand and falls
// through otherwise. It never learns — RegisterBranchTaken/NotTaken are
// no-ops, matching the original's baseline predictor.
type Naive struct{}

func (Naive) NextGuess(pc int64, jump isa.Instruction, fallthroughPC int64) int64 {
	if jump.A.IsFetched() {
		return jump.A.Value
	}
	return fallthroughPC
}

func (Naive) RegisterBranchTaken(pc, destination int64) {}
func (Naive) RegisterBranchNotTaken(pc int64)           {}

// historyDepth bounds how many past outcomes Saturating keeps per pc
// before the oldest is forgotten — matches the sketch left in the teacher
// repo for a history-windowed predictor.
const historyDepth = 8

// Saturating is a per-pc majority predictor: it remembers the last
// historyDepth taken/not-taken outcomes seen at each branch site and
// predicts whatever the majority of that window was. With no history yet
// for a pc, it defers to Naive's static-operand-or-fallthrough guess. This
// finishes the predictor the teacher repo left as a commented-out sketch
// without completing.
type Saturating struct {
	history map[int64][]bool // true == taken, oldest first
}

// NewSaturating builds an empty history-windowed predictor.
func NewSaturating() *Saturating {
	return &Saturating{history: make(map[int64][]bool)}
}

func (s *Saturating) NextGuess(pc int64, jump isa.Instruction, fallthroughPC int64) int64 {
	hist, ok := s.history[pc]
	if !ok || len(hist) == 0 {
		return Naive{}.NextGuess(pc, jump, fallthroughPC)
	}
	taken := 0
	for _, h := range hist {
		if h {
			taken++
		}
	}
	if taken*2 >= len(hist) {
		if jump.A.IsFetched() {
			return jump.A.Value
		}
	}
	return fallthroughPC
}

func (s *Saturating) record(pc int64, taken bool) {
	hist := s.history[pc]
	hist = append(hist, taken)
	if len(hist) > historyDepth {
		hist = hist[len(hist)-historyDepth:]
	}
	s.history[pc] = hist
}

func (s *Saturating) RegisterBranchTaken(pc, destination int64) { s.record(pc, true) }
func (s *Saturating) RegisterBranchNotTaken(pc int64)           { s.record(pc, false) }
