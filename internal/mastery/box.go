// Package mastery tracks spaced-repetition state per learner and
// item: a box 1..5 plus the current streak of consecutive correct
// answers.
package mastery

const (
	MinBox = 1
	MaxBox = 5
)

// promoteAt maps a box to the streak length that promotes out of it.
// Box 5 is absent: it is the ceiling, the streak keeps counting for
// telemetry but there is no box 6.
var promoteAt = map[int]int{1: 1, 2: 2, 3: 2, 4: 3}

// NextBox is the whole forgetting model. A wrong answer resets to
// (1, 0) no matter how high the learner was: one miss wipes the
// streak, it does not decay gradually. A correct answer extends the
// streak and promotes when the current box's threshold is reached.
// Total over its domain, no side effects, no storage.
func NextBox(box, consecutiveCorrect int, wasCorrect bool) (newBox, newConsecutiveCorrect int) {
	if !wasCorrect {
		return MinBox, 0
	}
	if box < MinBox {
		box = MinBox
	}
	if box > MaxBox {
		box = MaxBox
	}
	if consecutiveCorrect < 0 {
		consecutiveCorrect = 0
	}
	streak := consecutiveCorrect + 1
	if need, promotable := promoteAt[box]; promotable && streak >= need {
		return box + 1, 0
	}
	return box, streak
}
