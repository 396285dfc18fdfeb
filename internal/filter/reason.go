package filter

// Reason names why a candidate was rejected. Pass means it survived.
type Reason uint8

const (
	Pass Reason = iota
	UselessSell
	OffsettingLegs
	OpenLeft
	OpenRight
	Premium
	Delta
	AveragePnL
	LossLeft
	LossRight
	LossCenter

	numReasons
)

var reasonNames = [numReasons]string{
	Pass:           "pass",
	UselessSell:    "useless_sell",
	OffsettingLegs: "offsetting_legs",
	OpenLeft:       "open_left",
	OpenRight:      "open_right",
	Premium:        "premium",
	Delta:          "delta",
	AveragePnL:     "average_pnl",
	LossLeft:       "loss_left",
	LossRight:      "loss_right",
	LossCenter:     "loss_center",
}

func (r Reason) String() string {
	if r >= numReasons {
		return "unknown"
	}
	return reasonNames[r]
}

// Tally counts evaluations per outcome. Zero value is ready to use.
// 후보별 로그 대신 집계만 남긴다
type Tally [numReasons]int64

// Add records one outcome
func (t *Tally) Add(r Reason) {
	t[r]++
}

// Merge adds another tally into t
func (t *Tally) Merge(o *Tally) {
	for i := range t {
		t[i] += o[i]
	}
}

// Passed returns the number of survivors
func (t *Tally) Passed() int64 {
	return t[Pass]
}

// Rejected returns the number of rejected candidates
func (t *Tally) Rejected() int64 {
	var n int64
	for i := Pass + 1; i < numReasons; i++ {
		n += t[i]
	}
	return n
}

// Total returns the number of evaluated candidates
func (t *Tally) Total() int64 {
	return t.Passed() + t.Rejected()
}

// Map returns non-zero rejection counts keyed by reason name (logging, JSON)
func (t *Tally) Map() map[string]int64 {
	m := make(map[string]int64)
	for i := Pass + 1; i < numReasons; i++ {
		if t[i] > 0 {
			m[reasonNames[i]] = t[i]
		}
	}
	return m
}
