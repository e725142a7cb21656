package voting

import (
	"fmt"
	"math/bits"

	"github.com/blockberries/tokenberry/types"
)

// Tally is the outcome of a closed vote
type Tally struct {
	Accept uint64
	Reject uint64
	// Supply is the total supply at the snapshot epoch
	Supply uint64
}

// Participation returns accept + reject
func (t Tally) Participation() uint64 {
	sum, err := types.AddUint64(t.Accept, t.Reject)
	if err != nil {
		return ^uint64(0)
	}
	return sum
}

// Policy decides whether a closed vote accepted its proposal
type Policy interface {
	Accepted(t Tally) bool
	String() string
}

// Majority accepts when accept votes exceed reject votes
type Majority struct{}

// Accepted implements Policy
func (Majority) Accepted(t Tally) bool {
	return t.Accept > t.Reject
}

func (Majority) String() string { return "majority" }

// Quorum accepts when participation reaches Percent of the supply at the
// snapshot epoch and accept votes exceed reject votes
type Quorum struct {
	Percent uint64
}

// Accepted implements Policy
func (q Quorum) Accepted(t Tally) bool {
	if t.Accept <= t.Reject {
		return false
	}
	// participation * 100 >= supply * percent, in 128 bits
	ph, pl := bits.Mul64(t.Participation(), 100)
	sh, sl := bits.Mul64(t.Supply, q.Percent)
	return ph > sh || (ph == sh && pl >= sl)
}

func (q Quorum) String() string { return fmt.Sprintf("quorum(%d%%)", q.Percent) }
