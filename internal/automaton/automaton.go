package automaton

import (
	"errors"
	"fmt"
)

// ErrEmptyPattern is returned by Build for a zero-length pattern.
var ErrEmptyPattern = errors.New("automaton: empty pattern")

// Hit is one occurrence of a pattern inside a scanned buffer.
type Hit struct {
	Pattern int // index into the patterns given to Build
	Start   int // offset of the first matched byte in the buffer
}

// Automaton is a compiled pattern set.
type Automaton struct {
	class  [256]uint16
	stride int
	delta  []int32 // states*stride transitions

	out  [][]int32 // pattern ids ending exactly at a state
	emit []int32   // first state with outputs on the suffix chain, or -1
	dict []int32   // next state with outputs below this one, or -1

	lens   []int
	maxLen int
}

// Build compiles patterns. Pattern ids are slice indices. Duplicate patterns
// are allowed and each reports its own hits.
func Build(patterns [][]byte) (*Automaton, error) {
	a := &Automaton{lens: make([]int, len(patterns))}

	next := uint16(1)
	for i, p := range patterns {
		if len(p) == 0 {
			return nil, fmt.Errorf("%w: pattern %d", ErrEmptyPattern, i)
		}
		a.lens[i] = len(p)
		a.maxLen = max(a.maxLen, len(p))
		for _, b := range p {
			if a.class[b] == 0 {
				a.class[b] = next
				next++
			}
		}
	}
	a.stride = int(next)

	a.addState()
	for id, p := range patterns {
		s := int32(0)
		for _, b := range p {
			idx := int(s)*a.stride + int(a.class[b])
			if a.delta[idx] < 0 {
				a.delta[idx] = a.addState()
			}
			s = a.delta[idx]
		}
		a.out[s] = append(a.out[s], int32(id))
	}

	a.link()
	return a, nil
}

func (a *Automaton) addState() int32 {
	id := int32(len(a.out))
	for range a.stride {
		a.delta = append(a.delta, -1)
	}
	a.out = append(a.out, nil)
	return id
}

// link fills failure transitions breadth-first, turning the trie into a DFA,
// and derives the output chains.
func (a *Automaton) link() {
	n := len(a.out)
	fail := make([]int32, n)
	a.emit = make([]int32, n)
	a.dict = make([]int32, n)
	a.emit[0], a.dict[0] = -1, -1

	queue := make([]int32, 0, n)
	for c := range a.stride {
		t := a.delta[c]
		if t < 0 {
			a.delta[c] = 0
			continue
		}
		fail[t] = 0
		queue = append(queue, t)
	}

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		f := fail[s]
		if len(a.out[f]) > 0 {
			a.dict[s] = f
		} else {
			a.dict[s] = a.dict[f]
		}
		if len(a.out[s]) > 0 {
			a.emit[s] = s
		} else {
			a.emit[s] = a.dict[s]
		}

		row := int(s) * a.stride
		frow := int(f) * a.stride
		for c := range a.stride {
			t := a.delta[row+c]
			if t < 0 {
				a.delta[row+c] = a.delta[frow+c]
				continue
			}
			fail[t] = a.delta[frow+c]
			queue = append(queue, t)
		}
	}
}

// Patterns returns the number of compiled patterns.
func (a *Automaton) Patterns() int { return len(a.lens) }

// States returns the number of DFA states.
func (a *Automaton) States() int { return len(a.out) }

// MaxLen returns the longest pattern length.
func (a *Automaton) MaxLen() int { return a.maxLen }

// PatternLen returns the length of pattern id.
func (a *Automaton) PatternLen(id int) int { return a.lens[id] }

// Scan reports every occurrence of every pattern in buf, ordered by Start and
// then by pattern id. Returning false from fn stops the scan.
func (a *Automaton) Scan(buf []byte, fn func(Hit) bool) {
	if len(a.lens) == 0 {
		return
	}

	var q hitQueue
	s := int32(0)
	for i, b := range buf {
		s = a.delta[int(s)*a.stride+int(a.class[b])]

		for o := a.emit[s]; o >= 0; o = a.dict[o] {
			for _, id := range a.out[o] {
				q.push(Hit{Pattern: int(id), Start: i + 1 - a.lens[id]})
			}
		}

		// Any hit found later ends after i, so it starts after i+1-maxLen.
		limit := i + 1 - a.maxLen
		for len(q) > 0 && q[0].Start <= limit {
			if !fn(q.pop()) {
				return
			}
		}
	}
	for len(q) > 0 {
		if !fn(q.pop()) {
			return
		}
	}
}
