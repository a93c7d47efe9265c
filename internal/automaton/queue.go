package automaton

// hitQueue is a binary min-heap ordered by (Start, Pattern).
type hitQueue []Hit

func (h Hit) before(o Hit) bool {
	if h.Start != o.Start {
		return h.Start < o.Start
	}
	return h.Pattern < o.Pattern
}

func (q *hitQueue) push(h Hit) {
	*q = append(*q, h)
	s := *q
	i := len(s) - 1
	for i > 0 {
		p := (i - 1) / 2
		if !s[i].before(s[p]) {
			break
		}
		s[i], s[p] = s[p], s[i]
		i = p
	}
}

func (q *hitQueue) pop() Hit {
	s := *q
	top := s[0]
	last := len(s) - 1
	s[0] = s[last]
	s = s[:last]

	i := 0
	for {
		l := 2*i + 1
		if l >= len(s) {
			break
		}
		m := l
		if r := l + 1; r < len(s) && s[r].before(s[l]) {
			m = r
		}
		if !s[m].before(s[i]) {
			break
		}
		s[i], s[m] = s[m], s[i]
		i = m
	}
	*q = s
	return top
}
