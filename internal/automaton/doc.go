// Package automaton implements the multi-pattern matcher used by the scanner.
//
// Architecture:
//   - Aho-Corasick trie compiled into a dense DFA, so each input byte costs
//     one table lookup regardless of how many patterns are loaded
//   - Byte classes: bytes that occur in no pattern share class 0, which keeps
//     the transition table at states x (distinct pattern bytes + 1)
//   - Dictionary suffix links chain the states that carry outputs, so a
//     position with no match costs nothing extra
//   - A bounded reorder queue turns end-ordered discoveries into hits sorted
//     by start offset; a hit is released once no later position can produce
//     an earlier start
//
// An Automaton is immutable after Build and safe for concurrent scans.
package automaton
