// Package schedule builds queryable lookup structures over a flat list of
// assignment records.
package schedule

import (
	"sync"

	"github.com/groupmix/groupmix/core/model"
)

// Index provides per-session per-group membership and per-person group
// lookups for one candidate schedule. It performs no validation: capacity
// and the one-group-per-session invariant are upheld upstream.
type Index struct {
	numSessions int
	// members[session][groupID] lists person ids in record order.
	members []map[string][]string
	// groupOrder[session] lists group ids in first-seen record order so
	// scans over groups stay deterministic.
	groupOrder [][]string

	personOnce sync.Once
	byPerson   map[string]map[int]string
}

// New indexes the given assignment records. Records referencing sessions
// outside [0, numSessions) are ignored.
func New(assignments []model.Assignment, numSessions int) *Index {
	if numSessions < 0 {
		numSessions = 0
	}
	ix := &Index{
		numSessions: numSessions,
		members:     make([]map[string][]string, numSessions),
		groupOrder:  make([][]string, numSessions),
	}
	for s := range ix.members {
		ix.members[s] = make(map[string][]string)
	}
	for _, a := range assignments {
		if a.Session < 0 || a.Session >= numSessions {
			continue
		}
		if _, seen := ix.members[a.Session][a.GroupID]; !seen {
			ix.groupOrder[a.Session] = append(ix.groupOrder[a.Session], a.GroupID)
		}
		ix.members[a.Session][a.GroupID] = append(ix.members[a.Session][a.GroupID], a.PersonID)
	}
	return ix
}

// NumSessions returns the session count the index was built for.
func (ix *Index) NumSessions() int { return ix.numSessions }

// Groups returns the group ids present in the session, in first-seen order.
func (ix *Index) Groups(session int) []string {
	if session < 0 || session >= ix.numSessions {
		return nil
	}
	return ix.groupOrder[session]
}

// Members returns the person ids assigned to the group in the session, in
// record order. Unknown groups yield nil.
func (ix *Index) Members(session int, groupID string) []string {
	if session < 0 || session >= ix.numSessions {
		return nil
	}
	return ix.members[session][groupID]
}

// GroupOf looks up the group a person is assigned to in a session. The
// per-person map is built lazily on first use. If a person appears in more
// than one group (an upstream invariant breach) the last record wins.
func (ix *Index) GroupOf(personID string, session int) (string, bool) {
	ix.personOnce.Do(ix.buildPersonIndex)
	g, ok := ix.byPerson[personID][session]
	return g, ok
}

func (ix *Index) buildPersonIndex() {
	ix.byPerson = make(map[string]map[int]string)
	for s := 0; s < ix.numSessions; s++ {
		for _, g := range ix.groupOrder[s] {
			for _, p := range ix.members[s][g] {
				if ix.byPerson[p] == nil {
					ix.byPerson[p] = make(map[int]string)
				}
				ix.byPerson[p][s] = g
			}
		}
	}
}
