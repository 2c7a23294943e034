package report

import (
	"sort"

	"jubo/internal/commontypes"
)

// Reconcile partitions the fetched message set against the reporting window
// and the previous run's seen-set.
//
// A message inside the window always lands in the report, new or not.
// A message outside the window is surfaced only when it is a thread reply
// never seen before: a late reply on an old parent that would otherwise be
// lost once the parent's own period has passed. Everything else is dropped.
// Self-bot messages (our own posted reports) never count.
//
// Both returned slices are sorted ascending by timestamp.
func Reconcile(fetched map[string]commontypes.Message, w Window, prevSeen map[string]struct{}) (inWindow, late []commontypes.Message) {
	for ts, msg := range fetched {
		if msg.IsSelfBot {
			continue
		}
		t, err := ParseTs(ts)
		if err != nil {
			continue
		}
		_, seen := prevSeen[ts]
		switch {
		case w.Contains(t):
			inWindow = append(inWindow, msg)
		case !seen && msg.IsThreadReply:
			late = append(late, msg)
		}
	}
	sortByTs(inWindow)
	sortByTs(late)
	return inWindow, late
}

func sortByTs(msgs []commontypes.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		ti, erri := ParseTs(msgs[i].Ts)
		tj, errj := ParseTs(msgs[j].Ts)
		if erri != nil || errj != nil {
			return msgs[i].Ts < msgs[j].Ts
		}
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return msgs[i].Ts < msgs[j].Ts
	})
}
