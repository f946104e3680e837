package refresh

import "github.com/five82/transitboard/internal/entur"

// Notice is a disruption together with the indexes of the trips it
// affects.
type Notice struct {
	Situation entur.Situation
	Trips     []int
}

// CollectNotices returns the distinct situations of trips in first-seen
// order. Situations are matched by ID, or by their texts when the ID is
// missing.
func CollectNotices(trips []entur.Trip) []Notice {
	var notices []Notice
	index := make(map[string]int)
	for i, trip := range trips {
		for _, s := range trip.Situations {
			key := noticeKey(s)
			pos, ok := index[key]
			if !ok {
				index[key] = len(notices)
				notices = append(notices, Notice{Situation: s, Trips: []int{i}})
				continue
			}
			n := &notices[pos]
			if last := n.Trips[len(n.Trips)-1]; last != i {
				n.Trips = append(n.Trips, i)
			}
		}
	}
	return notices
}

func noticeKey(s entur.Situation) string {
	if s.ID != "" {
		return "id:" + s.ID
	}
	return "text:" + s.Summary + "\x00" + s.Description
}
