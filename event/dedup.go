package event

// Dedupe collapses events to at most one per dedup hash, keeping the
// first-seen occurrence. The reduction is stable and order-dependent:
// when two regions report the same event with different phrasing, region
// order decides which copy survives. That is an accepted approximation,
// not a bug.
func Dedupe(events []Event) []Event {
	seen := make(map[string]struct{}, len(events))
	unique := make([]Event, 0, len(events))

	for _, ev := range events {
		if _, ok := seen[ev.DedupHash]; ok {
			continue
		}
		seen[ev.DedupHash] = struct{}{}
		unique = append(unique, ev)
	}

	return unique
}
