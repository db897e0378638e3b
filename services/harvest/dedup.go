package harvest

// ledger is the run-scoped dedup set. One ledger lives for exactly one
// ingestion cycle and is discarded with it, so a later cycle may
// legitimately re-admit (and re-upsert) the same item.
type ledger struct {
	seen map[string]bool
}

func newLedger() *ledger {
	return &ledger{seen: map[string]bool{}}
}

// admit returns true exactly once per key per run.
func (l *ledger) admit(key string) bool {
	if key == "" || l.seen[key] {
		return false
	}
	l.seen[key] = true
	return true
}

// dedupKey prefers the stable id, falls back to the permalink, then to
// a title+author composite for records carrying neither.
func dedupKey(id, permalink, title, author string) string {
	if id != "" {
		return id
	}
	if permalink != "" {
		return permalink
	}
	if title == "" && author == "" {
		return ""
	}
	return title + "\x00" + author
}

func postKey(id string, permalink *string, title string, author *string) string {
	link := ""
	if permalink != nil {
		link = *permalink
	}
	by := ""
	if author != nil {
		by = *author
	}
	return dedupKey(id, link, title, by)
}
