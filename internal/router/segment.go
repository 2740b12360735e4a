package router

import "strings"

// Split breaks msg on each separator in turn. Every stage re-splits all
// pieces produced by the previous one, so reading order is preserved.
// Pieces that are empty after trimming are dropped.
func Split(msg string, separators []string) []string {
	parts := []string{msg}
	for _, sep := range separators {
		next := make([]string, 0, len(parts))
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// segmented answers every segment of a compound message independently.
type segmented struct {
	d *Dispatcher
}

func (s segmented) route(r *request, msg string) Envelope {
	segments := Split(msg, s.d.vocab.SplitKeys)
	if len(segments) == 0 {
		return Envelope{Chat: ChatDefault, OrderedResponses: []Entry{s.d.unknownEntry(msg)}}
	}

	entries := make([]Entry, 0, len(segments))
	for _, seg := range segments {
		entries = append(entries, s.d.detect(r, seg, s.d.cascade))
	}
	return Envelope{Chat: ChatDefault, OrderedResponses: entries}
}
