package generator

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// SplitTranscript separates a stitched transcript into its reasoning
// and final segments.
//
// The final segment is the text after the last "</think>" marker, or
// the whole transcript when no close marker is present. The reasoning
// segment is the text before that close marker with everything through
// the last preceding "<think>" dropped: the innermost think block. A
// transcript with no close marker has an empty reasoning segment, and
// an orphan "</think>" with no opening marker keeps its head text as
// reasoning unchanged.
func SplitTranscript(s string) (reasoning, final string) {
	close := strings.LastIndex(s, thinkClose)
	if close < 0 {
		return "", s
	}

	final = s[close+len(thinkClose):]

	head := s[:close]
	if open := strings.LastIndex(head, thinkOpen); open >= 0 {
		head = head[open+len(thinkOpen):]
	}
	return head, final
}
