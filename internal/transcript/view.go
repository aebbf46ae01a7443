package transcript

import (
	"slices"
	"strings"
	"time"
)

// DefaultGap is the pause after which one speaker's speech starts a new
// group.
const DefaultGap = 2 * time.Second

// Group is a run of adjacent segments from one speaker.
type Group struct {
	Speaker      int       `json:"original_speaker_number"`
	SpeakerLabel string    `json:"speaker_label"`
	Start        float64   `json:"start"`
	End          float64   `json:"end"`
	Segments     []Segment `json:"segments"`
}

// Text joins the segment texts with single spaces.
func (g Group) Text() string {
	parts := make([]string, len(g.Segments))
	for i, s := range g.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// View is what a recording page shows: the ordered segments, the speakers
// found in them and the grouped runs.
type View struct {
	Segments []Segment       `json:"segments"`
	Speakers map[int]Speaker `json:"-"`
	Order    []int           `json:"-"`
	Groups   []Group         `json:"groups"`
}

// SpeakerList returns the speakers in first-occurrence order.
func (v View) SpeakerList() []Speaker {
	out := make([]Speaker, 0, len(v.Order))
	for _, n := range v.Order {
		out = append(out, v.Speakers[n])
	}
	return out
}

// Model derives views with a configurable gap. The zero value uses
// DefaultGap.
type Model struct {
	Gap time.Duration
}

func (m Model) gapSeconds() float64 {
	if m.Gap <= 0 {
		return DefaultGap.Seconds()
	}
	return m.Gap.Seconds()
}

// DeriveView sorts, filters and groups segments. Speakers always come
// from the whole unfiltered input.
func (m Model) DeriveView(segments []Segment, f Filter) View {
	sorted := SortByStart(segments)
	speakers, order := Speakers(segments)

	if !f.IsZero() {
		kept := sorted[:0:0]
		for _, s := range sorted {
			if f.Match(s) {
				kept = append(kept, s)
			}
		}
		sorted = kept
	}
	return View{
		Segments: sorted,
		Speakers: speakers,
		Order:    order,
		Groups:   GroupSegments(sorted, m.gapSeconds()),
	}
}

// DeriveView uses the default model without a filter.
func DeriveView(segments []Segment) View {
	return Model{}.DeriveView(segments, Filter{})
}

// SortByStart returns a copy ordered by StartTime. Equal start times keep
// their input order.
func SortByStart(segments []Segment) []Segment {
	out := slices.Clone(segments)
	slices.SortStableFunc(out, func(a, b Segment) int {
		switch {
		case a.StartTime < b.StartTime:
			return -1
		case a.StartTime > b.StartTime:
			return 1
		}
		return 0
	})
	return out
}

// Speakers deduplicates original speaker numbers by first occurrence in the
// given order.
func Speakers(segments []Segment) (map[int]Speaker, []int) {
	speakers := make(map[int]Speaker)
	var order []int
	for _, s := range segments {
		if _, ok := speakers[s.OriginalSpeakerNumber]; ok {
			continue
		}
		speakers[s.OriginalSpeakerNumber] = Speaker{
			OriginalSpeakerNumber: s.OriginalSpeakerNumber,
			PersonID:              clonePerson(s.PersonID),
			SpeakerLabel:          s.SpeakerLabel,
		}
		order = append(order, s.OriginalSpeakerNumber)
	}
	return speakers, order
}

// GroupSegments splits sorted segments whenever the speaker changes or the
// silence before a segment is longer than gap seconds.
func GroupSegments(sorted []Segment, gap float64) []Group {
	var groups []Group
	for i, s := range sorted {
		if i > 0 {
			prev := sorted[i-1]
			if s.OriginalSpeakerNumber == prev.OriginalSpeakerNumber && s.StartTime-prev.EndTime <= gap {
				g := &groups[len(groups)-1]
				g.Segments = append(g.Segments, s)
				g.End = s.EndTime
				continue
			}
		}
		groups = append(groups, Group{
			Speaker:      s.OriginalSpeakerNumber,
			SpeakerLabel: s.SpeakerLabel,
			Start:        s.StartTime,
			End:          s.EndTime,
			Segments:     []Segment{s},
		})
	}
	return groups
}

// CopyText renders groups as "Label: text" paragraphs.
func CopyText(groups []Group) string {
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = g.SpeakerLabel + ": " + g.Text()
	}
	return strings.Join(parts, "\n\n")
}
