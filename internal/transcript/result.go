package transcript

// Result is the nested shape a transcription service returns: paragraphs
// of one speaker cluster, each split into timed sentences.
type Result struct {
	Transcript string      `json:"transcript"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

type Paragraph struct {
	Speaker   int        `json:"speaker"`
	Start     float64    `json:"start"`
	End       float64    `json:"end"`
	Sentences []Sentence `json:"sentences"`
}

type Sentence struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Flatten turns a result into one segment per sentence labelled with the
// default speaker label. Sentences that end before they start are clamped.
func Flatten(recordingID string, r *Result) ([]Segment, error) {
	if r == nil || len(r.Paragraphs) == 0 {
		return nil, ErrEmptyResult
	}
	var out []Segment
	for _, p := range r.Paragraphs {
		for _, s := range p.Sentences {
			end := s.End
			if end < s.Start {
				end = s.Start
			}
			out = append(out, Segment{
				RecordingID:           recordingID,
				OriginalSpeakerNumber: p.Speaker,
				SpeakerLabel:          DefaultLabel(p.Speaker),
				StartTime:             s.Start,
				EndTime:               end,
				Text:                  s.Text,
			})
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}
