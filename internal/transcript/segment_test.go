package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenameSpeaker(t *testing.T) {
	t.Run("updates every segment of the cluster", func(t *testing.T) {
		segs := sample()
		person := "person-42"

		n, err := RenameSpeaker(segs, 1, &person, "Alice")
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		for _, s := range segs {
			if s.OriginalSpeakerNumber == 1 {
				require.NotNil(t, s.PersonID)
				assert.Equal(t, "person-42", *s.PersonID)
				assert.Equal(t, "Alice", s.SpeakerLabel)
				continue
			}
			assert.Nil(t, s.PersonID)
			assert.Equal(t, "Speaker 2", s.SpeakerLabel)
		}

		person = "changed later"
		assert.Equal(t, "person-42", *segs[0].PersonID)
	})

	t.Run("rename shows in every group", func(t *testing.T) {
		segs := sample()
		_, err := RenameSpeaker(segs, 1, nil, "Alice")
		require.NoError(t, err)

		v := DeriveView(segs)
		assert.Equal(t, "Alice", v.Groups[0].SpeakerLabel)
		assert.Equal(t, "Alice", v.Groups[2].SpeakerLabel)
		assert.Equal(t, "Alice", v.Speakers[1].SpeakerLabel)
	})

	t.Run("unknown speaker", func(t *testing.T) {
		segs := sample()
		_, err := RenameSpeaker(segs, 7, nil, "Nobody")
		assert.ErrorIs(t, err, ErrUnknownSpeaker)
		assert.Equal(t, sample(), segs)
	})
}

func TestAssignSegment(t *testing.T) {
	segs := sample()
	person := "p-2"

	require.NoError(t, AssignSegment(segs, "s1", &person, "Carol"))
	assert.Equal(t, "Carol", segs[1].SpeakerLabel)
	assert.Equal(t, "Speaker 1", segs[0].SpeakerLabel)

	require.NoError(t, AssignSegment(segs, "s1", nil, ""))
	assert.Nil(t, segs[1].PersonID)
	assert.Equal(t, "Carol", segs[1].SpeakerLabel)

	assert.ErrorIs(t, AssignSegment(segs, "missing", nil, "x"), ErrSegmentNotFound)
}

func TestFlatten(t *testing.T) {
	r := &Result{Paragraphs: []Paragraph{
		{Speaker: 0, Sentences: []Sentence{{Text: "Hello.", Start: 0, End: 1.2}, {Text: "Welcome.", Start: 1.3, End: 2}}},
		{Speaker: 1, Sentences: []Sentence{{Text: "Thanks.", Start: 2.5, End: 2.4}}},
	}}

	segs, err := Flatten("rec-9", r)
	require.NoError(t, err)
	require.Len(t, segs, 3)

	assert.Equal(t, "rec-9", segs[0].RecordingID)
	assert.Equal(t, "Speaker 0", segs[0].SpeakerLabel)
	assert.Equal(t, 1, segs[2].OriginalSpeakerNumber)
	assert.Equal(t, "Speaker 1", segs[2].SpeakerLabel)
	assert.Equal(t, 2.5, segs[2].EndTime, "end is clamped to start")

	for _, bad := range []*Result{nil, {}, {Paragraphs: []Paragraph{{Speaker: 1}}}} {
		_, err := Flatten("rec-9", bad)
		assert.ErrorIs(t, err, ErrEmptyResult)
	}
}

func TestFilterMatch(t *testing.T) {
	one := 1
	s := seg("a", 1, 0, 1, "Quarterly Numbers")

	assert.True(t, Filter{}.Match(s))
	assert.True(t, Filter{Query: "numbers"}.Match(s))
	assert.False(t, Filter{Query: "revenue"}.Match(s))
	assert.True(t, Filter{Query: "QUART", Speaker: &one}.Match(s))
	two := 2
	assert.False(t, Filter{Speaker: &two}.Match(s))
}
