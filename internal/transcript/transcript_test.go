package transcript

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	orig := sampleTranscript()
	cp := orig.Clone()

	cp.Turns[0].SpeakerID = "changed"
	cp.Turns[0].Segments[0].Text = "changed"

	assert.Equal(t, "说话人1", orig.Turns[0].SpeakerID)
	assert.Equal(t, "大家好", orig.Turns[0].Segments[0].Text)
}

func TestSpeakers(t *testing.T) {
	assert.Equal(t, []string{"说话人1", "说话人2"}, sampleTranscript().Speakers())
	assert.Nil(t, Transcript{}.Speakers())
}

func TestHasSpeaker(t *testing.T) {
	tr := sampleTranscript()
	assert.True(t, tr.HasSpeaker("说话人2"))
	assert.False(t, tr.HasSpeaker("说话人3"))
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleTranscript().Validate())

	tests := []struct {
		name   string
		mutate func(*Transcript)
		want   error
	}{
		{"no turns", func(tr *Transcript) { tr.Turns = nil }, ErrNoTurns},
		{"empty speaker", func(tr *Transcript) { tr.Turns[1].SpeakerID = "  " }, ErrEmptySpeakerID},
		{"empty turn", func(tr *Transcript) { tr.Turns[1].Segments = nil }, ErrEmptyTurn},
		{"unordered", func(tr *Transcript) {
			tr.Turns[2].StartTime = 10
			tr.Turns[2].Segments[0].Start = 10
		}, ErrUnorderedTurns},
		{"start mismatch", func(tr *Transcript) { tr.Turns[1].StartTime = 64 }, ErrStartMismatch},
		{"inverted segment", func(tr *Transcript) { tr.Turns[0].Segments[1].End = 0.5 }, ErrInvertedRange},
		{"negative start", func(tr *Transcript) {
			tr.Turns[0].StartTime = -1
			tr.Turns[0].Segments[0].Start = -1
		}, ErrNegativeTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := sampleTranscript()
			tt.mutate(&tr)
			err := tr.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestSegmentCount(t *testing.T) {
	assert.Equal(t, 4, sampleTranscript().SegmentCount())
	assert.Equal(t, 0, Transcript{}.SegmentCount())
}
