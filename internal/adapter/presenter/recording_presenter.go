package presenter

import (
	"github.com/johnquangdev/notetaker/internal/adapter/dto/recording"
	"github.com/johnquangdev/notetaker/internal/domain/entities"
	"github.com/johnquangdev/notetaker/internal/transcript"
	recordingUsecase "github.com/johnquangdev/notetaker/internal/usecase/recording"
)

// ToRecordingResponse converts a Recording entity to RecordingResponse DTO
func ToRecordingResponse(r *entities.Recording) *recording.RecordingResponse {
	if r == nil {
		return nil
	}
	return &recording.RecordingResponse{
		ID:                  r.ID.String(),
		OwnerID:             r.OwnerID,
		Title:               r.Title,
		ObjectKey:           r.ObjectKey,
		OriginalFilename:    r.OriginalFilename,
		FileType:            r.FileType,
		FileSize:            r.FileSize,
		Duration:            r.Duration,
		TranscriptionStatus: string(r.TranscriptionStatus),
		TranscriptionError:  r.TranscriptionError,
		ExternalJobID:       r.ExternalJobID,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func ToRecordingListResponse(recs []*entities.Recording) []*recording.RecordingResponse {
	out := make([]*recording.RecordingResponse, len(recs))
	for i, r := range recs {
		out[i] = ToRecordingResponse(r)
	}
	return out
}

func toSegment(s transcript.Segment) recording.SegmentResponse {
	return recording.SegmentResponse{
		ID:                    s.ID,
		OriginalSpeakerNumber: s.OriginalSpeakerNumber,
		PersonID:              s.PersonID,
		SpeakerLabel:          s.SpeakerLabel,
		StartTime:             s.StartTime,
		EndTime:               s.EndTime,
		Text:                  s.Text,
	}
}

// ToTranscriptResponse converts a derived view. Speakers keep their
// first-occurrence order.
func ToTranscriptResponse(v *recordingUsecase.TranscriptView) *recording.TranscriptResponse {
	if v == nil {
		return nil
	}

	speakers := make([]recording.SpeakerResponse, 0, len(v.Order))
	for _, sp := range v.SpeakerList() {
		speakers = append(speakers, recording.SpeakerResponse{
			Number:   sp.OriginalSpeakerNumber,
			PersonID: sp.PersonID,
			Label:    sp.SpeakerLabel,
		})
	}

	groups := make([]recording.GroupResponse, len(v.Groups))
	for i, g := range v.Groups {
		segs := make([]recording.SegmentResponse, len(g.Segments))
		for j, s := range g.Segments {
			segs[j] = toSegment(s)
		}
		groups[i] = recording.GroupResponse{
			Speaker:      g.Speaker,
			SpeakerLabel: g.SpeakerLabel,
			Start:        g.Start,
			End:          g.End,
			StartLabel:   transcript.FormatTime(g.Start),
			EndLabel:     transcript.FormatTime(g.End),
			Text:         g.Text(),
			Segments:     segs,
		}
	}

	return &recording.TranscriptResponse{
		Recording: ToRecordingResponse(v.Recording),
		Speakers:  speakers,
		Groups:    groups,
	}
}

func ToPersonResponse(p *entities.Person) *recording.PersonResponse {
	if p == nil {
		return nil
	}
	return &recording.PersonResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
	}
}

func ToPersonListResponse(people []*entities.Person) []*recording.PersonResponse {
	out := make([]*recording.PersonResponse, len(people))
	for i, p := range people {
		out[i] = ToPersonResponse(p)
	}
	return out
}
