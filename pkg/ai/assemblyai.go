package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"go.uber.org/zap"

	"github.com/johnquangdev/notetaker/internal/transcript"
	"github.com/johnquangdev/notetaker/pkg/config"
)

// JobStatus is the provider-neutral state of a transcription job
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is a snapshot of a remote transcription job. Result is set only when
// Status is JobCompleted.
type Job struct {
	ID     string
	Status JobStatus
	Result *transcript.Result
	Error  string
}

// AssemblyAIClient submits media URLs to AssemblyAI and maps finished
// transcripts to transcript.Result.
type AssemblyAIClient struct {
	client        *aai.Client
	webhookURL    string
	webhookSecret string
	language      string
	logger        *zap.Logger
}

// NewAssemblyAIClient creates an AssemblyAI client using the provided config
func NewAssemblyAIClient(cfg *config.AssemblyAIConfig, logger *zap.Logger) *AssemblyAIClient {
	opts := []aai.ClientOption{aai.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, aai.WithBaseURL(cfg.BaseURL))
	}

	return &AssemblyAIClient{
		client:        aai.NewClientWithOptions(opts...),
		webhookURL:    cfg.WebhookURL,
		webhookSecret: cfg.WebhookSecret,
		language:      cfg.Language,
		logger:        logger,
	}
}

// UsesWebhook reports whether completion is pushed to us instead of polled
func (c *AssemblyAIClient) UsesWebhook() bool {
	return c.webhookURL != ""
}

func (c *AssemblyAIClient) params() *aai.TranscriptOptionalParams {
	params := &aai.TranscriptOptionalParams{
		SpeakerLabels: aai.Bool(true),
	}
	if c.language != "" {
		params.LanguageCode = aai.TranscriptLanguageCode(c.language)
	} else {
		params.LanguageDetection = aai.Bool(true)
	}
	if c.webhookURL != "" {
		webhookURL := c.webhookURL
		params.WebhookURL = &webhookURL
		if c.webhookSecret != "" {
			name, value := WebhookHeader, c.webhookSecret
			params.WebhookAuthHeaderName = &name
			params.WebhookAuthHeaderValue = &value
		}
	}
	return params
}

// Submit queues audioURL for transcription and returns the job id
func (c *AssemblyAIClient) Submit(ctx context.Context, audioURL string) (string, error) {
	tr, err := c.client.Transcripts.SubmitFromURL(ctx, audioURL, c.params())
	if err != nil {
		return "", fmt.Errorf("assemblyai submit: %w", err)
	}
	if tr.ID == nil || *tr.ID == "" {
		return "", fmt.Errorf("assemblyai submit: response has no transcript id")
	}

	if c.logger != nil {
		c.logger.Info("🎙️ Transcription submitted",
			zap.String("transcript_id", *tr.ID),
			zap.String("status", string(tr.Status)),
		)
	}
	return *tr.ID, nil
}

// Fetch returns the current state of a job
func (c *AssemblyAIClient) Fetch(ctx context.Context, jobID string) (*Job, error) {
	tr, err := c.client.Transcripts.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("assemblyai get %s: %w", jobID, err)
	}
	return jobFromTranscript(jobID, tr), nil
}

func jobFromTranscript(jobID string, tr aai.Transcript) *Job {
	job := &Job{ID: jobID}
	switch tr.Status {
	case aai.TranscriptStatusCompleted:
		job.Status = JobCompleted
		job.Result = ToResult(tr)
	case aai.TranscriptStatusError:
		job.Status = JobFailed
		job.Error = "transcription failed"
		if tr.Error != nil && *tr.Error != "" {
			job.Error = *tr.Error
		}
	case aai.TranscriptStatusProcessing:
		job.Status = JobProcessing
	default:
		job.Status = JobQueued
	}
	return job
}

// ToResult maps a finished transcript to the nested paragraph/sentence shape.
// Each utterance becomes a paragraph; sentences are split at terminal
// punctuation using word timings. Times are converted from ms to seconds.
func ToResult(tr aai.Transcript) *transcript.Result {
	res := &transcript.Result{Transcript: deref(tr.Text)}
	speakers := map[string]int{}

	for _, utt := range tr.Utterances {
		text := strings.TrimSpace(deref(utt.Text))
		if text == "" && len(utt.Words) == 0 {
			continue
		}
		p := transcript.Paragraph{
			Speaker: speakerNumber(deref(utt.Speaker), speakers),
			Start:   seconds(utt.Start),
			End:     seconds(utt.End),
		}
		p.Sentences = sentences(utt.Words)
		if len(p.Sentences) == 0 {
			p.Sentences = []transcript.Sentence{{Text: text, Start: p.Start, End: p.End}}
		}
		res.Paragraphs = append(res.Paragraphs, p)
	}
	return res
}

func sentences(words []aai.TranscriptWord) []transcript.Sentence {
	var (
		out     []transcript.Sentence
		current []string
		start   float64
		end     float64
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, transcript.Sentence{
			Text:  strings.Join(current, " "),
			Start: start,
			End:   end,
		})
		current = current[:0]
	}
	for _, w := range words {
		text := strings.TrimSpace(deref(w.Text))
		if text == "" {
			continue
		}
		if len(current) == 0 {
			start = seconds(w.Start)
		}
		current = append(current, text)
		end = seconds(w.End)
		if endsSentence(text) {
			flush()
		}
	}
	flush()
	return out
}

func endsSentence(word string) bool {
	switch word[len(word)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}

// speakerNumber maps provider labels ("A", "B", ... or digits) to 1-based
// cluster numbers. Anything else is numbered in order of first appearance
// after the letters.
func speakerNumber(label string, seen map[string]int) int {
	label = strings.TrimSpace(label)
	if len(label) == 1 && label[0] >= 'A' && label[0] <= 'Z' {
		return int(label[0]-'A') + 1
	}
	if n, err := strconv.Atoi(label); err == nil && n >= 0 {
		return n
	}
	if n, ok := seen[label]; ok {
		return n
	}
	n := 27 + len(seen)
	seen[label] = n
	return n
}

func seconds(ms *int64) float64 {
	if ms == nil {
		return 0
	}
	return float64(*ms) / 1000.0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
