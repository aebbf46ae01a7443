package note

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/notetaker/internal/editor"
	"github.com/johnquangdev/notetaker/internal/infrastructure/storage"
)

const (
	// DefaultMaxConcurrentUploads bounds PUTs across all documents
	DefaultMaxConcurrentUploads = 4
	// progressStep is the minimum progress delta worth a commit
	progressStep = 5
)

// ImageStorage is the object storage used for note images
type ImageStorage interface {
	PresignUpload(ctx context.Context, ownerID, mimeType, category string) (*storage.PresignedUpload, error)
	PublicURL(key string) string
}

// ImageFile is an image waiting to be uploaded
type ImageFile struct {
	Alt      string
	Caption  string
	MimeType string
	Data     []byte
}

// UploadResult describes how an upload settled
type UploadResult struct {
	NodeKey   editor.NodeKey `json:"node_key"`
	ObjectKey string         `json:"object_key,omitempty"`
	Src       string         `json:"src,omitempty"`
	Err       error          `json:"-"`
}

// Upload tracks one in-flight image upload
type Upload struct {
	key    editor.NodeKey
	done   chan struct{}
	result UploadResult
}

func (u *Upload) Key() editor.NodeKey { return u.key }

// Done is closed once the image is resolved or failed
func (u *Upload) Done() <-chan struct{} { return u.done }

// Result is valid after Done is closed
func (u *Upload) Result() UploadResult {
	<-u.done
	return u.result
}

// ImageUploader drives image nodes through their upload lifecycle: a
// placeholder is inserted, the bytes are PUT to a presigned URL and the
// node is resolved with the public URL or marked failed.
type ImageUploader struct {
	storage    ImageStorage
	client     *http.Client
	sem        chan struct{}
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
	wg         sync.WaitGroup
}

// NewImageUploader creates an uploader allowing maxConcurrent PUTs at once
func NewImageUploader(store ImageStorage, client *http.Client, maxConcurrent int, logger *zap.Logger) *ImageUploader {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	return &ImageUploader{
		storage: store,
		client:  client,
		sem:     make(chan struct{}, maxConcurrent),
		logger:  logger,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 2 * time.Second
			bo.MaxElapsedTime = 30 * time.Second
			bo.MaxInterval = 10 * time.Second
			return bo
		},
	}
}

// Start inserts an uploading placeholder into ed and uploads img in the
// background. The insertion is an undo step; every later change to the
// node merges into it.
func (u *ImageUploader) Start(ctx context.Context, ed *editor.Editor, ownerID string, img ImageFile) (*Upload, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("image has no data")
	}

	key, err := ed.InsertImagePlaceholder(img.Alt)
	if err != nil {
		return nil, err
	}
	if img.Caption != "" {
		if _, err := ed.Update(func(tx *editor.Tx) error {
			return tx.SetImageCaption(key, img.Caption)
		}, editor.TagHistoryMerge); err != nil {
			return nil, err
		}
	}

	up := &Upload{key: key, done: make(chan struct{})}
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer close(up.done)
		up.result = u.run(ctx, ed, ownerID, key, img)
	}()
	return up, nil
}

// Wait blocks until every started upload has settled
func (u *ImageUploader) Wait() {
	u.wg.Wait()
}

func (u *ImageUploader) run(ctx context.Context, ed *editor.Editor, ownerID string, key editor.NodeKey, img ImageFile) UploadResult {
	res := UploadResult{NodeKey: key}

	select {
	case u.sem <- struct{}{}:
		defer func() { <-u.sem }()
	case <-ctx.Done():
		res.Err = ctx.Err()
		u.fail(ed, key, res.Err)
		return res
	}

	target, err := u.storage.PresignUpload(ctx, ownerID, img.MimeType, storage.CategoryImages)
	if err != nil {
		res.Err = fmt.Errorf("presign image upload: %w", err)
		u.fail(ed, key, res.Err)
		return res
	}
	res.ObjectKey = target.Key

	if u.logger != nil {
		u.logger.Info("📤 Uploading image",
			zap.Uint64("node_key", uint64(key)),
			zap.String("object_key", target.Key),
			zap.Int("bytes", len(img.Data)),
		)
	}

	report := u.progress(ed, key)
	put := func() error {
		return u.put(ctx, target.URL, img, report)
	}
	if err := backoff.Retry(put, backoff.WithContext(u.newBackOff(), ctx)); err != nil {
		res.Err = fmt.Errorf("upload %s: %w", target.Key, err)
		u.fail(ed, key, res.Err)
		return res
	}

	res.Src = u.storage.PublicURL(target.Key)
	if err := ed.ResolveImage(key, res.Src); err != nil {
		// The node may have been deleted while uploading.
		res.Err = err
		if u.logger != nil {
			u.logger.Warn("⚠️ Could not resolve image",
				zap.Uint64("node_key", uint64(key)),
				zap.String("object_key", target.Key),
				zap.Error(err),
			)
		}
		return res
	}

	if u.logger != nil {
		u.logger.Info("✅ Image uploaded",
			zap.Uint64("node_key", uint64(key)),
			zap.String("object_key", target.Key),
		)
	}
	return res
}

func (u *ImageUploader) fail(ed *editor.Editor, key editor.NodeKey, cause error) {
	if u.logger != nil {
		u.logger.Error("❌ Image upload failed",
			zap.Uint64("node_key", uint64(key)),
			zap.Error(cause),
		)
	}
	if err := ed.FailImage(key); err != nil && !errors.Is(err, editor.ErrNodeNotFound) && u.logger != nil {
		u.logger.Warn("⚠️ Could not mark image failed", zap.Uint64("node_key", uint64(key)), zap.Error(err))
	}
}

// progress returns a reporter that commits only meaningful steps
func (u *ImageUploader) progress(ed *editor.Editor, key editor.NodeKey) func(float64) {
	var mu sync.Mutex
	last := -1.0
	return func(p float64) {
		mu.Lock()
		defer mu.Unlock()
		if p < last {
			// a retry started over
			last = -1
		}
		if last >= 0 && p-last < progressStep && p < 100 {
			return
		}
		last = p
		if err := ed.ReportImageProgress(key, p); err != nil && u.logger != nil {
			u.logger.Debug("progress report dropped", zap.Uint64("node_key", uint64(key)), zap.Error(err))
		}
	}
}

func (u *ImageUploader) put(ctx context.Context, url string, img ImageFile, report func(float64)) error {
	body := &progressReader{r: bytes.NewReader(img.Data), total: int64(len(img.Data)), report: report}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.ContentLength = int64(len(img.Data))
	req.Header.Set("Content-Type", img.MimeType)

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("storage returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}
	return nil
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		p.report(100 * float64(p.read) / float64(p.total))
	}
	return n, err
}
