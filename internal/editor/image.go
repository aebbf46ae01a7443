package editor

import (
	"fmt"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type UploadStatus string

const (
	UploadIdle      UploadStatus = "idle"
	UploadUploading UploadStatus = "uploading"
)

// UploadState tracks an image while its bytes are in flight. A failed
// upload removes the node, so failure is never stored.
type UploadState struct {
	Status UploadStatus
	// Progress is a percentage in [0, 100].
	Progress float64
}

// ImageNode is an inline image with an optional caption.
type ImageNode struct {
	Header
	src     string
	alt     string
	caption string
	width   int
	upload  UploadState
}

// NewImage returns a settled image.
func NewImage(src, alt, caption string) *ImageNode {
	return &ImageNode{src: src, alt: alt, caption: caption, upload: UploadState{Status: UploadIdle}}
}

// NewImagePlaceholder returns an image waiting for its upload.
func NewImagePlaceholder(alt string) *ImageNode {
	return &ImageNode{alt: alt, upload: UploadState{Status: UploadUploading}}
}

func (n *ImageNode) Src() string         { return n.src }
func (n *ImageNode) AltText() string     { return n.alt }
func (n *ImageNode) Caption() string     { return n.caption }
func (n *ImageNode) Width() int          { return n.width }
func (n *ImageNode) Upload() UploadState { return n.upload }
func (n *ImageNode) Uploading() bool     { return n.upload.Status == UploadUploading }
func (n *ImageNode) Kind() Kind          { return KindImage }

func (n *ImageNode) Clone() Node {
	c := *n
	return &c
}

func (n *ImageNode) ExportJSON() SerializedNode {
	s := SerializedNode{
		Type:        KindImage,
		Version:     1,
		Src:         n.src,
		AltText:     n.alt,
		Caption:     n.caption,
		Width:       n.width,
		UploadState: n.upload.Status,
	}
	if n.Uploading() {
		p := n.upload.Progress
		s.Progress = &p
	}
	return s
}

func (n *ImageNode) RenderHTML([]*html.Node) []*html.Node {
	attrs := []html.Attribute{{Key: "alt", Val: n.alt}}
	if n.src != "" {
		attrs = append([]html.Attribute{{Key: "src", Val: n.src}}, attrs...)
	}
	if n.width > 0 {
		attrs = append(attrs, html.Attribute{Key: "width", Val: strconv.Itoa(n.width)})
	}
	if n.Uploading() {
		attrs = append(attrs, html.Attribute{
			Key: "data-upload-progress",
			Val: strconv.FormatFloat(n.upload.Progress, 'f', 0, 64),
		})
	}
	img := newElement(atom.Img, attrs, nil)
	if n.caption == "" {
		return []*html.Node{img}
	}
	caption := newElement(atom.Span, []html.Attribute{{Key: "class", Val: "image-caption"}},
		[]*html.Node{{Type: html.TextNode, Data: n.caption}})
	return []*html.Node{newElement(atom.Span, []html.Attribute{{Key: "class", Val: "image"}},
		[]*html.Node{img, caption})}
}

func importImage(s SerializedNode) (Node, error) {
	n := NewImage(s.Src, s.AltText, s.Caption)
	n.width = s.Width
	switch s.UploadState {
	case "", UploadIdle:
	case UploadUploading:
		n.upload.Status = UploadUploading
		if s.Progress != nil {
			n.upload.Progress = clampProgress(*s.Progress)
		}
	default:
		return nil, fmt.Errorf("image upload state %q", s.UploadState)
	}
	return n, nil
}

func clampProgress(p float64) float64 { return min(max(p, 0), 100) }

// Images returns every image in document order.
func (v *View) Images() []*ImageNode {
	var out []*ImageNode
	v.Walk(func(n Node, _ int) bool {
		if img, ok := n.(*ImageNode); ok {
			out = append(out, img)
		}
		return true
	})
	return out
}

func (tx *Tx) writableImage(key NodeKey) (*ImageNode, error) {
	n, ok := tx.nodes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	if _, ok := n.(*ImageNode); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, n.Kind())
	}
	w, err := tx.writable(key)
	if err != nil {
		return nil, err
	}
	return w.(*ImageNode), nil
}

func (tx *Tx) uploadingImage(key NodeKey) (*ImageNode, error) {
	img, err := tx.writableImage(key)
	if err != nil {
		return nil, err
	}
	if !img.Uploading() {
		return nil, fmt.Errorf("%w: %d", ErrUploadSettled, key)
	}
	return img, nil
}

// ReportImageProgress records upload progress as a percentage, clamped to
// [0, 100].
func (tx *Tx) ReportImageProgress(key NodeKey, progress float64) error {
	img, err := tx.uploadingImage(key)
	if err != nil {
		return err
	}
	img.upload.Progress = clampProgress(progress)
	return nil
}

// ResolveImage settles an upload with its final source.
func (tx *Tx) ResolveImage(key NodeKey, src string) error {
	img, err := tx.uploadingImage(key)
	if err != nil {
		return err
	}
	img.src = src
	img.upload = UploadState{Status: UploadIdle}
	return nil
}

// FailImage drops a placeholder whose upload failed.
func (tx *Tx) FailImage(key NodeKey) error {
	if _, err := tx.uploadingImage(key); err != nil {
		return err
	}
	return tx.Remove(key)
}

// SetImageCaption changes the caption and nothing else.
func (tx *Tx) SetImageCaption(key NodeKey, caption string) error {
	img, err := tx.writableImage(key)
	if err != nil {
		return err
	}
	img.caption = caption
	return nil
}

func (tx *Tx) SetImageWidth(key NodeKey, width int) error {
	img, err := tx.writableImage(key)
	if err != nil {
		return err
	}
	img.width = max(width, 0)
	return nil
}

// InsertImagePlaceholder adds an uploading image at the caret and returns
// its key. The insertion is one undo step.
func (e *Editor) InsertImagePlaceholder(alt string) (NodeKey, error) {
	img := NewImagePlaceholder(alt)
	if _, err := e.Update(func(tx *Tx) error { return tx.InsertNodes(img) }); err != nil {
		return 0, err
	}
	return img.Key(), nil
}

// ReportImageProgress, ResolveImage and FailImage each commit on their own
// and merge into the undo step of the insertion.

func (e *Editor) ReportImageProgress(key NodeKey, progress float64) error {
	_, err := e.Update(func(tx *Tx) error { return tx.ReportImageProgress(key, progress) }, TagHistoryMerge)
	return err
}

func (e *Editor) ResolveImage(key NodeKey, src string) error {
	_, err := e.Update(func(tx *Tx) error { return tx.ResolveImage(key, src) }, TagHistoryMerge)
	return err
}

func (e *Editor) FailImage(key NodeKey) error {
	_, err := e.Update(func(tx *Tx) error { return tx.FailImage(key) }, TagHistoryMerge)
	return err
}

func (e *Editor) SetImageCaption(key NodeKey, caption string) error {
	_, err := e.Update(func(tx *Tx) error { return tx.SetImageCaption(key, caption) })
	return err
}

// PruneUploading removes placeholders left behind by uploads that never
// settled, such as those of a previous session.
func PruneUploading(s *EditorState) (*EditorState, int, error) {
	var stale []NodeKey
	for _, img := range s.View().Images() {
		if img.Uploading() {
			stale = append(stale, img.Key())
		}
	}
	if len(stale) == 0 {
		return s, 0, nil
	}
	next, err := Apply(s, func(tx *Tx) error {
		for _, k := range stale {
			if err := tx.Remove(k); err != nil {
				return err
			}
		}
		return nil
	}, TagHistoryMerge)
	if err != nil {
		return s, 0, err
	}
	return next, len(stale), nil
}
