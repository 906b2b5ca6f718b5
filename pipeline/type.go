package pipeline

import (
	"github.com/khaledhikmat/vqa-go/model"
)

// Activation is one named intermediate tensor produced by a forward pass
// of a single frame. Dims follows the DNN convention (batch, channels,
// height, width) with batch fixed at 1. Transient: created and consumed
// within one frame's feature computation.
type Activation struct {
	Name string
	Dims []int
	Data []float32
}

// DescriptorSeq is a lazily produced, single-pass sequence of per-frame
// descriptors. Next returns false once the sequence is exhausted; Err
// reports any decode or extraction failure encountered along the way and
// must be checked after exhaustion. Not restartable.
type DescriptorSeq interface {
	Next() ([]float64, bool)
	Err() error
	Close() error
}

// DescriptorSource opens the per-frame descriptor sequence of one video.
// The gocv-backed implementation lives in extractor.go; tests substitute
// in-memory sources.
type DescriptorSource interface {
	Open(video model.Video) (DescriptorSeq, error)
}

// sliceSeq adapts a materialized descriptor list to DescriptorSeq.
type sliceSeq struct {
	items [][]float64
	pos   int
}

func NewSliceSeq(items [][]float64) DescriptorSeq {
	return &sliceSeq{items: items}
}

func (s *sliceSeq) Next() ([]float64, bool) {
	if s.pos >= len(s.items) {
		return nil, false
	}
	item := s.items[s.pos]
	s.pos++
	return item, true
}

func (s *sliceSeq) Err() error {
	return nil
}

func (s *sliceSeq) Close() error {
	return nil
}
