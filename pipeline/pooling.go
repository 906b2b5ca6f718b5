package pipeline

import (
	"github.com/khaledhikmat/vqa-go/model"
)

const (
	PoolMax  = "max"
	PoolMean = "mean"
)

// Pool reduces a sequence of per-frame descriptors to one video-level
// descriptor. The sequence is consumed incrementally in a single pass,
// holding only the accumulator, so long videos never materialize all
// frame descriptors at once.
//
// An empty sequence is a data shape error: a video with zero decodable
// frames is a real failure (corrupt file) that must surface, never a
// silently zero-filled descriptor. Mismatched descriptor lengths within
// the sequence are likewise fatal.
func Pool(seq DescriptorSeq, method string) ([]float64, error) {
	if method != PoolMax && method != PoolMean {
		return nil, model.ConfigErrorf("unsupported pooling method %q", method)
	}

	first, ok := seq.Next()
	if !ok {
		if err := seq.Err(); err != nil {
			return nil, err
		}
		return nil, model.DataShapeErrorf("cannot pool an empty frame sequence")
	}

	acc := make([]float64, len(first))
	copy(acc, first)

	count := 1
	for {
		desc, ok := seq.Next()
		if !ok {
			break
		}

		if len(desc) != len(acc) {
			return nil, model.DataShapeErrorf("frame descriptor length %d does not match %d", len(desc), len(acc))
		}

		switch method {
		case PoolMax:
			for i, v := range desc {
				if v > acc[i] {
					acc[i] = v
				}
			}
		case PoolMean:
			for i, v := range desc {
				acc[i] += v
			}
		}
		count++
	}

	if err := seq.Err(); err != nil {
		return nil, err
	}

	if method == PoolMean {
		inv := 1.0 / float64(count)
		for i := range acc {
			acc[i] *= inv
		}
	}

	return acc, nil
}
