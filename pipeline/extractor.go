package pipeline

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vqa-go/model"
)

// ImageNet channel statistics, RGB order, for inputs scaled to [0,1].
var (
	imagenetMean = gocv.NewScalar(0.485, 0.456, 0.406, 0)
	imagenetStd  = gocv.NewScalar(0.229, 0.224, 0.225, 1)
	grayMean     = gocv.NewScalar(0.449, 0, 0, 0)
	grayStd      = gocv.NewScalar(0.226, 1, 1, 1)
)

// Extractor runs single frames through a pretrained network and returns
// the configured intermediate activations. The layer set is fixed at
// construction and validated once against the network's layer names.
type Extractor struct {
	net     gocv.Net
	variant Variant
	layers  []LayerSpec
	keys    []string
}

// NewExtractor loads the network weights and pins the device and layer
// set for the whole run. Device selection affects throughput only; it is
// an explicit configuration value, not ambient state.
func NewExtractor(modelPath, device string, variant Variant, frameDiff bool) (*Extractor, error) {
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, model.ConfigErrorf("cannot read extractor network from %s", modelPath)
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	switch device {
	case "cpu":
		// defaults above
	case "cuda":
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	default:
		net.Close()
		return nil, model.ConfigErrorf("unknown device %q (want cpu or cuda)", device)
	}

	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("setting dnn backend: %w", err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, fmt.Errorf("setting dnn target: %w", err)
	}

	layers := variant.Layers
	if frameDiff {
		layers = variant.DiffLayers
	}

	available := map[string]bool{}
	for _, name := range net.GetLayerNames() {
		available[name] = true
	}

	keys := make([]string, 0, len(layers))
	for _, layer := range layers {
		if !available[layer.Key] {
			net.Close()
			return nil, model.ConfigErrorf("network %s has no layer %q (variant %s)", modelPath, layer.Key, variant.Name)
		}
		keys = append(keys, layer.Key)
	}

	return &Extractor{
		net:     net,
		variant: variant,
		layers:  layers,
		keys:    keys,
	}, nil
}

func (e *Extractor) Layers() []LayerSpec {
	return e.layers
}

func (e *Extractor) Close() error {
	return e.net.Close()
}

// Preprocess resizes the shorter side to the variant's frame size,
// center-crops, scales to [0,1] and normalizes per channel. The result
// is the network-ready frame; Extract expects its input preprocessed.
func (e *Extractor) Preprocess(frame gocv.Mat) (gocv.Mat, error) {
	rows, cols := frame.Rows(), frame.Cols()
	if rows == 0 || cols == 0 {
		return gocv.Mat{}, model.DataShapeErrorf("cannot preprocess an empty frame")
	}

	short := rows
	if cols < short {
		short = cols
	}
	scale := float64(e.variant.FrameSize) / float64(short)
	newW := int(float64(cols)*scale + 0.5)
	newH := int(float64(rows)*scale + 0.5)

	resized := gocv.NewMat()
	gocv.Resize(frame, &resized, image.Pt(newW, newH), 0, 0, gocv.InterpolationArea)

	crop := e.variant.CenterCrop
	if resized.Rows() < crop || resized.Cols() < crop {
		resized.Close()
		return gocv.Mat{}, model.DataShapeErrorf("frame %dx%d too small for %d center crop", cols, rows, crop)
	}

	x := (resized.Cols() - crop) / 2
	y := (resized.Rows() - crop) / 2
	region := resized.Region(image.Rect(x, y, x+crop, y+crop))
	cropped := region.Clone()
	region.Close()
	resized.Close()

	f32 := gocv.NewMat()
	cropped.ConvertTo(&f32, gocv.MatTypeCV32F)
	cropped.Close()
	f32.DivideFloat(255.0)

	mean, std := imagenetMean, imagenetStd
	if f32.Channels() == 1 {
		mean, std = grayMean, grayStd
	}

	meanMat := gocv.NewMatWithSizeFromScalar(mean, f32.Rows(), f32.Cols(), f32.Type())
	defer meanMat.Close()
	stdMat := gocv.NewMatWithSizeFromScalar(std, f32.Rows(), f32.Cols(), f32.Type())
	defer stdMat.Close()

	gocv.Subtract(f32, meanMat, &f32)
	gocv.Divide(f32, stdMat, &f32)

	return f32, nil
}

// Extract runs one preprocessed frame forward and returns the configured
// activations keyed by semantic layer name.
func (e *Extractor) Extract(preprocessed gocv.Mat) (map[string]Activation, error) {
	blob := gocv.BlobFromImage(preprocessed, 1.0, image.Pt(e.variant.CenterCrop, e.variant.CenterCrop),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	e.net.SetInput(blob, "")

	outputs := e.net.ForwardLayers(e.keys)
	defer func() {
		for _, out := range outputs {
			out.Close()
		}
	}()

	if len(outputs) != len(e.layers) {
		return nil, model.DataShapeErrorf("network returned %d activations for %d layers", len(outputs), len(e.layers))
	}

	acts := make(map[string]Activation, len(e.layers))
	for i, out := range outputs {
		act, err := matToActivation(out, e.layers[i].Name)
		if err != nil {
			return nil, err
		}
		acts[e.layers[i].Name] = act
	}

	return acts, nil
}

func matToActivation(m gocv.Mat, name string) (Activation, error) {
	dims := m.Size()
	// global-pool outputs come back as (1, C); widen to (1, C, 1, 1)
	if len(dims) == 2 && dims[0] == 1 {
		dims = []int{1, dims[1], 1, 1}
	}
	if len(dims) != 4 {
		return Activation{}, model.DataShapeErrorf("activation %q has %d dims, expected 4", name, len(dims))
	}

	ptr, err := m.DataPtrFloat32()
	if err != nil {
		return Activation{}, fmt.Errorf("reading activation %q: %w", name, err)
	}

	data := make([]float32, len(ptr))
	copy(data, ptr)

	out := make([]int, len(dims))
	copy(out, dims)

	return Activation{Name: name, Dims: out, Data: data}, nil
}

// ExtractSource is the gocv-backed DescriptorSource: it opens a video's
// frame sequence and lazily maps every frame to its style descriptor.
type ExtractSource struct {
	extractor *Extractor
	framerCfg FramerConfig
}

func NewExtractSource(extractor *Extractor, framerCfg FramerConfig) *ExtractSource {
	return &ExtractSource{
		extractor: extractor,
		framerCfg: framerCfg,
	}
}

func (s *ExtractSource) Open(video model.Video) (DescriptorSeq, error) {
	frames, err := OpenFrames(video.Path, s.framerCfg)
	if err != nil {
		return nil, err
	}

	return &extractSeq{frames: frames, extractor: s.extractor}, nil
}

type extractSeq struct {
	frames    *Frames
	extractor *Extractor
	err       error
}

func (s *extractSeq) Next() ([]float64, bool) {
	if s.err != nil {
		return nil, false
	}

	frame, ok := s.frames.Next()
	if !ok {
		s.err = s.frames.Err()
		return nil, false
	}
	defer frame.Close()

	pre, err := s.extractor.Preprocess(frame)
	if err != nil {
		s.err = err
		return nil, false
	}
	defer pre.Close()

	acts, err := s.extractor.Extract(pre)
	if err != nil {
		s.err = err
		return nil, false
	}

	descriptor, err := Descriptor(acts, s.extractor.layers)
	if err != nil {
		s.err = err
		return nil, false
	}

	return descriptor, true
}

func (s *extractSeq) Err() error {
	return s.err
}

func (s *extractSeq) Close() error {
	return s.frames.Close()
}
