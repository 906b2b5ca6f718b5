package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vqa-go/model"
)

const (
	ColorModeRGB  = "rgb"
	ColorModeGray = "gray"
)

type FramerConfig struct {
	ColorMode string
	// FrameDiff emits consecutive-frame differences instead of frames,
	// yielding len(frames)-1 items.
	FrameDiff bool
	// Raw YUV decode dimensions; zero for container formats
	Height int
	Width  int
	// Stride n keeps every n-th frame; values below 1 mean every frame
	Stride int
}

// frameReader produces decoded BGR frames from some backing store.
type frameReader interface {
	read() (gocv.Mat, bool)
	close() error
}

// Frames is a finite, single-pass, non-restartable sequence of decoded
// frames. Returned Mats are owned by the caller and must be closed.
type Frames struct {
	reader  frameReader
	cfg     FramerConfig
	prev    gocv.Mat
	hasPrev bool
	err     error
}

// OpenFrames opens the frame sequence of one video file. Container
// formats go through gocv's capture; headerless .yuv sequences are read
// plane-wise with the dataset-supplied dimensions. An unrecognized color
// mode is a configuration error, never a silent nil sequence.
func OpenFrames(videoPath string, cfg FramerConfig) (*Frames, error) {
	if cfg.ColorMode != ColorModeRGB && cfg.ColorMode != ColorModeGray {
		return nil, model.ConfigErrorf("unknown frame color mode %q", cfg.ColorMode)
	}

	var reader frameReader
	if strings.EqualFold(filepath.Ext(videoPath), ".yuv") {
		if cfg.Height <= 0 || cfg.Width <= 0 {
			return nil, model.ConfigErrorf("raw yuv input %s requires explicit frame dimensions", videoPath)
		}
		r, err := openYUVReader(videoPath, cfg.Height, cfg.Width)
		if err != nil {
			return nil, err
		}
		reader = r
	} else {
		capture, err := gocv.VideoCaptureFile(videoPath)
		if err != nil {
			return nil, fmt.Errorf("opening video %s: %w", videoPath, err)
		}
		reader = &captureReader{capture: capture}
	}

	return &Frames{reader: reader, cfg: cfg}, nil
}

// Next returns the next frame (or frame difference) in the configured
// color mode. ok is false once the sequence is exhausted or failed;
// check Err afterwards.
func (f *Frames) Next() (gocv.Mat, bool) {
	if f.err != nil {
		return gocv.Mat{}, false
	}

	for {
		raw, ok := f.readStrided()
		if !ok {
			return gocv.Mat{}, false
		}

		frame, err := f.convertColor(raw)
		raw.Close()
		if err != nil {
			f.err = err
			return gocv.Mat{}, false
		}

		if !f.cfg.FrameDiff {
			return frame, true
		}

		// Difference mode works on signed values, so frames are widened
		// to float32 before subtraction
		f32 := gocv.NewMat()
		frame.ConvertTo(&f32, gocv.MatTypeCV32F)
		frame.Close()

		if !f.hasPrev {
			f.prev = f32
			f.hasPrev = true
			continue
		}

		diff := gocv.NewMat()
		gocv.Subtract(f32, f.prev, &diff)
		f.prev.Close()
		f.prev = f32
		return diff, true
	}
}

func (f *Frames) readStrided() (gocv.Mat, bool) {
	stride := f.cfg.Stride
	if stride < 1 {
		stride = 1
	}

	for i := 0; i < stride; i++ {
		frame, ok := f.reader.read()
		if !ok {
			return gocv.Mat{}, false
		}
		if i == stride-1 {
			return frame, true
		}
		frame.Close()
	}

	return gocv.Mat{}, false
}

func (f *Frames) convertColor(bgr gocv.Mat) (gocv.Mat, error) {
	out := gocv.NewMat()
	switch f.cfg.ColorMode {
	case ColorModeRGB:
		gocv.CvtColor(bgr, &out, gocv.ColorBGRToRGB)
	case ColorModeGray:
		gocv.CvtColor(bgr, &out, gocv.ColorBGRToGray)
	}

	if out.Empty() {
		out.Close()
		return gocv.Mat{}, model.DataShapeErrorf("color conversion produced an empty frame")
	}

	return out, nil
}

func (f *Frames) Err() error {
	return f.err
}

func (f *Frames) Close() error {
	if f.hasPrev {
		f.prev.Close()
		f.hasPrev = false
	}
	return f.reader.close()
}

type captureReader struct {
	capture *gocv.VideoCapture
}

func (r *captureReader) read() (gocv.Mat, bool) {
	frame := gocv.NewMat()
	if ok := r.capture.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return gocv.Mat{}, false
	}
	return frame, true
}

func (r *captureReader) close() error {
	return r.capture.Close()
}

// yuvReader decodes headerless yuv420p sequences (LIVE, CSIQ) by reading
// one planar frame at a time and converting I420 to BGR.
type yuvReader struct {
	file   *os.File
	height int
	width  int
	buf    []byte
}

func openYUVReader(path string, height, width int) (*yuvReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening raw video %s: %w", path, err)
	}

	return &yuvReader{
		file:   file,
		height: height,
		width:  width,
		buf:    make([]byte, width*height*3/2),
	}, nil
}

func (r *yuvReader) read() (gocv.Mat, bool) {
	if _, err := io.ReadFull(r.file, r.buf); err != nil {
		// an incomplete trailing frame counts as end of sequence
		return gocv.Mat{}, false
	}

	planar, err := gocv.NewMatFromBytes(r.height*3/2, r.width, gocv.MatTypeCV8UC1, r.buf)
	if err != nil {
		return gocv.Mat{}, false
	}
	defer planar.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(planar, &bgr, gocv.ColorYUVToBGRI420)
	if bgr.Empty() {
		bgr.Close()
		return gocv.Mat{}, false
	}

	return bgr, true
}

func (r *yuvReader) close() error {
	return r.file.Close()
}
