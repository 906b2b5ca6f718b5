package regression

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/khaledhikmat/vqa-go/model"
)

// FeedForward is the neural-network regressor variant: fully connected
// 4096-2048-1024-512-256-128-1 with ReLU activations, batch
// normalization after the first layer, dropout 0.2 on the deeper hidden
// layers, Adam on mean squared error, and early stopping on a held-out
// validation slice with best-weight restore.
type FeedForward struct {
	Widths       []int
	LearningRate float64
	Epochs       int
	BatchSize    int
	ValSplit     float64
	Patience     int
	DropoutRate  float64

	rng    *rand.Rand
	layers []*denseLayer
	norm   *batchNorm
}

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-7
	bnEps     = 1e-3
	bnMoment  = 0.99
)

func NewFeedForward(rng *rand.Rand) *FeedForward {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &FeedForward{
		Widths:       []int{4096, 2048, 1024, 512, 256, 128, 1},
		LearningRate: 4e-5,
		Epochs:       50,
		BatchSize:    8,
		ValSplit:     0.1,
		Patience:     5,
		DropoutRate:  0.2,
		rng:          rng,
	}
}

func (f *FeedForward) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || len(y) != n {
		return model.DataShapeErrorf("nn fit: %d samples vs %d targets", n, len(y))
	}
	inputDim := len(X[0])
	if inputDim == 0 {
		return model.DataShapeErrorf("nn fit: zero-length feature vectors")
	}

	f.build(inputDim)

	// validation slice comes off the end, before any shuffling
	nVal := int(float64(n) * f.ValSplit)
	if nVal < 1 && n > f.BatchSize {
		nVal = 1
	}
	trainX, trainY := X[:n-nVal], y[:n-nVal]
	valX, valY := X[n-nVal:], y[n-nVal:]

	bestVal := math.Inf(1)
	var bestState []float64
	waited := 0

	order := make([]int, len(trainX))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < f.Epochs; epoch++ {
		f.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		for start := 0; start < len(order); start += f.BatchSize {
			end := start + f.BatchSize
			if end > len(order) {
				end = len(order)
			}

			batchX := make([][]float64, 0, end-start)
			batchY := make([]float64, 0, end-start)
			for _, idx := range order[start:end] {
				batchX = append(batchX, trainX[idx])
				batchY = append(batchY, trainY[idx])
			}

			f.trainStep(batchX, batchY)
		}

		if len(valX) == 0 {
			continue
		}

		valLoss := f.loss(valX, valY)
		if valLoss < bestVal {
			bestVal = valLoss
			bestState = f.snapshot()
			waited = 0
		} else {
			waited++
			if waited >= f.Patience {
				break
			}
		}
	}

	if bestState != nil {
		f.restore(bestState)
	}

	return nil
}

func (f *FeedForward) Predict(X [][]float64) ([]float64, error) {
	if f.layers == nil {
		return nil, model.ConfigErrorf("nn predict called before fit")
	}

	out := f.forward(matFromRows(X), false, nil)
	pred := make([]float64, len(X))
	for i := range pred {
		pred[i] = out.At(i, 0)
	}
	return pred, nil
}

func (f *FeedForward) build(inputDim int) {
	f.layers = make([]*denseLayer, len(f.Widths))
	in := inputDim
	for i, width := range f.Widths {
		f.layers[i] = newDenseLayer(in, width, f.rng)
		in = width
	}
	f.norm = newBatchNorm(f.Widths[0])
}

// caches filled during a training forward pass, consumed by backward
type forwardCache struct {
	inputs []*mat.Dense // layer inputs
	pre    []*mat.Dense // pre-activation outputs
	masks  []*mat.Dense // dropout masks (nil where no dropout)
	bnXhat *mat.Dense
	bnStd  []float64
}

func (f *FeedForward) forward(X *mat.Dense, train bool, cache *forwardCache) *mat.Dense {
	a := X
	last := len(f.layers) - 1

	for i, layer := range f.layers {
		if cache != nil {
			cache.inputs = append(cache.inputs, a)
		}

		z := layer.forward(a)
		if cache != nil {
			cache.pre = append(cache.pre, z)
		}

		if i == last {
			// linear output layer
			a = z
			if cache != nil {
				cache.masks = append(cache.masks, nil)
			}
			continue
		}

		a = relu(z)

		if i == 0 {
			a = f.norm.forward(a, train, cache)
		}

		var mask *mat.Dense
		if train && i > 0 && f.DropoutRate > 0 {
			a, mask = dropout(a, f.DropoutRate, f.rng)
		}
		if cache != nil {
			cache.masks = append(cache.masks, mask)
		}
	}

	return a
}

func (f *FeedForward) trainStep(X [][]float64, y []float64) {
	batch := matFromRows(X)
	cache := &forwardCache{}
	pred := f.forward(batch, true, cache)

	b, _ := pred.Dims()

	// MSE gradient: 2*(pred - y)/b
	grad := mat.NewDense(b, 1, nil)
	for i := 0; i < b; i++ {
		grad.Set(i, 0, 2*(pred.At(i, 0)-y[i])/float64(b))
	}

	f.backward(grad, cache)

	for _, layer := range f.layers {
		layer.adamStep(f.LearningRate)
	}
	f.norm.adamStep(f.LearningRate)
}

func (f *FeedForward) backward(grad *mat.Dense, cache *forwardCache) {
	last := len(f.layers) - 1

	for i := last; i >= 0; i-- {
		if i != last {
			// undo dropout
			if mask := cache.masks[i]; mask != nil {
				grad = hadamard(grad, mask)
			}
			// undo batch norm on the first hidden layer
			if i == 0 {
				grad = f.norm.backward(grad, cache)
			}
			// undo relu
			grad = reluBackward(grad, cache.pre[i])
		}

		grad = f.layers[i].backward(cache.inputs[i], grad)
	}
}

func (f *FeedForward) loss(X [][]float64, y []float64) float64 {
	pred := f.forward(matFromRows(X), false, nil)
	sum := 0.0
	for i := range y {
		d := pred.At(i, 0) - y[i]
		sum += d * d
	}
	return sum / float64(len(y))
}

func (f *FeedForward) snapshot() []float64 {
	var state []float64
	for _, layer := range f.layers {
		state = append(state, layer.W.RawMatrix().Data...)
		state = append(state, layer.B...)
	}
	state = append(state, f.norm.gamma...)
	state = append(state, f.norm.beta...)
	state = append(state, f.norm.runMean...)
	state = append(state, f.norm.runVar...)
	return state
}

func (f *FeedForward) restore(state []float64) {
	pos := 0
	take := func(dst []float64) {
		copy(dst, state[pos:pos+len(dst)])
		pos += len(dst)
	}
	for _, layer := range f.layers {
		take(layer.W.RawMatrix().Data)
		take(layer.B)
	}
	take(f.norm.gamma)
	take(f.norm.beta)
	take(f.norm.runMean)
	take(f.norm.runVar)
}

// denseLayer is one fully connected layer with Adam state.
type denseLayer struct {
	in, out int
	W       *mat.Dense
	B       []float64

	dW *mat.Dense
	dB []float64

	mW, vW *mat.Dense
	mB, vB []float64
	t      int
}

func newDenseLayer(in, out int, rng *rand.Rand) *denseLayer {
	w := make([]float64, in*out)
	for i := range w {
		// normal initializer, stddev 0.05
		w[i] = rng.NormFloat64() * 0.05
	}
	return &denseLayer{
		in:  in,
		out: out,
		W:   mat.NewDense(in, out, w),
		B:   make([]float64, out),
		mW:  mat.NewDense(in, out, nil),
		vW:  mat.NewDense(in, out, nil),
		mB:  make([]float64, out),
		vB:  make([]float64, out),
	}
}

func (l *denseLayer) forward(x *mat.Dense) *mat.Dense {
	rows, _ := x.Dims()
	z := mat.NewDense(rows, l.out, nil)
	z.Mul(x, l.W)
	for i := 0; i < rows; i++ {
		for j := 0; j < l.out; j++ {
			z.Set(i, j, z.At(i, j)+l.B[j])
		}
	}
	return z
}

func (l *denseLayer) backward(x, grad *mat.Dense) *mat.Dense {
	rows, _ := grad.Dims()

	l.dW = mat.NewDense(l.in, l.out, nil)
	l.dW.Mul(x.T(), grad)

	l.dB = make([]float64, l.out)
	for i := 0; i < rows; i++ {
		for j := 0; j < l.out; j++ {
			l.dB[j] += grad.At(i, j)
		}
	}

	prev := mat.NewDense(rows, l.in, nil)
	prev.Mul(grad, l.W.T())
	return prev
}

func (l *denseLayer) adamStep(lr float64) {
	l.t++
	adamUpdate(l.W.RawMatrix().Data, l.dW.RawMatrix().Data, l.mW.RawMatrix().Data, l.vW.RawMatrix().Data, lr, l.t)
	adamUpdate(l.B, l.dB, l.mB, l.vB, lr, l.t)
}

func adamUpdate(param, grad, m, v []float64, lr float64, t int) {
	c1 := 1 - math.Pow(adamBeta1, float64(t))
	c2 := 1 - math.Pow(adamBeta2, float64(t))
	for i := range param {
		m[i] = adamBeta1*m[i] + (1-adamBeta1)*grad[i]
		v[i] = adamBeta2*v[i] + (1-adamBeta2)*grad[i]*grad[i]
		mHat := m[i] / c1
		vHat := v[i] / c2
		param[i] -= lr * mHat / (math.Sqrt(vHat) + adamEps)
	}
}

// batchNorm normalizes per feature over the batch during training and
// with running statistics at inference.
type batchNorm struct {
	dim     int
	gamma   []float64
	beta    []float64
	runMean []float64
	runVar  []float64

	dGamma []float64
	dBeta  []float64

	mG, vG []float64
	mB, vB []float64
	t      int
}

func newBatchNorm(dim int) *batchNorm {
	gamma := make([]float64, dim)
	runVar := make([]float64, dim)
	for i := range gamma {
		gamma[i] = 1
		runVar[i] = 1
	}
	return &batchNorm{
		dim:     dim,
		gamma:   gamma,
		beta:    make([]float64, dim),
		runMean: make([]float64, dim),
		runVar:  runVar,
		mG:      make([]float64, dim),
		vG:      make([]float64, dim),
		mB:      make([]float64, dim),
		vB:      make([]float64, dim),
	}
}

func (bn *batchNorm) forward(x *mat.Dense, train bool, cache *forwardCache) *mat.Dense {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, cols, nil)

	if !train {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				xhat := (x.At(i, j) - bn.runMean[j]) / math.Sqrt(bn.runVar[j]+bnEps)
				out.Set(i, j, bn.gamma[j]*xhat+bn.beta[j])
			}
		}
		return out
	}

	mean := make([]float64, cols)
	variance := make([]float64, cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			mean[j] += x.At(i, j)
		}
		mean[j] /= float64(rows)
		for i := 0; i < rows; i++ {
			d := x.At(i, j) - mean[j]
			variance[j] += d * d
		}
		variance[j] /= float64(rows)

		bn.runMean[j] = bnMoment*bn.runMean[j] + (1-bnMoment)*mean[j]
		bn.runVar[j] = bnMoment*bn.runVar[j] + (1-bnMoment)*variance[j]
	}

	xhat := mat.NewDense(rows, cols, nil)
	std := make([]float64, cols)
	for j := 0; j < cols; j++ {
		std[j] = math.Sqrt(variance[j] + bnEps)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			h := (x.At(i, j) - mean[j]) / std[j]
			xhat.Set(i, j, h)
			out.Set(i, j, bn.gamma[j]*h+bn.beta[j])
		}
	}

	if cache != nil {
		cache.bnXhat = xhat
		cache.bnStd = std
	}

	return out
}

func (bn *batchNorm) backward(grad *mat.Dense, cache *forwardCache) *mat.Dense {
	rows, cols := grad.Dims()
	xhat := cache.bnXhat
	std := cache.bnStd

	bn.dGamma = make([]float64, cols)
	bn.dBeta = make([]float64, cols)
	sumDxhat := make([]float64, cols)
	sumDxhatXhat := make([]float64, cols)

	dxhat := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			g := grad.At(i, j)
			h := xhat.At(i, j)
			bn.dGamma[j] += g * h
			bn.dBeta[j] += g
			d := g * bn.gamma[j]
			dxhat.Set(i, j, d)
			sumDxhat[j] += d
			sumDxhatXhat[j] += d * h
		}
	}

	out := mat.NewDense(rows, cols, nil)
	rb := float64(rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := (rb*dxhat.At(i, j) - sumDxhat[j] - xhat.At(i, j)*sumDxhatXhat[j]) / (rb * std[j])
			out.Set(i, j, v)
		}
	}

	return out
}

func (bn *batchNorm) adamStep(lr float64) {
	if bn.dGamma == nil {
		return
	}
	bn.t++
	adamUpdate(bn.gamma, bn.dGamma, bn.mG, bn.vG, lr, bn.t)
	adamUpdate(bn.beta, bn.dBeta, bn.mB, bn.vB, lr, bn.t)
}

func matFromRows(X [][]float64) *mat.Dense {
	rows, cols := len(X), len(X[0])
	out := mat.NewDense(rows, cols, nil)
	for i, row := range X {
		out.SetRow(i, row)
	}
	return out
}

func relu(z *mat.Dense) *mat.Dense {
	rows, cols := z.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := z.At(i, j); v > 0 {
				out.Set(i, j, v)
			}
		}
	}
	return out
}

func reluBackward(grad, pre *mat.Dense) *mat.Dense {
	rows, cols := grad.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if pre.At(i, j) > 0 {
				out.Set(i, j, grad.At(i, j))
			}
		}
	}
	return out
}

// dropout applies inverted dropout so inference needs no rescaling.
func dropout(x *mat.Dense, rate float64, rng *rand.Rand) (*mat.Dense, *mat.Dense) {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, cols, nil)
	mask := mat.NewDense(rows, cols, nil)
	keep := 1 - rate
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if rng.Float64() < keep {
				mask.Set(i, j, 1/keep)
				out.Set(i, j, x.At(i, j)/keep)
			}
		}
	}
	return out, mask
}

func hadamard(a, b *mat.Dense) *mat.Dense {
	rows, cols := a.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.MulElem(a, b)
	return out
}
