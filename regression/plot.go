package regression

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// scatterPNG renders the ground-truth vs predicted scatter of one fold.
// Purely observational; rendering failures never fail the fold.
func scatterPNG(yTest, yPred []float64, srocc float64) ([]byte, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("SROCC = %.4f", srocc)
	p.X.Label.Text = "Ground-truth MOS"
	p.Y.Label.Text = "Predicted Score"

	pts := make(plotter.XYs, len(yTest))
	for i := range yTest {
		pts[i].X = yTest[i]
		pts[i].Y = yPred[i]
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	p.Add(scatter)

	writer, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
