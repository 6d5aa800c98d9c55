package classify

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogisticParams configures multinomial logistic regression.
type LogisticParams struct {
	C            float64 // inverse L2 strength, default 1
	LearningRate float64 // 0 derives a safe step from the data
	MaxIter      int     // default 500
	Tol          float64 // stop once the gradient infinity norm falls below this, default 1e-6
}

// Logistic is softmax regression fitted by full-batch gradient descent.
type Logistic struct {
	params LogisticParams

	enc     *encoder
	weights *mat.Dense // features x classes
	bias    []float64
}

// NewLogistic creates a logistic classifier, filling unset params with defaults.
func NewLogistic(p LogisticParams) *Logistic {
	if p.C <= 0 {
		p.C = 1
	}
	if p.MaxIter <= 0 {
		p.MaxIter = 500
	}
	if p.Tol <= 0 {
		p.Tol = 1e-6
	}
	return &Logistic{params: p}
}

func (l *Logistic) Fit(X mat.Matrix, y []string) error {
	n, d, err := checkFit(X, y)
	if err != nil {
		return err
	}
	l.enc = newEncoder(y)
	k := len(l.enc.classes)
	codes := l.enc.encode(y)

	x := mat.DenseCopyOf(X)
	w := mat.NewDense(d, k, nil)
	b := make([]float64, k)
	lambda := 1 / (l.params.C * float64(n))

	// 1/L for L = (‖X‖²_F/n + 1)/2 + λ bounds the softmax loss curvature
	// including the bias column.
	step := l.params.LearningRate
	if step <= 0 {
		fro := mat.Norm(x, 2)
		step = 1 / ((fro*fro/float64(n)+1)/2 + lambda)
	}

	var logits, grad mat.Dense
	resid := mat.NewDense(n, k, nil)
	gradB := make([]float64, k)

	for iter := 0; iter < l.params.MaxIter; iter++ {
		logits.Mul(x, w)
		for i := 0; i < n; i++ {
			row := resid.RawRowView(i)
			for c := 0; c < k; c++ {
				row[c] = logits.At(i, c) + b[c]
			}
			softmax(row)
			row[codes[i]] -= 1
		}

		grad.Mul(x.T(), resid)
		grad.Scale(1/float64(n), &grad)
		grad.Add(&grad, scaled(lambda, w))

		for c := 0; c < k; c++ {
			gradB[c] = 0
			for i := 0; i < n; i++ {
				gradB[c] += resid.At(i, c)
			}
			gradB[c] /= float64(n)
		}

		w.Sub(w, scaled(step, &grad))
		floats.AddScaled(b, -step, gradB)

		if math.Max(mat.Norm(&grad, math.Inf(1)), floats.Norm(gradB, math.Inf(1))) < l.params.Tol {
			break
		}
	}

	l.weights = w
	l.bias = b
	return nil
}

func (l *Logistic) Predict(X mat.Matrix) ([]string, error) {
	want := 0
	if l.weights != nil {
		want, _ = l.weights.Dims()
	}
	n, err := checkPredict(X, l.weights != nil, want)
	if err != nil {
		return nil, err
	}
	var logits mat.Dense
	logits.Mul(X, l.weights)

	k := len(l.enc.classes)
	out := make([]string, n)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			row[c] = logits.At(i, c) + l.bias[c]
		}
		out[i] = l.enc.classes[argmax(row)]
	}
	return out, nil
}

// softmax replaces v with its normalized exponentials.
func softmax(v []float64) {
	m := floats.Max(v)
	sum := 0.0
	for i := range v {
		v[i] = math.Exp(v[i] - m)
		sum += v[i]
	}
	floats.Scale(1/sum, v)
}

func scaled(f float64, m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Scale(f, m)
	return &out
}
