// Package neural provides feedforward neural network policies for rockets.
package neural

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// FFNN is a fully connected feedforward network. Hidden layers use tanh,
// the output layer uses the logistic function so every output lies in [0,1].
type FFNN struct {
	sizes   []int
	weights []*mat.Dense    // layer l: sizes[l+1] x sizes[l]
	biases  []*mat.VecDense // layer l: sizes[l+1]
}

// NewFFNN creates a randomly initialized network with the given layer sizes,
// inputs first and outputs last.
func NewFFNN(rng *rand.Rand, sizes []int) *FFNN {
	if len(sizes) < 2 {
		panic(fmt.Sprintf("neural: need at least input and output layers, got %v", sizes))
	}

	nn := &FFNN{sizes: append([]int(nil), sizes...)}
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]

		// Xavier initialization
		scale := math.Sqrt(2.0 / float64(in))
		data := make([]float64, out*in)
		for i := range data {
			data[i] = rng.NormFloat64() * scale
		}

		nn.weights = append(nn.weights, mat.NewDense(out, in, data))
		nn.biases = append(nn.biases, mat.NewVecDense(out, nil))
	}
	return nn
}

// Sizes returns the layer sizes.
func (nn *FFNN) Sizes() []int {
	return append([]int(nil), nn.sizes...)
}

// NumInputs returns the width of the input layer.
func (nn *FFNN) NumInputs() int {
	return nn.sizes[0]
}

// NumOutputs returns the width of the output layer.
func (nn *FFNN) NumOutputs() int {
	return nn.sizes[len(nn.sizes)-1]
}

// Evaluate computes the network output. It only reads the network, so
// concurrent calls are safe.
func (nn *FFNN) Evaluate(inputs []float64) []float64 {
	if len(inputs) != nn.NumInputs() {
		// Wrong arity yields an empty output, which callers treat as a contract violation.
		return nil
	}

	x := mat.NewVecDense(len(inputs), append([]float64(nil), inputs...))
	last := len(nn.weights) - 1

	for l, w := range nn.weights {
		y := mat.NewVecDense(nn.sizes[l+1], nil)
		y.MulVec(w, x)
		y.AddVec(y, nn.biases[l])

		raw := y.RawVector().Data
		for i, v := range raw {
			if l == last {
				raw[i] = sigmoid(v)
			} else {
				raw[i] = math.Tanh(v)
			}
		}
		x = y
	}

	return append([]float64(nil), x.RawVector().Data...)
}

// MutateSparse applies sparse per-weight mutation.
// rate: probability each weight mutates (e.g., 0.1)
// sigma: standard deviation of normal perturbation (e.g., 0.2)
// bigRate: probability a mutation is large (e.g., 0.05)
// bigSigma: sigma for large mutations (e.g., 1.0)
// Biases mutate at rate*biasRateMultiplier.
// Returns avgAbsDelta: the average absolute delta of all applied mutations.
func (nn *FFNN) MutateSparse(rng *rand.Rand, rate, sigma, bigRate, bigSigma, biasRateMultiplier float64) float64 {
	var totalDelta float64
	var count int

	perturb := func(data []float64, p float64) {
		for i := range data {
			if rng.Float64() >= p {
				continue
			}
			s := sigma
			if rng.Float64() < bigRate {
				s = bigSigma
			}
			delta := rng.NormFloat64() * s
			data[i] += delta
			totalDelta += math.Abs(delta)
			count++
		}
	}

	for l := range nn.weights {
		perturb(nn.weights[l].RawMatrix().Data, rate)
		perturb(nn.biases[l].RawVector().Data, rate*biasRateMultiplier)
	}

	if count == 0 {
		return 0
	}
	return totalDelta / float64(count)
}

// Clone creates a deep copy of the network.
func (nn *FFNN) Clone() *FFNN {
	clone := &FFNN{sizes: append([]int(nil), nn.sizes...)}
	for l := range nn.weights {
		clone.weights = append(clone.weights, mat.DenseCopyOf(nn.weights[l]))
		clone.biases = append(clone.biases, mat.VecDenseCopyOf(nn.biases[l]))
	}
	return clone
}

// Crossover builds a child by picking every weight and bias uniformly from one
// of the two parents. Parents must share layer sizes.
func Crossover(rng *rand.Rand, a, b *FFNN) (*FFNN, error) {
	if !sameSizes(a.sizes, b.sizes) {
		return nil, fmt.Errorf("crossover: layer sizes differ: %v vs %v", a.sizes, b.sizes)
	}

	child := a.Clone()
	mix := func(dst, other []float64) {
		for i := range dst {
			if rng.Intn(2) == 1 {
				dst[i] = other[i]
			}
		}
	}
	for l := range child.weights {
		mix(child.weights[l].RawMatrix().Data, b.weights[l].RawMatrix().Data)
		mix(child.biases[l].RawVector().Data, b.biases[l].RawVector().Data)
	}
	return child, nil
}

// Equal reports whether two networks have identical shape and parameters.
func (nn *FFNN) Equal(other *FFNN) bool {
	if !sameSizes(nn.sizes, other.sizes) {
		return false
	}
	for l := range nn.weights {
		if !mat.Equal(nn.weights[l], other.weights[l]) || !mat.Equal(nn.biases[l], other.biases[l]) {
			return false
		}
	}
	return true
}

// NumParams returns the number of weights and biases.
func (nn *FFNN) NumParams() int {
	n := 0
	for l := 0; l < len(nn.sizes)-1; l++ {
		n += nn.sizes[l]*nn.sizes[l+1] + nn.sizes[l+1]
	}
	return n
}

func sameSizes(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
