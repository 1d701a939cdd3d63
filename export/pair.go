package export

// Pair is one averaged measurement: the probe height X and the mean force Y measured at it.
type Pair struct {
	X, Y float32
}

// Exporter writes a finished data set somewhere.
type Exporter interface {
	Export(header string, pairs []Pair) error
}
