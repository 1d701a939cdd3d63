package export

import "errors"

// Multi hands every data set to each of its exporters in order. A failing exporter does not stop
// the others; all errors are returned together.
type Multi []Exporter

// Export ...
func (m Multi) Export(header string, pairs []Pair) error {
	var errs []error
	for _, e := range m {
		if err := e.Export(header, pairs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
