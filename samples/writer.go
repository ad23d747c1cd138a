package samples

import (
	"encoding/csv"
	"io"
)

// WriteCSV writes samples in the request driver's file format, header first
func WriteCSV(w io.Writer, samples []Sample) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for i := range samples {
		if err := writer.Write(samples[i].record()); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
