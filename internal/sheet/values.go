package sheet

import (
	"fmt"
	"io"
)

// valueReader serves Sheets API cells as CSV records. The API omits
// trailing empty cells, so every record is padded or cut to the header width.
type valueReader struct {
	values [][]any
	width  int
	next   int
}

func newValueReader(values [][]any) *valueReader {
	r := &valueReader{values: values}
	if len(values) > 0 {
		r.width = len(values[0])
	}
	return r
}

func (r *valueReader) Read() ([]string, error) {
	if r.next >= len(r.values) {
		return nil, io.EOF
	}
	row := r.values[r.next]
	r.next++

	rec := make([]string, r.width)
	for i, v := range row {
		if i >= r.width {
			break
		}
		if v != nil {
			rec[i] = fmt.Sprint(v)
		}
	}
	return rec, nil
}
