package model

// Request names a series function and its arguments.
type Request struct {
	Func      string    `json:"func"`
	Values    []float64 `json:"values"`
	Period    int       `json:"period"`
	Top       int       `json:"top,omitempty"`
	Smoothing *float64  `json:"smoothing,omitempty"`
	Precision *int      `json:"precision,omitempty"`
}

// Result carries one output per input position. Scalar functions fill Series,
// top/bottom fill Sets. The Formatted fields are set only when a precision was
// requested.
type Result struct {
	Func          string      `json:"func"`
	Period        int         `json:"period"`
	Top           int         `json:"top,omitempty"`
	Series        []float64   `json:"series,omitempty"`
	Sets          [][]float64 `json:"sets,omitempty"`
	Formatted     []string    `json:"formatted,omitempty"`
	FormattedSets [][]string  `json:"formatted_sets,omitempty"`
}

// Len reports the number of output positions.
func (r Result) Len() int {
	if r.Sets != nil {
		return len(r.Sets)
	}
	return len(r.Series)
}
