package analytics

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"slidestat/internal/model"
	"slidestat/internal/windowstats"
)

var (
	ErrUnknownFunc      = errors.New("unknown series function")
	ErrMissingSmoothing = errors.New("smoothing factor required")
	ErrInvalidPrecision = errors.New("precision must be between 0 and 15")
)

const maxPrecision = 15

type seriesFunc func(values []float64, period int) ([]float64, error)

type setFunc func(values []float64, period, top int) ([][]float64, error)

// Snapshot summarises the most recent run.
type Snapshot struct {
	TimeUnix int64   `json:"timestamp"`
	Func     string  `json:"func"`
	Period   int     `json:"period"`
	Points   int     `json:"points"`
	Last     float64 `json:"last"`
	Runs     uint64  `json:"runs"`
}

type Analyzer struct {
	series map[string]seriesFunc
	sets   map[string]setFunc
	log    zerolog.Logger

	mu     sync.RWMutex
	latest Snapshot
	runs   uint64
}

func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{
		series: map[string]seriesFunc{
			"sum":  windowstats.Sum[float64],
			"sma":  windowstats.SMA[float64],
			"ema":  windowstats.EMA[float64],
			"wwma": windowstats.WWMA[float64],
			"varp": windowstats.VarP[float64],
			"var":  windowstats.Var[float64],
			"stdp": windowstats.StdP[float64],
			"std":  windowstats.Std[float64],
			"max":  windowstats.Max[float64],
			"min":  windowstats.Min[float64],
			"psa":  windowstats.PowerSumAverage[float64],
		},
		sets: map[string]setFunc{
			"top":    windowstats.Top[float64],
			"bottom": windowstats.Bottom[float64],
		},
		log: log.With().Str("component", "analytics").Logger(),
	}
}

// Funcs lists the names accepted by Run.
func (a *Analyzer) Funcs() []string {
	names := []string{"smooth"}
	for name := range a.series {
		names = append(names, name)
	}
	for name := range a.sets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run dispatches req to the named series function.
func (a *Analyzer) Run(req model.Request) (model.Result, error) {
	res := model.Result{Func: req.Func, Period: req.Period, Top: req.Top}

	if req.Precision != nil && (*req.Precision < 0 || *req.Precision > maxPrecision) {
		return res, fmt.Errorf("%w: got %d", ErrInvalidPrecision, *req.Precision)
	}

	var err error
	switch fn, setFn := a.series[req.Func], a.sets[req.Func]; {
	case req.Func == "smooth":
		if req.Smoothing == nil {
			return res, ErrMissingSmoothing
		}
		res.Series, err = windowstats.Smooth(req.Values, *req.Smoothing)
	case fn != nil:
		res.Series, err = fn(req.Values, req.Period)
	case setFn != nil:
		res.Sets, err = setFn(req.Values, req.Period, req.Top)
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownFunc, req.Func)
	}
	if err != nil {
		a.log.Debug().Err(err).Str("func", req.Func).Int("period", req.Period).Msg("series rejected")
		return res, fmt.Errorf("%s: %w", req.Func, err)
	}

	if req.Precision != nil {
		format(&res, int32(*req.Precision))
	}

	a.record(res)
	return res, nil
}

// Latest returns the summary of the last successful run.
func (a *Analyzer) Latest() Snapshot {
	a.mu.RLock()
	res := a.latest
	a.mu.RUnlock()
	return res
}

func (a *Analyzer) record(res model.Result) {
	snap := Snapshot{
		TimeUnix: time.Now().Unix(),
		Func:     res.Func,
		Period:   res.Period,
		Points:   res.Len(),
	}
	switch {
	case len(res.Series) > 0:
		snap.Last = res.Series[len(res.Series)-1]
	case len(res.Sets) > 0:
		if last := res.Sets[len(res.Sets)-1]; len(last) > 0 {
			snap.Last = last[len(last)-1]
		}
	}

	a.mu.Lock()
	a.runs++
	snap.Runs = a.runs
	a.latest = snap
	a.mu.Unlock()

	a.log.Debug().Str("func", snap.Func).Int("points", snap.Points).Msg("series computed")
}

func format(res *model.Result, places int32) {
	if res.Series != nil {
		res.Formatted = make([]string, len(res.Series))
		for i, v := range res.Series {
			res.Formatted[i] = fixed(v, places)
		}
	}
	if res.Sets != nil {
		res.FormattedSets = make([][]string, len(res.Sets))
		for i, set := range res.Sets {
			row := make([]string, len(set))
			for j, v := range set {
				row[j] = fixed(v, places)
			}
			res.FormattedSets[i] = row
		}
	}
}

func fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
