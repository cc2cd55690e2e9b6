// Package series assembles reconciled observations into one contiguous,
// gap-filled time series per canonical entity.
package series

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/retailsync/pkg/constants"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/period"
	"github.com/agentstation/retailsync/pkg/records"
)

// Point is one value of one entity's series.
type Point struct {
	CanonicalID string    `json:"canonical_id" yaml:"canonical_id"`
	Period      time.Time `json:"period" yaml:"period"`
	Value       float64   `json:"value" yaml:"value"`
	Imputed     bool      `json:"imputed" yaml:"imputed"`
}

// Observation is a record tagged with the member it was observed for and
// its position within its source batch.
type Observation struct {
	Member records.MemberID
	Index  int
	Record records.RawRecord
}

// EntityLookup maps a member to its canonical entity id.
type EntityLookup interface {
	Lookup(member records.MemberID) (string, bool)
}

// Options configures the assembler.
type Options struct {
	Granularity period.Granularity
	Policy      Policy
	Workers     int
	// MaxPeriods bounds the gap-filled span of one entity
	MaxPeriods int
}

// DefaultOptions returns the default options.
func DefaultOptions() *Options {
	return &Options{
		Granularity: period.Granularity(constants.DefaultGranularity),
		Policy:      Policy(constants.DefaultDuplicatePolicy),
		Workers:     runtime.GOMAXPROCS(0),
		MaxPeriods:  constants.MaxSeriesPeriods,
	}
}

// Assembler builds series.
type Assembler struct {
	opts Options
}

// New creates an Assembler. Zero fields of opts take their defaults.
func New(opts *Options) (*Assembler, error) {
	o := *DefaultOptions()
	if opts != nil {
		if opts.Granularity != "" {
			o.Granularity = opts.Granularity
		}
		if opts.Policy != "" {
			o.Policy = opts.Policy
		}
		if opts.Workers != 0 {
			o.Workers = opts.Workers
		}
		if opts.MaxPeriods != 0 {
			o.MaxPeriods = opts.MaxPeriods
		}
	}

	if !o.Granularity.Valid() {
		return nil, errors.NewConfigError("assembler", "period_granularity",
			fmt.Sprintf("unknown granularity %q", o.Granularity))
	}
	if !o.Policy.Valid() {
		return nil, errors.NewConfigError("assembler", "duplicate_policy",
			fmt.Sprintf("unknown policy %q", o.Policy))
	}
	if o.Workers < 1 || o.Workers > constants.MaxWorkers {
		return nil, errors.NewConfigError("assembler", "workers",
			fmt.Sprintf("must be between 1 and %d", constants.MaxWorkers))
	}
	if o.MaxPeriods < 1 {
		return nil, errors.NewConfigError("assembler", "max_periods", "must be positive")
	}
	return &Assembler{opts: o}, nil
}

// Assemble builds series with default options.
func Assemble(ctx context.Context, obs []Observation, entities EntityLookup) ([]Point, []*errors.DataError, error) {
	a, err := New(nil)
	if err != nil {
		return nil, nil, err
	}
	return a.Assemble(ctx, obs, entities)
}

// bucketed is an observation placed in its period bucket.
type bucketed struct {
	obs    Observation
	period time.Time
}

// Assemble groups observations by canonical entity and period bucket,
// combines duplicates by policy and fills gaps between each entity's first
// and last period with imputed zeros. Observations whose period cannot be
// bucketed are skipped and reported as DataErrors. Points are ordered by
// canonical id, then period.
func (a *Assembler) Assemble(ctx context.Context, obs []Observation, entities EntityLookup) ([]Point, []*errors.DataError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.WrapCanceled("assembler", err)
	}

	var dataErrs []*errors.DataError
	groups := make(map[string][]bucketed)
	for _, o := range obs {
		id, ok := entities.Lookup(o.Member)
		if !ok {
			dataErrs = append(dataErrs, errors.NewDataError(o.Record.Source, o.Index,
				"source_id", o.Record.SourceID, "member has no canonical entity"))
			continue
		}
		t, err := period.Parse(o.Record.Period, a.opts.Granularity)
		if err != nil {
			dataErrs = append(dataErrs, errors.AsDataError(o.Record.Source, o.Index, err))
			continue
		}
		groups[id] = append(groups[id], bucketed{obs: o, period: t})
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([][]Point, len(ids))
	spanErrs := make([][]*errors.DataError, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.WrapCanceled("assembler", err)
			}
			results[i], spanErrs[i] = a.assembleEntity(id, groups[id])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.WrapCanceled("assembler", err)
	}

	var points []Point
	for i := range ids {
		points = append(points, results[i]...)
		dataErrs = append(dataErrs, spanErrs[i]...)
	}
	return points, dataErrs, nil
}

// assembleEntity builds one entity's series. Observations are in input
// order, which the Last policy relies on. When the span exceeds MaxPeriods
// the latest periods are kept and every observation before the cut is
// reported.
func (a *Assembler) assembleEntity(id string, obs []bucketed) ([]Point, []*errors.DataError) {
	first, last := obs[0].period, obs[0].period
	for _, b := range obs {
		if b.period.Before(first) {
			first = b.period
		}
		if b.period.After(last) {
			last = b.period
		}
	}

	axis, _ := period.Range(first, last, a.opts.Granularity, a.opts.MaxPeriods)
	start := axis[0]

	var dropped []*errors.DataError
	buckets := make(map[time.Time]*accumulator)
	for _, b := range obs {
		if b.period.Before(start) {
			dropped = append(dropped, errors.NewDataError(b.obs.Record.Source, b.obs.Index, "period",
				b.obs.Record.Period,
				fmt.Sprintf("series for %s spans more than %d periods; observation before %s dropped",
					id, a.opts.MaxPeriods, period.Format(start, a.opts.Granularity))))
			continue
		}
		acc, ok := buckets[b.period]
		if !ok {
			acc = &accumulator{}
			buckets[b.period] = acc
		}
		acc.add(b.obs.Record.Quantity)
	}

	points := make([]Point, 0, len(axis))
	for _, t := range axis {
		if acc, ok := buckets[t]; ok {
			points = append(points, Point{CanonicalID: id, Period: t, Value: acc.value(a.opts.Policy)})
			continue
		}
		points = append(points, Point{CanonicalID: id, Period: t, Value: constants.ImputedValue, Imputed: true})
	}
	return points, dropped
}
