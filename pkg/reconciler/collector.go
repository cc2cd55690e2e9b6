package reconciler

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/retailsync/pkg/constants"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/logging"
	"github.com/agentstation/retailsync/pkg/matcher"
	"github.com/agentstation/retailsync/pkg/normalize"
	"github.com/agentstation/retailsync/pkg/records"
	"github.com/agentstation/retailsync/pkg/resolver"
	"github.com/agentstation/retailsync/pkg/series"
	"github.com/agentstation/retailsync/pkg/sources"
)

// fetched holds what was read from Source implementations before the
// pipeline ran: decode failures and sources that could not be read.
type fetched struct {
	errors   []*errors.DataError
	failures map[string]error
	rows     map[string]int
}

// fetch reads every source in ID order. A source that fails is recorded
// and skipped; cancellation aborts.
func fetch(ctx context.Context, srcs []sources.Source) (records.Batches, *fetched, error) {
	set := sources.NewSources(srcs...)

	batches := make(records.Batches, set.Len())
	out := &fetched{failures: make(map[string]error), rows: make(map[string]int)}

	for _, src := range set.List() {
		name := src.ID().String()
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.WrapCanceled("fetch", err)
		}

		logger := logging.FromContext(logging.WithSource(ctx, name))
		batch, err := src.Records(ctx)
		if err != nil {
			if errors.IsCanceled(err) {
				return nil, nil, err
			}
			logger.Warn().Err(err).Msg("Source could not be read; skipping")
			out.failures[name] = err
			continue
		}

		batches[name] = batch.Records
		out.rows[name] = len(batch.Errors)
		out.errors = append(out.errors, batch.Errors...)
		logger.Debug().
			Int("records", len(batch.Records)).
			Int("decode_errors", len(batch.Errors)).
			Msg("Fetched source")
	}
	return batches, out, nil
}

// collector encapsulates ingestion: it validates and normalizes records
// and gathers the members, keys and observations the later stages need.
type collector struct {
	keyed        map[string][]matcher.Keyed
	members      []resolver.Member
	seen         map[records.MemberID]struct{}
	observations []series.Observation
	errors       []*errors.DataError
	received     map[string]int
}

// newCollector creates a new collector.
func newCollector() *collector {
	return &collector{
		keyed:    make(map[string][]matcher.Keyed),
		seen:     make(map[records.MemberID]struct{}),
		received: make(map[string]int),
	}
}

// checkNames rejects source names that cannot form member ids.
func checkNames(batches records.Batches) error {
	for _, name := range batches.Names() {
		if strings.TrimSpace(name) == "" {
			return errors.NewConfigError("reconciler", "sources", "source name cannot be empty")
		}
		if strings.Contains(name, constants.MemberSeparator) {
			return errors.NewConfigError("reconciler", "sources",
				fmt.Sprintf("source name %q cannot contain %q", name, constants.MemberSeparator))
		}
	}
	return nil
}

// collect ingests every batch in source name order, checking for
// cancellation between sources.
func (c *collector) collect(ctx context.Context, batches records.Batches) error {
	for _, name := range batches.Names() {
		if err := ctx.Err(); err != nil {
			return errors.WrapCanceled("ingest", err)
		}
		failed := c.ingest(name, batches[name])
		if failed > 0 {
			logging.FromContext(logging.WithSource(ctx, name)).Warn().
				Int("failed", failed).
				Int("received", len(batches[name])).
				Msg("Source has records that failed validation")
		}
	}
	return nil
}

// ingest validates and normalizes one source and returns the number of
// records that failed.
func (c *collector) ingest(source string, recs []records.RawRecord) int {
	c.received[source] += len(recs)
	failed := 0

	for i, rec := range recs {
		rec.Source = source

		member, key, err := normalize.Record(source, rec)
		if err != nil {
			c.errors = append(c.errors, errors.AsDataError(source, i, err))
			failed++
			continue
		}

		if _, ok := c.seen[member]; !ok {
			c.seen[member] = struct{}{}
			c.members = append(c.members, resolver.Member{ID: member, Label: rec.Label, Key: key})
			c.keyed[source] = append(c.keyed[source], matcher.Keyed{Member: member, Key: key})
		}
		c.observations = append(c.observations, series.Observation{Member: member, Index: i, Record: rec})
	}
	return failed
}
