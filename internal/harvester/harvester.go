// Package harvester fans a chrome://-to-path registry crawl out across an
// in-process pool of goroutines (Harvest) and returns the results in the
// jobs' original order, so a caller can feed them to the core engine in a
// fixed, serialized order (spec.md §5). Client connects to NATS and sets up
// a JetStream work-queue stream; Harvest does not use it, and nothing in
// this package publishes or consumes jobs on that stream.
//
// Adapted in style from the teacher's internal/nats/client.go (JetStream
// wrapper) and internal/worker/pool.go (Worker interface, pool of typed
// workers) — rebuilt here around one job type (a harvest task) instead of
// the teacher's seven pipeline-stage worker types.
package harvester

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Job is one unit of harvest work: a host path (e.g. a chrome://
// registry entry) to resolve to a filesystem path and read.
type Job struct {
	ID       uuid.UUID
	HostPath string
}

// Result is what a Worker produces for one Job.
type Result struct {
	Job       Job
	LocalPath string
	Text      string
	Err       error
}

// Client wraps a NATS connection and JetStream context, mirroring the
// teacher's internal/nats.Client in shape and logging but scoped to the
// one stream/subject pair the harvester needs.
type Client struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewClient connects to the NATS server at url.
func NewClient(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("asyncify-harvester"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("disconnected from NATS")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}
	log.Info().Str("url", url).Msg("harvester connected to NATS")
	return &Client{nc: nc, js: js}, nil
}

// EnsureStream creates or updates the harvest work-queue stream.
func (c *Client) EnsureStream(ctx context.Context, streamName, subject string) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
		MaxAge:    time.Hour,
	})
	if err != nil {
		return fmt.Errorf("ensuring stream %s: %w", streamName, err)
	}
	return nil
}

// Close closes the underlying NATS connection.
func (c *Client) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}

// Fetch is what a Worker uses to turn a Job's host path into source text —
// the chrome://-to-path resolution itself is host-specific and supplied by
// the caller (a real registry lookup, or a fake in tests).
type Fetch func(ctx context.Context, hostPath string) (localPath, text string, err error)

// Harvest dispatches jobs across a small in-process pool of concurrent
// Fetch calls, then returns results reordered back to the jobs' original
// order — giving the caller a deterministic sequence to feed the engine's
// AppendSource, satisfying §5's ordering requirement even though the
// fetches themselves ran concurrently.
func Harvest(ctx context.Context, jobs []Job, concurrency int, fetch Fetch) []Result {
	if concurrency < 1 {
		concurrency = 1
	}

	type indexed struct {
		i int
		r Result
	}
	in := make(chan struct {
		i int
		j Job
	}, len(jobs))
	out := make(chan indexed, len(jobs))

	for i, j := range jobs {
		in <- struct {
			i int
			j Job
		}{i, j}
	}
	close(in)

	for w := 0; w < concurrency; w++ {
		go func() {
			for item := range in {
				local, text, err := fetch(ctx, item.j.HostPath)
				out <- indexed{i: item.i, r: Result{Job: item.j, LocalPath: local, Text: text, Err: err}}
			}
		}()
	}

	results := make([]Result, len(jobs))
	for range jobs {
		ix := <-out
		results[ix.i] = ix.r
	}
	return results
}
