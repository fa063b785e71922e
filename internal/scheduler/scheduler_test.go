package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFlusher struct {
	calls atomic.Int32
	err   error
}

func (c *countingFlusher) Flush(context.Context) error { c.calls.Add(1); return c.err }
func (c *countingFlusher) IDs() []string               { return []string{"a", "b"} }

func TestAddJobValidatesSchedule(t *testing.T) {
	s := NewScheduler()
	err := s.AddJob(Job{Name: "bad", Schedule: "whenever", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
	assert.Error(t, s.AddJob(Job{Name: "norun", Schedule: "* * * * * *"}))

	require.NoError(t, s.AddJob(FlushJob("0 */5 * * * *", &countingFlusher{})))
	assert.Error(t, s.AddJob(FlushJob("0 */5 * * * *", &countingFlusher{})), "duplicate name")
	require.Len(t, s.ListJobs(), 1)
	assert.Equal(t, JobFlushSnapshots, s.ListJobs()[0].Name)
}

func TestRunJobRecordsResult(t *testing.T) {
	s := NewScheduler()
	f := &countingFlusher{}
	require.NoError(t, s.AddJob(FlushJob("0 0 * * * *", f)))

	res, err := s.RunJob(context.Background(), JobFlushSnapshots)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int32(1), f.calls.Load())

	f.err = errors.New("store down")
	res, err = s.RunJob(context.Background(), JobFlushSnapshots)
	assert.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "store down", res.Error)

	last, ok := s.LastResult(JobFlushSnapshots)
	require.True(t, ok)
	assert.False(t, last.Success)

	_, err = s.RunJob(context.Background(), "missing")
	assert.Error(t, err)
}

func TestStartRunsOnSchedule(t *testing.T) {
	s := NewScheduler()
	f := &countingFlusher{}
	require.NoError(t, s.AddJob(FlushJob("* * * * * *", f)))

	s.Start(context.Background())
	st := s.GetStatus()
	assert.True(t, st.Running)
	assert.Equal(t, 1, st.Jobs)
	assert.False(t, st.NextRun.IsZero())

	assert.Eventually(t, func() bool { return f.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.False(t, s.GetStatus().Running)
	assert.False(t, s.GetStatus().LastRun.IsZero())
}
