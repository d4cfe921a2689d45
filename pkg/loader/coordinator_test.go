package loader

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	redisdriver "github.com/sirilvk/exl-loader/pkg/drivers/redis"
	"github.com/sirilvk/exl-loader/pkg/exl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_Run(t *testing.T) {
	cache, mr := setupCache(t)
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		writeFile(t, dir, fmt.Sprintf("doc%d.exl", i), buildDoc(fmt.Sprintf("TPL_%d", i), rics(fmt.Sprintf("D%d_", i), i)...))
	}

	c := NewCoordinator(dir, cache, WithWorkers(2))
	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 5, summary.Files)
	assert.Equal(t, 2, summary.Shards)
	assert.Equal(t, 15, summary.Records)
	assert.Equal(t, 0, summary.Failed)
	assert.False(t, summary.Interrupted)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, 3, summary.Results[0].Files)
	assert.Equal(t, 2, summary.Results[1].Files)
	assert.Equal(t, summary.Records, summary.Results[0].Subtotal+summary.Results[1].Subtotal)

	primary, err := mr.HKeys(redisdriver.DefaultPrimaryHash)
	require.NoError(t, err)
	assert.Len(t, primary, summary.Records)

	templates, err := mr.HKeys(redisdriver.DefaultTemplateHash)
	require.NoError(t, err)
	assert.Len(t, templates, 5)
}

func TestCoordinator_IsolatesFailures(t *testing.T) {
	cache, mr := setupCache(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.exl", buildDoc("TPL_A", rics("A", 3)...))
	writeFile(t, dir, "b.exl", "<exl><name>broken")
	writeFile(t, dir, "c.exl", `<exl><name>TPL_C</name><exlHeader/></exl>`)
	writeFile(t, dir, "d.exl", buildDoc("TPL_D", rics("D", 2)...))

	summary, err := NewCoordinator(dir, cache, WithWorkers(1)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Files)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 5, summary.Records)

	// The document without instruments still has its template stored.
	assert.True(t, mr.Exists(redisdriver.DefaultTemplateHash))
	assert.Equal(t, "null", mr.HGet(redisdriver.DefaultTemplateHash, "TPL_C"))

	primary, err := mr.HKeys(redisdriver.DefaultPrimaryHash)
	require.NoError(t, err)
	assert.Len(t, primary, summary.Records)
}

func TestCoordinator_PartialFileCountsTowardTotal(t *testing.T) {
	all := rics("P", 4)
	cache := &fakeCache{failRIC: all[3]}
	dir := t.TempDir()
	writeFile(t, dir, "a.exl", buildDoc("TPL_A", all...))
	writeFile(t, dir, "b.exl", buildDoc("TPL_B", rics("Q", 2)...))

	summary, err := NewCoordinator(dir, cache, WithWorkers(2)).Run(context.Background())
	require.NoError(t, err)

	_, _, written := cache.snapshot()
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 5, summary.Records)
	assert.Len(t, written, summary.Records)
}

func TestCoordinator_MoreWorkersThanFiles(t *testing.T) {
	cache := &fakeCache{}
	dir := t.TempDir()
	for i := range 3 {
		writeFile(t, dir, fmt.Sprintf("doc%d.exl", i), buildDoc("TPL", fmt.Sprintf("R%d.L", i)))
	}

	summary, err := NewCoordinator(dir, cache).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Shards)
	assert.Len(t, summary.Results, 3)
	assert.Equal(t, 3, summary.Records)
}

func TestCoordinator_EmptyDirectory(t *testing.T) {
	summary, err := NewCoordinator(t.TempDir(), &fakeCache{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Files)
	assert.Equal(t, 0, summary.Shards)
	assert.Equal(t, 0, summary.Records)
	assert.Empty(t, summary.Results)
}

func TestCoordinator_ConfigurationErrors(t *testing.T) {
	_, err := NewCoordinator(t.TempDir(), &fakeCache{}, WithWorkers(0)).Run(context.Background())
	assert.Equal(t, exl.ErrorCodeConfiguration, exl.CodeOf(err))

	_, err = NewCoordinator(t.TempDir()+"/missing", &fakeCache{}).Run(context.Background())
	assert.Equal(t, exl.ErrorCodeConfiguration, exl.CodeOf(err))
}

func TestCoordinator_CancelBeforeRun(t *testing.T) {
	cache := &fakeCache{}
	dir := t.TempDir()
	writeFile(t, dir, "a.exl", buildDoc("TPL_A", "A.L"))

	c := NewCoordinator(dir, cache)
	c.Cancel()

	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.Files)
	assert.Equal(t, 0, summary.Records)

	templates, _, _ := cache.snapshot()
	assert.Empty(t, templates)
}

func TestCoordinator_CancelDuringRun(t *testing.T) {
	cache := &fakeCache{}
	dir := t.TempDir()
	for i := range 4 {
		writeFile(t, dir, fmt.Sprintf("doc%d.exl", i), buildDoc(fmt.Sprintf("TPL_%d", i), rics(fmt.Sprintf("C%d_", i), 10)...))
	}

	c := NewCoordinator(dir, cache, WithWorkers(1))
	var once sync.Once
	cache.onTemplate = func() { once.Do(c.Cancel) }

	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	// The in-flight file finishes all of its writes; the rest of the shard is skipped.
	templates, attempted, written := cache.snapshot()
	assert.Equal(t, []string{"TPL_0"}, templates)
	assert.Len(t, attempted, 10)
	assert.Len(t, written, 10)

	assert.True(t, summary.Interrupted)
	assert.Equal(t, 10, summary.Records)
	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].Stopped)
	assert.Equal(t, 1, summary.Results[0].Files)
	assert.Equal(t, 0, summary.Results[0].Failures)
}

func TestCoordinator_ParentContextCancel(t *testing.T) {
	cache := &fakeCache{}
	dir := t.TempDir()
	writeFile(t, dir, "a.exl", buildDoc("TPL_A", "A.L"))
	writeFile(t, dir, "b.exl", buildDoc("TPL_B", "B.L"))

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	cache.onTemplate = func() { once.Do(cancel) }

	summary, err := NewCoordinator(dir, cache, WithWorkers(1)).Run(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.Records)
}

func TestCoordinator_Metrics(t *testing.T) {
	cache := &fakeCache{}
	dir := t.TempDir()
	writeFile(t, dir, "a.exl", buildDoc("TPL_A", rics("A", 2)...))
	writeFile(t, dir, "b.exl", buildDoc("TPL_B", rics("B", 3)...))
	writeFile(t, dir, "c.exl", "not xml")

	pmc := NewPrometheusMetricsCollector("test")
	summary, err := NewCoordinator(dir, cache, WithWorkers(3), WithMetricsCollector(pmc)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(summary.Records), testutil.ToFloat64(pmc.runInstruments))
	assert.Greater(t, testutil.ToFloat64(pmc.runDuration), 0.0)
	assert.Equal(t, 2.0, testutil.ToFloat64(pmc.instruments.WithLabelValues("0")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pmc.instruments.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pmc.filesProcessed.WithLabelValues("2", "parse_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pmc.shardFiles.WithLabelValues("2")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pmc.workerStopped))
}

func TestCoordinator_SlowCacheDoesNotBlockCancel(t *testing.T) {
	cache := &fakeCache{}
	dir := t.TempDir()
	for i := range 3 {
		writeFile(t, dir, fmt.Sprintf("doc%d.exl", i), buildDoc("TPL", fmt.Sprintf("S%d.L", i)))
	}

	c := NewCoordinator(dir, cache, WithWorkers(1))
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	cache.onTemplate = func() {
		once.Do(func() {
			close(started)
			<-release
		})
	}

	done := make(chan *Summary)
	go func() {
		summary, _ := c.Run(context.Background())
		done <- summary
	}()

	<-started
	c.Cancel()
	close(release)

	select {
	case summary := <-done:
		assert.True(t, summary.Interrupted)
		assert.Equal(t, 1, summary.Records)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Cancel")
	}
}
