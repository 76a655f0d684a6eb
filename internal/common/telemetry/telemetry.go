// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/Katral_insight/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	generationTotal     *expvar.Map
	generationRetries   *expvar.Map
	generationFailures  *expvar.Map
	generationLatencyMS *expvar.Map

	retrievalTotal     *expvar.Int
	retrievalCacheHits *expvar.Int
	retrievalLatencyMS *expvar.Int

	executionTotal    *expvar.Int
	executionRejected *expvar.Int
	executionFailed   *expvar.Int

	pipelineRuns *expvar.Map
)

func ensureInit() {
	initOnce.Do(func() {
		generationTotal = expvar.NewMap("insight_generation_total")
		generationRetries = expvar.NewMap("insight_generation_retries")
		generationFailures = expvar.NewMap("insight_generation_failures")
		generationLatencyMS = expvar.NewMap("insight_generation_latency_ms")

		retrievalTotal = expvar.NewInt("insight_retrieval_total")
		retrievalCacheHits = expvar.NewInt("insight_retrieval_cache_hits")
		retrievalLatencyMS = expvar.NewInt("insight_retrieval_latency_ms")

		executionTotal = expvar.NewInt("insight_execution_total")
		executionRejected = expvar.NewInt("insight_execution_rejected")
		executionFailed = expvar.NewInt("insight_execution_failed")

		pipelineRuns = expvar.NewMap("insight_pipeline_runs")
	})
}

// StartSpan marks the start of a named unit of work. The returned func logs
// the elapsed time together with any extra attributes.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...any)) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...any) {
		logger.Debug("trace: end", append([]any{"span", name, "dur", time.Since(sp.start)}, attrs...)...)
	}
}

// SpanDuration reports how long the innermost span on ctx has been running.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}

func RecordGeneration(provider string, duration time.Duration, err error) {
	ensureInit()
	key := normalizeKey(provider, "unknown")
	generationTotal.Add(key, 1)
	if err != nil {
		generationFailures.Add(key, 1)
	}
	if duration > 0 {
		generationLatencyMS.Add(key, duration.Milliseconds())
	}
}

func RecordGenerationRetry(provider string) {
	ensureInit()
	generationRetries.Add(normalizeKey(provider, "unknown"), 1)
}

func RecordRetrieval(cacheHit bool, duration time.Duration) {
	ensureInit()
	retrievalTotal.Add(1)
	if cacheHit {
		retrievalCacheHits.Add(1)
	}
	if duration > 0 {
		retrievalLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordExecution counts one executor call. rejected marks a read-only
// policy rejection, failed a backend error.
func RecordExecution(rejected, failed bool) {
	ensureInit()
	executionTotal.Add(1)
	switch {
	case rejected:
		executionRejected.Add(1)
	case failed:
		executionFailed.Add(1)
	}
}

func RecordPipelineRun(kind string) {
	ensureInit()
	pipelineRuns.Add(normalizeKey(kind, "data"), 1)
}

func normalizeKey(value, fallback string) string {
	key := strings.TrimSpace(strings.ToLower(value))
	if key == "" {
		return fallback
	}
	return key
}
