package progress

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/time/rate"

	"github.com/hupe1980/haystack/internal/engine"
)

// DefaultInterval is the time between progress reports.
const DefaultInterval = 30 * time.Second

// Summarizer recomputes the summary from the record log.
type Summarizer func(ctx context.Context) error

// Config configures a Reporter.
type Config struct {
	// Interval gates reports by time. Zero uses DefaultInterval, negative
	// disables the time gate.
	Interval time.Duration

	// Bytes gates reports by scanned volume. Zero disables the byte gate.
	Bytes uint64

	// Summarize is called after every report and once at the end. Its
	// errors are logged and never stop the scan.
	Summarize Summarizer

	// MemoryUsage reports resident memory, usually ProcessRSS. Nil leaves
	// memory out of the report.
	MemoryUsage func(ctx context.Context) (uint64, error)

	Clock  func() time.Time
	Logger *slog.Logger
}

// Report is one progress measurement.
type Report struct {
	// Percent is the completed share from 0 to 100, or -1 if the input size
	// is unknown.
	Percent float64
	// Throughput is logical bytes per second.
	Throughput float64
	// ETA is the estimated remaining time, or -1 if unknown.
	ETA time.Duration
}

// Compute derives a Report from a scan state. Completion follows upstream
// bytes, which are compressed bytes for compressed inputs.
func Compute(s engine.State) Report {
	r := Report{Percent: -1, ETA: -1}
	if secs := s.Elapsed.Seconds(); secs > 0 {
		r.Throughput = float64(s.LogicalBytes) / secs
	}
	if s.UpstreamSize > 0 {
		done := min(float64(s.UpstreamBytes)/float64(s.UpstreamSize), 1)
		r.Percent = done * 100
		if s.UpstreamBytes > 0 {
			remaining := float64(s.UpstreamSize) - float64(s.UpstreamBytes)
			r.ETA = time.Duration(max(remaining, 0) / float64(s.UpstreamBytes) * float64(s.Elapsed))
		}
	}
	return r
}

// Reporter implements engine.Observer.
type Reporter struct {
	cfg       Config
	limiter   *rate.Limiter
	lastBytes uint64
	reports   int
}

// New creates a Reporter. The first time-gated report is due one interval
// after New returns.
func New(cfg Config) *Reporter {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	r := &Reporter{cfg: cfg}
	if cfg.Interval > 0 {
		r.limiter = rate.NewLimiter(rate.Every(cfg.Interval), 1)
		r.limiter.AllowN(cfg.Clock(), 1)
	}
	return r
}

// ProcessRSS returns the resident set size of the current process.
func ProcessRSS(ctx context.Context) (uint64, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())) //nolint:gosec // pids fit in int32
	if err != nil {
		return 0, err
	}
	mi, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return mi.RSS, nil
}

// Reports returns how many progress reports were emitted.
func (r *Reporter) Reports() int { return r.reports }

func (r *Reporter) due(s engine.State) bool {
	if r.cfg.Bytes > 0 && s.LogicalBytes-r.lastBytes >= r.cfg.Bytes {
		return true
	}
	return r.limiter != nil && r.limiter.AllowN(r.cfg.Clock(), 1)
}

// Observe emits a report when one is due.
func (r *Reporter) Observe(ctx context.Context, s engine.State) {
	if !r.due(s) {
		return
	}
	r.lastBytes = s.LogicalBytes
	r.reports++

	rep := Compute(s)
	attrs := []any{
		"bytes", humanize.IBytes(s.LogicalBytes),
		"chunk", s.Chunks,
		"throughput", humanize.IBytes(uint64(rep.Throughput)) + "/s",
		"matches", s.Matches,
	}
	if rep.Percent >= 0 {
		attrs = append(attrs, "percent", humanize.FtoaWithDigits(rep.Percent, 2))
	}
	if rep.ETA >= 0 {
		attrs = append(attrs, "eta", rep.ETA.Round(time.Second).String())
	}
	if r.cfg.MemoryUsage != nil {
		if rss, err := r.cfg.MemoryUsage(ctx); err == nil {
			attrs = append(attrs, "rss", humanize.IBytes(rss))
		}
	}
	r.cfg.Logger.Info("progress", attrs...)

	r.summarize(ctx)
}

// Done logs the final line and refreshes the summary once more.
func (r *Reporter) Done(ctx context.Context, s engine.State) {
	rep := Compute(s)
	r.cfg.Logger.Info("scan finished",
		"elapsed", s.Elapsed.Round(time.Millisecond).String(),
		"bytes", humanize.IBytes(s.LogicalBytes),
		"throughput_mib_s", humanize.FtoaWithDigits(rep.Throughput/(1<<20), 2),
		"matches", s.Matches,
		"duplicates", s.Duplicates,
		"chunks", s.Chunks,
		"skipped_chunks", s.SkippedChunks)

	r.summarize(ctx)
}

func (r *Reporter) summarize(ctx context.Context) {
	if r.cfg.Summarize == nil {
		return
	}
	if err := r.cfg.Summarize(ctx); err != nil {
		r.cfg.Logger.Warn("summary failed", "error", err)
	}
}
