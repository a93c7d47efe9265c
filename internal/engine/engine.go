package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/haystack/internal/automaton"
	"github.com/hupe1980/haystack/internal/source"
	"github.com/hupe1980/haystack/needle"
	"github.com/hupe1980/haystack/record"
)

// Config configures an Engine. Only Needles is required.
type Config struct {
	Needles *needle.Set
	Sink    Sink

	Logger   *slog.Logger
	Metrics  Metrics
	Observer Observer

	// Clock stamps matches. Defaults to time.Now.
	Clock func() time.Time

	// UniformSkip skips the automaton for chunks of one repeated byte.
	UniformSkip bool

	// RetainEvents caps the matches kept in Result.Events. Negative keeps
	// all of them.
	RetainEvents int

	// StrictRecords makes a failed record append abort the scan.
	StrictRecords bool
}

// Engine scans sources for a compiled needle set. An Engine runs one scan at
// a time.
type Engine struct {
	cfg     Config
	auto    *automaton.Automaton
	uniform uniformIndex
	dedup   *dedup
}

// New compiles the needle set.
func New(cfg Config) (*Engine, error) {
	if cfg.Needles == nil {
		return nil, Startup("build automaton", ErrNoNeedles)
	}
	auto, err := automaton.Build(cfg.Needles.Patterns())
	if err != nil {
		return nil, Startup("build automaton", err)
	}

	if cfg.Sink == nil {
		cfg.Sink = DiscardSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Engine{
		cfg:     cfg,
		auto:    auto,
		uniform: newUniformIndex(cfg.Needles),
		dedup:   newDedup(cfg.Needles.Len()),
	}, nil
}

// States returns the size of the compiled automaton.
func (e *Engine) States() int { return e.auto.States() }

// CheckCarry validates a carry-forward length for set. A carry shorter than
// the largest before-context is allowed but truncates context windows near
// chunk starts; it is reported through logger.
func CheckCarry(set *needle.Set, carry int, logger *slog.Logger) error {
	if carry < set.MinCarry() {
		return Startup("check carry", fmt.Errorf("%w: carry %d, longest needle %d bytes",
			ErrCarryTooSmall, carry, set.MaxPatternLen()))
	}
	if uint64(carry) < set.MaxContextBefore() && logger != nil {
		logger.Warn("carry shorter than before-context; context near chunk starts is truncated",
			"carry", carry,
			"before", set.MaxContextBefore())
	}
	return nil
}

// Run scans src to the end. On a fatal error the partial result is returned
// together with the error.
func (e *Engine) Run(ctx context.Context, src source.Source) (*Result, error) {
	if !src.RandomAccess() {
		if err := CheckCarry(e.cfg.Needles, src.CarryLen(), e.cfg.Logger); err != nil {
			return nil, err
		}
	}

	s := &scan{
		Engine: e,
		ctx:    ctx,
		src:    src,
		res: &Result{
			PerNeedle: make([]uint64, e.cfg.Needles.Len()),
		},
	}
	s.res.Started = e.cfg.Clock()
	s.res.UpstreamSize = src.UpstreamSize()
	e.dedup.reset()

	err := s.loop()
	s.snapshot()
	e.cfg.Observer.Done(ctx, s.res.State)
	return s.res, err
}

// scan holds the per-run state of Engine.Run.
type scan struct {
	*Engine
	ctx   context.Context
	src   source.Source
	res   *Result
	chunk *source.Chunk
	tail  uint64 // offsets at or after tail are remembered for dedup
}

func (s *scan) loop() error {
	for {
		c, err := s.src.Next(s.ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			s.cfg.Metrics.RecordFailure(KindRuntime, err)
			return Runtime("read chunk", err)
		}

		began := time.Now()
		skipped, err := s.scanChunk(c)
		s.cfg.Metrics.RecordChunk(len(c.Data), time.Since(began), skipped)
		if err != nil {
			return err
		}

		s.snapshot()
		s.cfg.Observer.Observe(s.ctx, s.res.State)
	}
}

func (s *scan) snapshot() {
	s.res.LogicalBytes = s.src.LogicalBytes()
	s.res.UpstreamBytes = s.src.UpstreamBytes()
	s.res.PartialReads = s.src.PartialReads()
	s.res.Elapsed = s.cfg.Clock().Sub(s.res.Started)
}

func (s *scan) scanChunk(c *source.Chunk) (bool, error) {
	s.chunk = c
	s.res.Chunks++
	s.dedup.rotate()

	s.tail = c.End()
	if k := uint64(s.src.CarryLen()); !s.src.RandomAccess() && k > 0 {
		s.tail -= min(k, uint64(len(c.Data)))
	}

	s.cfg.Logger.Debug("scanning chunk",
		"chunk", c.Seq,
		"start", c.Start,
		"bytes", len(c.Data),
		"carry", c.Carry,
		"final", c.Final)

	var err error
	if s.cfg.UniformSkip {
		if b, ok := uniformByte(c.Data); ok {
			s.res.SkippedChunks++
			s.scanUniform(b, func(h automaton.Hit) bool {
				err = s.hit(h)
				return err == nil
			})
			return true, err
		}
	}

	s.auto.Scan(c.Data, func(h automaton.Hit) bool {
		err = s.hit(h)
		return err == nil
	})
	return false, err
}

// scanUniform reports the needles made only of b at every position of a
// chunk consisting of b, in the same order the automaton would.
func (s *scan) scanUniform(b byte, fn func(automaton.Hit) bool) {
	ids := s.uniform[b]
	if len(ids) == 0 {
		return
	}
	n := len(s.chunk.Data)
	for pos := 0; pos < n; pos++ {
		for _, id := range ids {
			if pos+s.auto.PatternLen(id) > n {
				continue
			}
			if !fn(automaton.Hit{Pattern: id, Start: pos}) {
				return
			}
		}
	}
}

func (s *scan) hit(h automaton.Hit) error {
	c := s.chunk
	off := c.Start + uint64(h.Start)

	dup := off < c.FreshStart() && s.dedup.seen(h.Pattern, off)
	if off >= s.tail {
		s.dedup.remember(h.Pattern, off)
	}
	if dup {
		s.res.Duplicates++
		return nil
	}

	return s.emit(h, off)
}

func (s *scan) emit(h automaton.Hit, off uint64) error {
	n := s.cfg.Needles.At(h.Pattern)
	winStart, window := contextWindow(s.chunk, off, len(n.Pattern), n.ContextBefore, n.ContextAfter)

	m := record.Match{
		NeedleID:    n.ID,
		Offset:      off,
		Value:       n.Pattern,
		ValueString: n.ValueString(),
		FoundAt:     s.cfg.Clock().UTC(),
		Context:     window,
		WindowStart: winStart,
	}

	if err := s.cfg.Sink.Emit(s.ctx, n, &m); err != nil {
		if err := s.failed(n, off, err); err != nil {
			return err
		}
	}

	s.res.Matches++
	s.res.PerNeedle[n.ID]++
	s.cfg.Metrics.RecordMatch(n.ID)

	s.cfg.Logger.Info("needle found",
		"needle", n.Name,
		"happiness", n.HappinessString(),
		"offset", "0x"+record.FormatOffset(off, record.OffsetWidth),
		"value", m.ValueString,
		"context_file", m.ContextPath)

	if s.cfg.RetainEvents < 0 || len(s.res.Events) < s.cfg.RetainEvents {
		m.Context = nil
		s.res.Events = append(s.res.Events, m)
	} else {
		s.res.EventsTruncated = true
	}
	return nil
}

// failed classifies a Sink error. Context write failures are logged and
// counted; record append failures too unless records are strict. Anything
// else is fatal.
func (s *scan) failed(n *needle.Needle, off uint64, err error) error {
	ctxFail := errors.Is(err, ErrContextWrite)
	recFail := errors.Is(err, ErrRecordAppend)
	if (!ctxFail && !recFail) || (recFail && s.cfg.StrictRecords) {
		s.cfg.Metrics.RecordFailure(KindRuntime, err)
		return Runtime("emit match", err)
	}

	hexOff := "0x" + record.FormatOffset(off, record.OffsetWidth)
	if ctxFail {
		s.res.ContextFailures++
		s.cfg.Metrics.RecordFailure(KindRecoverable, err)
		s.cfg.Logger.Error("context write failed",
			"needle", n.Name,
			"offset", hexOff,
			"error", err)
	}
	if recFail {
		s.res.RecordFailures++
		s.cfg.Metrics.RecordFailure(KindRecoverable, err)
		s.cfg.Logger.Warn("record append failed; continuing",
			"needle", n.Name,
			"offset", hexOff,
			"error", err)
	}
	return nil
}
