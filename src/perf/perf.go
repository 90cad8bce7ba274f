package perf

import (
	"time"
)

// Records how long the parts of a single request took. One of these is made
// per request and carried on the request's context; see ExtractPerf.
type RequestPerf struct {
	Route  string
	Path   string // the path actually matched
	Method string
	Start  time.Time
	End    time.Time
	Blocks []PerfBlock
}

type PerfBlock struct {
	Start       time.Time
	End         time.Time
	Category    string
	Description string
}

// A handle to an in-progress block, so nested blocks can end out of order.
type BlockHandle struct {
	perf *RequestPerf
	idx  int
}

const PerfContextKey = "__gazettePerf"

type hasValue interface {
	Value(key any) any
}

// Pulls the RequestPerf out of a context. Returns nil if the context has
// none; all RequestPerf methods tolerate a nil receiver, so callers never
// need to check.
func ExtractPerf(ctx hasValue) *RequestPerf {
	perf, _ := ctx.Value(PerfContextKey).(*RequestPerf)
	return perf
}

func MakeNewRequestPerf(route string, method string, path string) *RequestPerf {
	return &RequestPerf{
		Start:  time.Now(),
		Route:  route,
		Path:   path,
		Method: method,
	}
}

func (rp *RequestPerf) StartBlock(category, description string) *BlockHandle {
	if rp == nil {
		return nil
	}

	rp.Blocks = append(rp.Blocks, PerfBlock{
		Start:       time.Now(),
		Category:    category,
		Description: description,
	})
	return &BlockHandle{perf: rp, idx: len(rp.Blocks) - 1}
}

func (bh *BlockHandle) End() {
	if bh == nil {
		return
	}
	block := &bh.perf.Blocks[bh.idx]
	if block.End.IsZero() {
		block.End = time.Now()
	}
}

func (rp *RequestPerf) EndRequest() {
	if rp == nil {
		return
	}
	now := time.Now()
	for i := range rp.Blocks {
		if rp.Blocks[i].End.IsZero() {
			rp.Blocks[i].End = now
		}
	}
	rp.End = now
}

func (rp *RequestPerf) MsFromStart(block *PerfBlock) float64 {
	return float64(block.Start.Sub(rp.Start).Nanoseconds()) / 1000 / 1000
}

func (pb *PerfBlock) Duration() time.Duration {
	return pb.End.Sub(pb.Start)
}

func (pb *PerfBlock) DurationMs() float64 {
	return float64(pb.Duration().Nanoseconds()) / 1000 / 1000
}
