package perf

import (
	"git.quillwiki.net/quill/gazette/src/jobs"
)

type PerfStorage struct {
	AllRequests []RequestPerf
}

// Collects RequestPerfs from all requests on a single goroutine. Snapshots
// of the storage can be requested, e.g. for the perf monitor admin route.
type PerfCollector struct {
	in          chan RequestPerf
	requestCopy chan chan<- PerfStorage
}

const maxStoredRequests = 1000

func RunPerfCollector() (*PerfCollector, *jobs.Job) {
	collector := &PerfCollector{
		in:          make(chan RequestPerf, 100),
		requestCopy: make(chan chan<- PerfStorage),
	}

	job := jobs.New("perf collector")
	go func() {
		defer job.Finish()

		var storage PerfStorage
		for {
			select {
			case perf := <-collector.in:
				storage.AllRequests = append(storage.AllRequests, perf)
				if len(storage.AllRequests) > maxStoredRequests {
					storage.AllRequests = storage.AllRequests[len(storage.AllRequests)-maxStoredRequests:]
				}
			case out := <-collector.requestCopy:
				copied := PerfStorage{
					AllRequests: make([]RequestPerf, len(storage.AllRequests)),
				}
				copy(copied.AllRequests, storage.AllRequests)
				out <- copied
			case <-job.Canceled():
				return
			}
		}
	}()

	return collector, job
}

func (c *PerfCollector) SubmitRun(perf *RequestPerf) {
	select {
	case c.in <- *perf:
	default:
		// Dropping perf data is better than blocking a request.
	}
}

func (c *PerfCollector) GetPerfCopy() PerfStorage {
	out := make(chan PerfStorage)
	c.requestCopy <- out
	return <-out
}
