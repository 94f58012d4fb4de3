// Package metrics provides a thread-safe container for worker pool counters
// and timings. Each worker records into its own slot by id, user code can
// add arbitrary named counters on top.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Value is a struct that holds the metrics for a pool run.
type Value struct {
	startTime time.Time

	lock     sync.RWMutex
	workers  []workerStat
	userData map[string]int
}

// workerStat is a single worker's counters, indexed by worker id.
type workerStat struct {
	processed int
	panicked  int
	waitTime  time.Duration
	procTime  time.Duration
}

// Stats is an aggregated snapshot across all workers.
type Stats struct {
	Processed int           // jobs completed without panic
	Panicked  int           // jobs terminated by a contained panic
	WaitTime  time.Duration // total time workers spent idle waiting for jobs
	ProcTime  time.Duration // total time workers spent executing jobs
	Elapsed   time.Duration // wall time since the pool was created
}

// New makes a metrics container for the given number of workers.
func New(workers int) *Value {
	return &Value{
		startTime: time.Now(),
		workers:   make([]workerStat, workers),
		userData:  map[string]int{},
	}
}

// IncProcessed increments the processed count for the given worker.
func (m *Value) IncProcessed(id int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.workers[id].processed++
}

// IncPanicked increments the contained panic count for the given worker.
func (m *Value) IncPanicked(id int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.workers[id].panicked++
}

// AddWaitTime adds idle time for the given worker.
func (m *Value) AddWaitTime(id int, d time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.workers[id].waitTime += d
}

// AddProcTime adds execution time for the given worker.
func (m *Value) AddProcTime(id int, d time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.workers[id].procTime += d
}

// Stats returns combined stats from all workers.
func (m *Value) Stats() Stats {
	m.lock.RLock()
	defer m.lock.RUnlock()

	res := Stats{Elapsed: time.Since(m.startTime)}
	for _, w := range m.workers {
		res.Processed += w.processed
		res.Panicked += w.panicked
		res.WaitTime += w.waitTime
		res.ProcTime += w.procTime
	}
	return res
}

// Add increments value for a given key and returns the new value.
func (m *Value) Add(key string, delta int) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.userData[key] += delta
	return m.userData[key]
}

// Inc increments value for the given key by one.
func (m *Value) Inc(key string) int {
	return m.Add(key, 1)
}

// Set value for the given key.
func (m *Value) Set(key string, val int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.userData[key] = val
}

// Get returns value for the given key.
func (m *Value) Get(key string) int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.userData[key]
}

// String returns stats and sorted key:vals string representation of user metrics.
func (m *Value) String() string {
	stats := m.Stats()

	m.lock.RLock()
	defer m.lock.RUnlock()

	sortedKeys := func() (res []string) {
		for k := range m.userData {
			res = append(res, k)
		}
		sort.Strings(res)
		return res
	}()

	udata := make([]string, len(sortedKeys))
	for i, k := range sortedKeys {
		udata[i] = fmt.Sprintf("%s:%d", k, m.userData[k])
	}

	um := ""
	if len(udata) > 0 {
		um = fmt.Sprintf(" [%s]", strings.Join(udata, ", "))
	}
	return fmt.Sprintf("elapsed:%v, processed:%d, panicked:%d, wait:%v, proc:%v%s",
		stats.Elapsed.Round(time.Microsecond), stats.Processed, stats.Panicked,
		stats.WaitTime.Round(time.Microsecond), stats.ProcTime.Round(time.Microsecond), um)
}
