package metrics

import "time"

// PoolObserver feeds browser pool lease events into the gauge and wait
// histogram. It satisfies the render pool's Observer interface.
type PoolObserver struct {
	m *Metrics
}

func (m *Metrics) PoolObserver() *PoolObserver {
	return &PoolObserver{m: m}
}

func (o *PoolObserver) ContextAcquired(wait time.Duration) {
	o.m.ContextsInUse.Inc()
	o.m.PoolWait.Observe(wait.Seconds())
}

func (o *PoolObserver) ContextReleased() {
	o.m.ContextsInUse.Dec()
}

// SweepObserver counts retention sweeps and pruned runs. It satisfies the
// sweeper's Observer interface.
type SweepObserver struct {
	m *Metrics
}

func (m *Metrics) SweepObserver() *SweepObserver {
	return &SweepObserver{m: m}
}

func (o *SweepObserver) SweepCompleted(pruned int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.m.SweepsTotal.WithLabelValues(outcome).Inc()
	o.m.RunsPruned.Add(float64(pruned))
}
