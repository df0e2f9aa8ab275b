package utils

import (
	"context"
	"sync"
	"time"
)

type HealthStatus int

const (
	StatusHealthy HealthStatus = iota
	StatusUnhealthy
	StatusUnknown
)

// HealthChecker runs checkFunc on an interval and caches the latest
// result. Start launches the loop; Stop terminates it.
type HealthChecker struct {
	checkFunc func(ctx context.Context) error
	interval  time.Duration
	timeout   time.Duration
	status    HealthStatus
	lastCheck time.Time
	mutex     sync.RWMutex
	stopChan  chan struct{}
	stopOnce  sync.Once
}

func CreateHealthChecker(checkFunc func(ctx context.Context) error, interval, timeout time.Duration) *HealthChecker {
	return &HealthChecker{
		checkFunc: checkFunc,
		interval:  interval,
		timeout:   timeout,
		status:    StatusUnknown,
		stopChan:  make(chan struct{}),
	}
}

func (hc *HealthChecker) Start() {
	go hc.run()
}

func (hc *HealthChecker) Stop() {
	hc.stopOnce.Do(func() {
		close(hc.stopChan)
	})
}

func (hc *HealthChecker) run() {
	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	hc.performCheck()

	for {
		select {
		case <-ticker.C:
			hc.performCheck()
		case <-hc.stopChan:
			return
		}
	}
}

func (hc *HealthChecker) performCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), hc.timeout)
	defer cancel()

	err := hc.checkFunc(ctx)

	hc.mutex.Lock()
	defer hc.mutex.Unlock()

	hc.lastCheck = time.Now()
	if err != nil {
		hc.status = StatusUnhealthy
	} else {
		hc.status = StatusHealthy
	}
}

func (hc *HealthChecker) Status() HealthStatus {
	hc.mutex.RLock()
	defer hc.mutex.RUnlock()
	return hc.status
}
