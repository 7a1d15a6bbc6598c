package usecase

import (
	"time"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

type noopMetrics struct{}

var _ ports.Metrics = noopMetrics{}

func (noopMetrics) ObserveBatch(int, time.Duration, map[domain.Classification]int) {}
func (noopMetrics) ObserveRun(string)                                             {}
func (noopMetrics) ObserveIngest(string, int)                                     {}

func metricsOrNoop(m ports.Metrics) ports.Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
