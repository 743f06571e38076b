package mapgen

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Метрики генерации. Регистрируются один раз в дефолтном регистре,
// как и HTTP-метрики middleware.
type generationMetrics struct {
	layerDuration *prometheus.HistogramVec
	cellsTotal    *prometheus.CounterVec
}

var (
	genMetrics     *generationMetrics
	genMetricsOnce sync.Once
)

func getGenerationMetrics() *generationMetrics {
	genMetricsOnce.Do(func() {
		genMetrics = &generationMetrics{
			layerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "worldgen",
				Name:      "layer_generation_seconds",
				Help:      "Длительность генерации одного слоя карты.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			}, []string{"layer"}),
			cellsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "worldgen",
				Name:      "cells_generated_total",
				Help:      "Общее число сгенерированных ячеек по слоям.",
			}, []string{"layer"}),
		}
		prometheus.MustRegister(genMetrics.layerDuration, genMetrics.cellsTotal)
	})
	return genMetrics
}
