// metrics.go — метрики Prometheus бизнес-уровня.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// spacesAddedTotal — количество выставленных на рынок пространств.
	spacesAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp_spaces_added_total",
		Help: "Количество пространств, выставленных на рынок.",
	})

	// rentalsTotal — количество успешно созданных или продлённых аренд.
	rentalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp_rentals_total",
		Help: "Количество успешно созданных или продлённых аренд.",
	})

	// rentFailuresTotal — количество отклонённых аренд по причинам.
	rentFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mp_rent_failures_total",
		Help: "Количество отклонённых запросов аренды по причинам.",
	}, []string{"reason"})

	// uploadsTotal — количество зарегистрированных загрузок файлов.
	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp_uploads_total",
		Help: "Количество зарегистрированных загрузок файлов.",
	})

	// rentalsExpiredTotal — количество освобождённых истёкших аренд.
	rentalsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp_rentals_expired_total",
		Help: "Количество освобождённых истёкших аренд.",
	})

	// releaseClampsTotal — количество возвратов, обрезанных по границе
	// полной ёмкости пространства.
	releaseClampsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp_release_clamps_total",
		Help: "Количество возвратов места, обрезанных по границе ёмкости.",
	})

	// accountingViolationsTotal — количество нарушений учёта ёмкости.
	accountingViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp_accounting_violations_total",
		Help: "Количество нарушений учёта ёмкости (пространство заморожено).",
	})
)
