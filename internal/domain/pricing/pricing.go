// Пакет pricing — чистые функции расчёта стоимости аренды и проверки платежа.
// Без состояния и без обращений к хранилищу: расчёт изолирован от учёта
// ёмкости, чтобы ошибки переполнения не смешивались с мутациями ledger.
package pricing

import (
	"errors"
	"math/big"
)

// Ошибки проверки платежа.
var (
	// ErrInsufficientPayment — внесённая сумма меньше рассчитанной.
	ErrInsufficientPayment = errors.New("внесённая сумма меньше стоимости аренды")
	// ErrOverpayment — внесённая сумма больше рассчитанной.
	// Автоматический возврат переплаты на этом уровне не моделируется.
	ErrOverpayment = errors.New("внесённая сумма больше стоимости аренды")
)

// Quote возвращает стоимость аренды: pricePerGB × amountGB × durationDays.
// Произведение считается в math/big: при цене до 10^12 и множителях
// до 10^6 результат выходит за пределы uint64.
func Quote(pricePerGB, amountGB, durationDays int64) *big.Int {
	total := new(big.Int).SetInt64(pricePerGB)
	total.Mul(total, big.NewInt(amountGB))
	total.Mul(total, big.NewInt(durationDays))
	return total
}

// ValidatePayment сверяет внесённую сумму с рассчитанной.
// Политика точного совпадения: submitted должна равняться quoted.
func ValidatePayment(quoted, submitted *big.Int) error {
	switch submitted.Cmp(quoted) {
	case -1:
		return ErrInsufficientPayment
	case 1:
		return ErrOverpayment
	}
	return nil
}
