// errors.go
// Таксономия ошибок перебора: ошибки конфигурации фатальны только для
// одной комбинации, нехватка данных — пропуск с предупреждением, ошибки
// симуляции — пропуск с логом, тикерные ошибки прерывают только свой тикер.
package internal

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError — неизвестный тип стратегии или некорректный порядок
// параметров. Комбинация отбрасывается, соседние продолжают выполняться.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func NewConfigurationErrorf(format string, args ...any) error {
	return errors.WithStack(&ConfigurationError{Reason: fmt.Sprintf(format, args...)})
}

// InsufficientDataError — серия короче требуемого lookback.
type InsufficientDataError struct {
	Need int
	Have int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need %d bars, have %d", e.Need, e.Have)
}

func NewInsufficientDataError(need, have int) error {
	return errors.WithStack(&InsufficientDataError{Need: need, Have: have})
}

// SimulationError — сбой симулятора для одной комбинации. Несёт контекст
// тикера и параметров для лога, наружу из оркестратора не выходит.
type SimulationError struct {
	Ticker string
	Params string
	Err    error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed for %s %s: %v", e.Ticker, e.Params, e.Err)
}

func (e *SimulationError) Unwrap() error { return e.Err }

// TickerError — сбой уровня тикера (нет данных и т.п.). Прерывает только
// свой тикер и попадает в отчёт как структурированная запись.
type TickerError struct {
	Ticker string
	Err    error
}

func (e *TickerError) Error() string {
	return fmt.Sprintf("ticker %s: %v", e.Ticker, e.Err)
}

func (e *TickerError) Unwrap() error { return e.Err }

// IsConfiguration / IsInsufficientData — проверки для цикла оркестратора.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsInsufficientData(err error) bool {
	var ie *InsufficientDataError
	return errors.As(err, &ie)
}
