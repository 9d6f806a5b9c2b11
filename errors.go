package docxtemplar

import (
	"errors"
	"fmt"
)

var (
	// ErrNotArchive — входные байты не являются zip-пакетом
	ErrNotArchive = errors.New("шаблон не является zip-архивом")
	// ErrPrimaryPartMissing — в пакете нет основной части документа
	ErrPrimaryPartMissing = errors.New("отсутствует основная часть документа")
	// ErrEmptyOutput — после упаковки получился пустой архив
	ErrEmptyOutput = errors.New("пустой выходной архив")
	// ErrInvalidConfig — конфигурация не прошла проверку
	ErrInvalidConfig = errors.New("некорректная конфигурация")
)

// PackageError описывает фатальную ошибку работы с архивом шаблона.
// Op — этап (open, read, write, verify), Part — имя части, если применимо.
type PackageError struct {
	Op   string
	Part string
	Err  error
}

func (e *PackageError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("пакет: %s %s: %v", e.Op, e.Part, e.Err)
	}
	return fmt.Sprintf("пакет: %s: %v", e.Op, e.Err)
}

func (e *PackageError) Unwrap() error { return e.Err }

// SpliceInvariantViolation — вхождение токена вышло за пределы проиндексированных узлов.
// Означает повреждённую или неожиданную структуру части; обработка прерывается.
type SpliceInvariantViolation struct {
	Part       string
	Identifier string
	FlatStart  int
	FlatEnd    int
	FlatLen    int
}

func (e *SpliceInvariantViolation) Error() string {
	return fmt.Sprintf("нарушение инварианта вставки в %q: {{%s}} [%d,%d) вне текста длины %d",
		e.Part, e.Identifier, e.FlatStart, e.FlatEnd, e.FlatLen)
}
