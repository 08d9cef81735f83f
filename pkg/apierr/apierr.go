// Пакет apierr — ошибки с HTTP-статусом, общие для сервера и клиента API.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericMessage — сообщение для ошибок, детали которых не отдаются наружу.
const GenericMessage = "Something went wrong"

var (
	// ErrSessionExpired — сервер ответил 401; обрабатывается глобально сбросом клиентского состояния.
	ErrSessionExpired = errors.New("session expired")
	// ErrSomethingWentWrong — транспортная ошибка или тело ошибки не удалось разобрать.
	ErrSomethingWentWrong = errors.New(GenericMessage)
)

// Коды ошибок в теле ответа. Статус 404 общий для «нет записи» и сбоя
// хранилища, различает их только код.
const (
	CodeNotFound    = "not_found"
	CodeQueryFailed = "query_failed"
)

// Error — ошибка со статусом и сообщением для клиента.
type Error struct {
	Status  int
	Message string
	Code    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New — ошибка со статусом.
func New(status int, msg string) *Error {
	return &Error{Status: status, Message: msg}
}

// Wrap — ошибка со статусом поверх причины (причина в ответ не попадает).
func Wrap(status int, msg string, err error) *Error {
	return &Error{Status: status, Message: msg, Err: err}
}

// QueryFailed — сбой хранилища при выполнении запроса.
// Статус 404, как у «нет записи»; отличает их код CodeQueryFailed.
func QueryFailed(msg string, err error) *Error {
	return &Error{Status: http.StatusNotFound, Message: msg, Code: CodeQueryFailed, Err: err}
}

// NotFound — записи нет; единственная 404, которую клиент считает пустым результатом.
func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Message: msg, Code: CodeNotFound}
}

func BadRequest(msg string) *Error { return New(http.StatusBadRequest, msg) }

// Status — HTTP-статус ошибки; для нетипизированных — 500.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status > 0 {
		return e.Status
	}
	if errors.Is(err, ErrSessionExpired) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// Message — сообщение, безопасное для показа пользователю.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if errors.Is(err, ErrSessionExpired) {
		return ErrSessionExpired.Error()
	}
	return GenericMessage
}

// CodeOf — код ошибки; "" для ошибок без кода.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound — true только для «записи нет» (CodeNotFound).
// Прочие 404 (сбой хранилища, неизвестный маршрут) — ошибки.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}
