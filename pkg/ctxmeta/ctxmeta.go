// Пакет ctxmeta — нейтральный слой для работы с метаданными запроса,
// которые прокидываются через context.Context (request_id, principal, trace_id).
// HTTP-слой, клиент API и логгер зависят от него, но не друг от друга.
package ctxmeta

import "context"

type ctxKey string

const (
	// Ключи контекста (неэкспортируемый тип ключа исключает коллизии).
	KeyRequestID ctxKey = "request_id"
	KeyPrincipal ctxKey = "principal"
)

// WithRequestID кладёт request_id в контекст (если пусто — ничего не делает).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, KeyRequestID, requestID)
}

// RequestIDFromContext достаёт request_id из контекста.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, KeyRequestID)
}

// WithPrincipal кладёт идентификатор вошедшего пользователя.
// Сессии и аутентификация живут во внешнем слое; здесь только обратная ссылка по id.
func WithPrincipal(ctx context.Context, principalID string) context.Context {
	return withString(ctx, KeyPrincipal, principalID)
}

// PrincipalFromContext достаёт идентификатор пользователя.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, KeyPrincipal)
}

func withString(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil || v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func stringFrom(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
