// events.go — SSE endpoint уведомлений маркетплейса.
// Каждый SSE-клиент обслуживается собственной подпиской на шину;
// события доставляются в порядке фиксации записей.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bigkaa/rentstore/internal/events"
)

// sseEvent — сериализованное событие для отправки клиенту.
type sseEvent struct {
	kind string
	data []byte
}

// StreamEvents обрабатывает GET /api/v1/events — SSE endpoint.
// Формат: event: storage.rented\ndata: {json}\n\n.
// Graceful disconnect при закрытии клиентом соединения (context cancel).
func (h *APIHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	// Настраиваем заголовки SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Отключаем буферизацию Nginx

	// Используем http.ResponseController для корректной работы Flush()
	// через обёрнутый ResponseWriter (logging middleware и др.).
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE не поддерживается", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	h.logger.Debug("SSE клиент подключён",
		slog.String("remote_addr", r.RemoteAddr),
	)

	// Буферизованный канал: шина публикует синхронно, медленный клиент
	// не должен блокировать операции маркетплейса. Переполнение буфера
	// приводит к потере события для этого клиента.
	ch := make(chan sseEvent, 64)
	unsubscribe := h.bus.SubscribeAll(func(e events.Event) {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return
		}
		select {
		case ch <- sseEvent{kind: string(e.Kind), data: data}:
		default:
			h.logger.Warn("SSE буфер переполнен, событие пропущено",
				slog.String("kind", string(e.Kind)),
				slog.String("remote_addr", r.RemoteAddr),
			)
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE клиент отключён",
				slog.String("remote_addr", r.RemoteAddr),
			)
			return
		case e := <-ch:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.kind, e.data)
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
