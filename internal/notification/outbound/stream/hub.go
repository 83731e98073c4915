// Package stream fans desktop notifications out to open browser sessions.
package stream

import (
	"context"
	"sync"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
)

const bufferSize = 10

type subscriber struct {
	ch chan entity.DesktopNotification
}

// Hub keeps the live subscriptions per user. The zero value is not usable; use NewHub.
type Hub struct {
	mu      sync.RWMutex
	streams map[int64]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{streams: make(map[int64]map[*subscriber]struct{})}
}

// Subscribe registers a stream for a user and closes it when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, userID int64) <-chan entity.DesktopNotification {
	sub := &subscriber{ch: make(chan entity.DesktopNotification, bufferSize)}

	h.mu.Lock()
	if h.streams[userID] == nil {
		h.streams[userID] = make(map[*subscriber]struct{})
	}
	h.streams[userID][sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()

		h.mu.Lock()
		if subs := h.streams[userID]; subs != nil {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.streams, userID)
			}
		}
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch
}

// Publish hands n to every open stream of the user without blocking and
// returns how many streams accepted it.
func (h *Hub) Publish(userID int64, n entity.DesktopNotification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.streams[userID] {
		select {
		case sub.ch <- n:
			delivered++
		default:
		}
	}

	return delivered
}

// Subscribers returns the number of open streams for the user.
func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.streams[userID])
}
