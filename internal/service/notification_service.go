package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"
	"tp_portal_backend/pkg/logger"
	"tp_portal_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type NotificationService struct {
	Store NotificationStore
	Bus   NotificationBus
}

func NewNotificationService(store NotificationStore, bus NotificationBus) *NotificationService {
	return &NotificationService{Store: store, Bus: bus}
}

// Notify stores a notification for recipientID and wakes its streams.
func (s *NotificationService) Notify(ctx context.Context, recipientID uint, title, message string, typ model.NotificationType) (*model.Notification, error) {
	n := &model.Notification{
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Type:        typ,
	}
	if err := s.Store.Create(ctx, n); err != nil {
		return nil, err
	}

	monitoring.NotificationsSent.WithLabelValues(string(typ)).Inc()
	s.Announce(ctx, recipientID)
	return n, nil
}

// Announce signals a change that was written outside Notify, e.g. inside
// another workflow's transaction.
func (s *NotificationService) Announce(ctx context.Context, recipientID uint) {
	if err := s.Bus.Publish(ctx, recipientID); err != nil {
		// streams catch up on their next wake-up
		logger.Log.Warn("Notification publish failed", zap.Uint("recipientId", recipientID), zap.Error(err))
	}
}

// ListUnread backs the notification center: unread only, newest first.
func (s *NotificationService) ListUnread(ctx context.Context, session model.Session) ([]model.Notification, error) {
	return s.Store.ListUnread(ctx, session.UserID)
}

func (s *NotificationService) MarkRead(ctx context.Context, session model.Session, id uint) error {
	if err := s.Store.MarkRead(ctx, id, session.UserID); err != nil {
		return notFoundAs(err, util.ErrNotificationNotFound)
	}
	s.Announce(ctx, session.UserID)
	return nil
}

// MarkShown records that a popup was displayed and closed.
func (s *NotificationService) MarkShown(ctx context.Context, session model.Session, id uint) error {
	if err := s.Store.MarkShown(ctx, id, session.UserID); err != nil {
		return notFoundAs(err, util.ErrNotificationNotFound)
	}
	s.Announce(ctx, session.UserID)
	return nil
}

// Popup is the notification to display as a blocking dialog, and how many
// more are waiting behind it.
type Popup struct {
	Notification model.Notification `json:"notification"`
	Remaining    int                `json:"remaining"`
}

// popupFrom picks the popup out of an unread list ordered newest first. Read
// notifications never qualify, whatever their shown flag.
func popupFrom(unread []model.Notification) *Popup {
	var head *model.Notification
	remaining := 0
	for i := range unread {
		n := unread[i]
		if n.Read || n.Shown {
			continue
		}
		if head == nil {
			head = &unread[i]
			continue
		}
		remaining++
	}
	if head == nil {
		return nil
	}
	return &Popup{Notification: *head, Remaining: remaining}
}

func (s *NotificationService) NextPopup(ctx context.Context, session model.Session) (*Popup, error) {
	unread, err := s.Store.ListUnread(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return popupFrom(unread), nil
}

// Snapshot is one element of a notification stream.
type Snapshot struct {
	Unread []model.Notification `json:"unread"`
	Popup  *Popup               `json:"popup"`
}

func (s *NotificationService) snapshot(ctx context.Context, recipientID uint) (*Snapshot, error) {
	unread, err := s.Store.ListUnread(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if unread == nil {
		unread = []model.Notification{}
	}
	return &Snapshot{Unread: unread, Popup: popupFrom(unread)}, nil
}

func fingerprint(snap *Snapshot) string {
	var b strings.Builder
	for _, n := range snap.Unread {
		b.WriteString(strconv.FormatUint(uint64(n.ID), 10))
		if n.Read {
			b.WriteByte('r')
		}
		if n.Shown {
			b.WriteByte('s')
		}
		b.WriteByte(',')
	}
	return b.String()
}

// Watch opens a stream of snapshots for recipientID. The subscription starts
// now; the first query runs on the first Next.
func (s *NotificationService) Watch(recipientID uint) *NotificationStream {
	signals, cancel := s.Bus.Subscribe(recipientID)
	return &NotificationStream{
		svc:         s,
		recipientID: recipientID,
		signals:     signals,
		cancel:      cancel,
	}
}

// NotificationStream is a lazy, unbounded and non-restartable sequence of
// snapshots. Consecutive identical snapshots are dropped, so a replayed
// signal never yields the same popup twice.
type NotificationStream struct {
	svc         *NotificationService
	recipientID uint
	signals     <-chan struct{}
	cancel      func()

	mu      sync.Mutex
	started bool
	closed  bool
	last    string
}

// Next blocks until the next distinct snapshot, ctx is done, or the stream
// is closed.
func (st *NotificationStream) Next(ctx context.Context) (*Snapshot, error) {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return nil, util.ErrStreamClosed
	}
	first := !st.started
	st.started = true
	st.mu.Unlock()

	if first {
		return st.emit(ctx, true)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case _, ok := <-st.signals:
			if !ok {
				st.markClosed()
				return nil, util.ErrStreamClosed
			}
			snap, err := st.emit(ctx, false)
			if err != nil {
				return nil, err
			}
			if snap != nil {
				return snap, nil
			}
		}
	}
}

func (st *NotificationStream) emit(ctx context.Context, force bool) (*Snapshot, error) {
	snap, err := st.svc.snapshot(ctx, st.recipientID)
	if err != nil {
		return nil, err
	}

	fp := fingerprint(snap)
	st.mu.Lock()
	defer st.mu.Unlock()
	if !force && fp == st.last {
		return nil, nil
	}
	st.last = fp
	return snap, nil
}

func (st *NotificationStream) markClosed() {
	st.mu.Lock()
	st.closed = true
	st.mu.Unlock()
}

// Close ends the stream. Later calls to Next return ErrStreamClosed.
func (st *NotificationStream) Close() {
	st.markClosed()
	st.cancel()
}

func notFoundAs(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
