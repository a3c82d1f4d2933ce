package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"recycle-fleet-backend/internal/logs"
	"recycle-fleet-backend/internal/model"
	"recycle-fleet-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers delivering ticket-assignment
// notifications to technicians' browsers.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size), // Buffered channel
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logs.Logger.Debugf("notification worker %d started", id)
	for {
		select {
		case ticketID := <-wp.jobs:
			wp.notifyAssignee(ctx, ticketID)
		case <-ctx.Done():
			logs.Logger.Debugf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a ticket for assignee notification. It satisfies
// ticket.Notifier.
func (wp *WorkerPool) Dispatch(ticketID int64) {
	wp.jobs <- ticketID
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

// notifyAssignee fetches the ticket and pushes a notification to every
// subscription of its assignee.
func (wp *WorkerPool) notifyAssignee(ctx context.Context, ticketID int64) {
	var ticket model.MaintenanceTicket
	if err := wp.store.DB().WithContext(ctx).First(&ticket, ticketID).Error; err != nil {
		logs.Logger.WithField("ticket_id", ticketID).WithError(err).Error("could not load ticket for notification")
		return
	}
	if ticket.AssigneeID == nil {
		return
	}

	subscriptions, err := wp.store.SubscriptionsForTechnician(ctx, *ticket.AssigneeID)
	if err != nil {
		logs.Logger.WithField("technician", *ticket.AssigneeID).WithError(err).Error("could not load subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	message := fmt.Sprintf("Ticket %s assigned to you: %s at unit %s", ticket.Number, ticket.Category, ticket.UnitID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		logs.Logger.WithField("endpoint", sub.Endpoint).WithError(err).Error("could not send notification")
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		logs.Logger.WithField("endpoint", sub.Endpoint).Info("subscription expired, deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			logs.Logger.WithField("endpoint", sub.Endpoint).WithError(err).Error("failed to delete expired subscription")
		}
	}
}
