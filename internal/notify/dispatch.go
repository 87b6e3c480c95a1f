// Package notify owns the two notification dispatch queues. Login enqueues
// jobs here and returns; the workers deliver them in the background so a
// hung gateway call never blocks a request handler.
package notify

import (
	"context"
	"sync"

	"github.com/diagnosis/luxsuv-identity/internal/platform/mailer"
	"github.com/diagnosis/luxsuv-identity/internal/platform/sms"
	"github.com/diagnosis/luxsuv-identity/pkg/queue"
)

// QueueCapacity bounds each channel's backlog. Producers suspend when a
// queue is full rather than dropping jobs.
const QueueCapacity = 100

type SMSJob struct {
	To   string
	Body string
}

type EmailJob struct {
	To      string
	Subject string
	Body    string
}

// Dispatcher pairs one bounded queue with one worker per channel. The two
// channels share nothing; SMS and email deliveries for the same login are
// unordered relative to each other.
type Dispatcher struct {
	smsQueue    *queue.Queue[SMSJob]
	emailQueue  *queue.Queue[EmailJob]
	smsSender   sms.Sender
	emailSender mailer.Sender
	wg          sync.WaitGroup
}

func NewDispatcher(smsSender sms.Sender, emailSender mailer.Sender) *Dispatcher {
	return &Dispatcher{
		smsQueue:    queue.New[SMSJob]("sms", QueueCapacity),
		emailQueue:  queue.New[EmailJob]("email", QueueCapacity),
		smsSender:   smsSender,
		emailSender: emailSender,
	}
}

// Start launches both workers. Each runs until Shutdown closes its queue
// and the backlog is drained.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.smsQueue.Run(ctx, func(ctx context.Context, job SMSJob) error {
			return d.smsSender.Send(ctx, job.To, job.Body)
		})
	}()
	go func() {
		defer d.wg.Done()
		d.emailQueue.Run(ctx, func(ctx context.Context, job EmailJob) error {
			return d.emailSender.Send(ctx, job.To, job.Subject, job.Body)
		})
	}()
}

func (d *Dispatcher) EnqueueSMS(ctx context.Context, job SMSJob) error {
	return d.smsQueue.Enqueue(ctx, job)
}

func (d *Dispatcher) EnqueueEmail(ctx context.Context, job EmailJob) error {
	return d.emailQueue.Enqueue(ctx, job)
}

// Shutdown closes both queues and waits for in-flight deliveries to finish.
func (d *Dispatcher) Shutdown() {
	d.smsQueue.Close()
	d.emailQueue.Close()
	d.wg.Wait()
}
