package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"taskboard/domain"
)

// Journal records applied mutation events for downstream consumers. It is
// strictly best-effort: a journal failure never fails the mutation that
// produced the event.
type Journal interface {
	Append(ctx context.Context, ev domain.Event) error
}

// QueueJournal appends event envelopes to an Azure Queue.
type QueueJournal struct {
	queue *azqueue.QueueClient
}

// NewQueueJournal creates a journal writing to the named queue.
func NewQueueJournal(connStr, queueName string) (*QueueJournal, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, err
	}
	return &QueueJournal{queue: q}, nil
}

type journalEnvelope struct {
	Type    string `json:"type"`
	BoardID string `json:"boardId,omitempty"`
	Data    any    `json:"data"`
	Time    int64  `json:"time"`
}

func (j *QueueJournal) Append(ctx context.Context, ev domain.Event) error {
	env := journalEnvelope{
		Type:    ev.Name,
		BoardID: ev.BoardID,
		Data:    ev.Data,
		Time:    time.Now().UnixNano(),
	}
	data, err := sonic.Marshal(env)
	if err != nil {
		return err
	}
	_, err = j.queue.EnqueueMessage(ctx, string(data), nil)
	return err
}
