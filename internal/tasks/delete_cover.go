package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/kitaplik/internal/storage"
)

// ObjectDeleter removes a stored object. Missing objects are not an error.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// DeleteCoverTask removes one cover object from storage.
type DeleteCoverTask struct {
	Key string `json:"key"`
}

func (t DeleteCoverTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "delete_cover",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DeleteCoverProcessor creates the processor function for DeleteCoverTask.
func DeleteCoverProcessor(store ObjectDeleter) backlite.QueueProcessor[DeleteCoverTask] {
	return func(ctx context.Context, task DeleteCoverTask) error {
		if store == nil {
			return fmt.Errorf("cover storage not configured")
		}
		if task.Key == "" {
			return nil
		}

		err := store.Delete(ctx, task.Key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete cover %s: %w", task.Key, err)
		}

		log.Printf("[TASK] Deleted cover %s", task.Key)
		return nil
	}
}

// NewDeleteCoverQueue creates a backlite queue for cover deletions.
func NewDeleteCoverQueue(store ObjectDeleter) backlite.Queue {
	return backlite.NewQueue(DeleteCoverProcessor(store))
}

// Enqueuer schedules cover deletions on the task queue.
type Enqueuer struct {
	client *Client
}

func NewEnqueuer(client *Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueCoverDeletion(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := e.client.Add(DeleteCoverTask{Key: key}).Ctx(ctx).Save()
	if err != nil {
		return fmt.Errorf("failed to enqueue cover deletion: %w", err)
	}
	return nil
}
