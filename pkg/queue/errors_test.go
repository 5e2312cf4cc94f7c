package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corvohq/perch/pkg/queue"
)

func TestNewBadTableName(t *testing.T) {
	db := openTestDB(t)

	_, err := queue.New(context.Background(), queue.Config{
		Table:     "bad name for queue",
		Timeout:   time.Minute,
		LookAhead: 1,
	}, db)
	if err == nil {
		t.Fatal("New with invalid table identifier did not fail")
	}
	if !queue.IsStorageFailure(err) {
		t.Errorf("error = %v, want storage failure", err)
	}
}

func TestNewEmptyTableName(t *testing.T) {
	db := openTestDB(t)

	_, err := queue.New(context.Background(), queue.Config{Timeout: time.Minute, LookAhead: 1}, db)
	if !queue.IsInvalidInput(err) {
		t.Errorf("error = %v, want invalid input", err)
	}
}

func TestNewBadProvider(t *testing.T) {
	db := openTestDB(t)
	db.Close()

	_, err := queue.New(context.Background(), queue.Config{
		Table:     "queue",
		Timeout:   time.Minute,
		LookAhead: 1,
	}, db)
	if !queue.IsStorageFailure(err) {
		t.Errorf("error = %v, want storage failure", err)
	}
}

func TestOperationsAfterProviderGone(t *testing.T) {
	q, db := testQueue(t, queue.Config{Table: "queue", Timeout: time.Minute, LookAhead: 1})
	ctx := context.Background()
	db.Close()

	if err := q.Push(ctx, "1"); !queue.IsStorageFailure(err) {
		t.Errorf("Push error = %v, want storage failure", err)
	}
	if _, _, err := q.Pop(ctx); !queue.IsStorageFailure(err) {
		t.Errorf("Pop error = %v, want storage failure", err)
	}
	if _, err := q.Size(ctx); !queue.IsStorageFailure(err) {
		t.Errorf("Size error = %v, want storage failure", err)
	}
	if _, err := q.ConsumeOne(ctx, func(string) error { return nil }); !queue.IsStorageFailure(err) {
		t.Errorf("ConsumeOne error = %v, want storage failure", err)
	}
}

func TestErrorWrapsCause(t *testing.T) {
	db := openTestDB(t)
	db.Close()

	err := func() error {
		_, err := queue.New(context.Background(), queue.Config{
			Table:     "queue",
			Timeout:   time.Minute,
			LookAhead: 1,
		}, db)
		return err
	}()
	if err == nil {
		t.Fatal("expected error")
	}
	var qe *queue.Error
	if !errors.As(err, &qe) {
		t.Fatalf("error %T does not expose *queue.Error", err)
	}
	if qe.Code != queue.ErrorCodeStorage {
		t.Errorf("code = %q, want %q", qe.Code, queue.ErrorCodeStorage)
	}
	if qe.Unwrap() == nil {
		t.Error("storage error does not wrap its cause")
	}
}
