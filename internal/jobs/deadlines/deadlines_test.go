package deadlines

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sweeperStub struct {
	calls     int
	escalated int
	err       error
	gotLimit  int
}

func (s *sweeperStub) SweepDeadlines(_ context.Context, limit int) (int, error) {
	s.calls++
	s.gotLimit = limit
	return s.escalated, s.err
}

func TestRunSweepsWithBatchSize(t *testing.T) {
	stub := &sweeperStub{escalated: 3}
	job := New(stub, time.Minute, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stub.calls != 1 || stub.gotLimit != defaultBatchSize {
		t.Fatalf("unexpected sweep call: calls=%d limit=%d", stub.calls, stub.gotLimit)
	}
}

func TestRunWrapsSweepError(t *testing.T) {
	wantErr := errors.New("db down")
	job := New(&sweeperStub{err: wantErr}, time.Minute, nil)

	err := job.Run(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped sweep error, got %v", err)
	}
}

func TestRunWithoutSweeperIsNoop(t *testing.T) {
	job := New(nil, time.Minute, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
