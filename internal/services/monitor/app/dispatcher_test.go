package app

import (
	"context"
	"testing"
	"time"
)

func TestDispatcherRunsInOrder(t *testing.T) {
	d := runDispatcher(t)
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		if !d.Post(context.Background(), func() { got = append(got, i) }) {
			t.Fatal("post rejected")
		}
	}
	if !d.Call(context.Background(), func() {}) {
		t.Fatal("call rejected")
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order: %v", got)
		}
	}
	if len(got) != 10 {
		t.Fatalf("got %d callbacks", len(got))
	}
}

func TestDispatcherRejectsAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(1)
	stopped := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	if d.Post(context.Background(), func() {}) {
		t.Fatal("post accepted after Run returned")
	}
	if d.Call(context.Background(), func() {}) {
		t.Fatal("call accepted after Run returned")
	}
}

func TestDispatcherPostHonoursContext(t *testing.T) {
	// nessun Run: la coda si riempie
	d := NewDispatcher(1)
	if !d.Post(context.Background(), func() {}) {
		t.Fatal("first post must fit the buffer")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if d.Post(ctx, func() {}) {
		t.Fatal("post on a full queue must give up when ctx ends")
	}
}
