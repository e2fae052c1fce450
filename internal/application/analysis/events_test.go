package analysis

import (
	"testing"
	"time"

	"github.com/fixmystore/audit-engine/internal/application"
	"github.com/fixmystore/audit-engine/internal/domain/audit"
)

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster()
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	b.Publish(ProgressEvent{AuditID: "a", Stage: audit.StageValidateShopify})

	for i, ch := range []<-chan ProgressEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Stage != audit.StageValidateShopify {
				t.Errorf("subscriber %d got stage %s", i, ev.Stage)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

func TestBroadcasterPublishNeverBlocks(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe()
	defer cancel()

	// Overfill the subscriber buffer; the publisher must not stall.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Publish(ProgressEvent{AuditID: "a"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestBroadcasterCancelClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	cancel()
	if _, open := <-ch; open {
		t.Error("channel should be closed after cancel")
	}
	// Cancel twice is safe.
	cancel()
}

func TestBroadcasterSubscribeAfterClose(t *testing.T) {
	b := NewBroadcaster()
	b.Close()
	ch, cancel := b.Subscribe()
	defer cancel()
	if _, open := <-ch; open {
		t.Error("subscription on a closed broadcaster should be closed immediately")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry(time.Hour, application.SystemClock{})

	sess := reg.Create("shop.example.com")
	if sess.ID == "" {
		t.Fatal("session id should be assigned")
	}
	if sess.Status() != audit.StatusQueued {
		t.Errorf("fresh session status = %s", sess.Status())
	}

	got, err := reg.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != sess {
		t.Error("Get returned a different session")
	}

	reg.Delete(sess.ID)
	if _, err := reg.Get(sess.ID); err != audit.ErrSessionNotFound {
		t.Errorf("after delete, err = %v, want ErrSessionNotFound", err)
	}
}

// Try Again semantics: a new request is a new session, the old one is
// untouched.
func TestRegistryCreateIsFresh(t *testing.T) {
	reg := NewRegistry(time.Hour, application.SystemClock{})
	a := reg.Create("shop.example.com")
	b := reg.Create("shop.example.com")
	if a.ID == b.ID {
		t.Error("each create must mint a distinct session")
	}
}
