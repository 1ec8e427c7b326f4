package logfeed

import (
	"fmt"
	"testing"

	"hostwatch/internal/telemetry"
)

func pushed(name, worker, task string, at int64) telemetry.LogEvent {
	ev, err := telemetry.PushEvent{Name: name, Worker: worker, Task: task}.Event(at)
	if err != nil {
		panic(err)
	}
	return ev
}

func polled(host, task string, delivered bool, at int64) telemetry.LogEvent {
	ev, err := telemetry.LogRecord{
		TaskName:  task,
		Hostname:  host,
		Delivered: delivered,
		CreatedAt: []byte(fmt.Sprint(at)),
	}.Event()
	if err != nil {
		panic(err)
	}
	return ev
}

func TestPushPairKeepsOrder(t *testing.T) {
	r := New(DefaultCapacity)
	r.Apply(Batch{Kind: PushSource, Events: []telemetry.LogEvent{
		pushed("assigned", "w1", "t1", 1700000000000),
	}})
	r.Apply(Batch{Kind: PushSource, Events: []telemetry.LogEvent{
		pushed("finished", "w1", "t1", 1700000000000),
	}})

	feed := r.Feed()
	if len(feed) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(feed))
	}
	if feed[0].Category != telemetry.CategoryAssigned || feed[1].Category != telemetry.CategoryFinished {
		t.Errorf("Expected assigned then finished, got %s then %s", feed[0].Category, feed[1].Category)
	}
	latest, ok := r.Latest()
	if !ok || latest.Category != telemetry.CategoryFinished {
		t.Errorf("Expected latest to be the finished event, got %+v", latest)
	}
}

func TestFeedNeverExceedsCapacity(t *testing.T) {
	r := New(DefaultCapacity)
	for i := 0; i < 25; i++ {
		r.Apply(Batch{Kind: PushSource, Events: []telemetry.LogEvent{
			pushed("assigned", "w1", fmt.Sprintf("push-%d", i), int64(1000+i)),
		}})
		var poll []telemetry.LogEvent
		for j := 0; j < 15; j++ {
			poll = append(poll, polled("w2", fmt.Sprintf("poll-%d-%d", i, j), false, int64(1000+i*2+j)))
		}
		r.Apply(Batch{Kind: PollSource, Events: poll, IssueSeq: uint64(i + 1)})
		r.Apply(Batch{Kind: LocalSource, Events: []telemetry.LogEvent{telemetry.InfoEvent("> tick", int64(1000+i))}})

		if n := len(r.Feed()); n > DefaultCapacity {
			t.Fatalf("Iteration %d: feed has %d entries, capacity %d", i, n, DefaultCapacity)
		}
	}
	if r.Len() != DefaultCapacity {
		t.Errorf("Expected a full feed of %d, got %d", DefaultCapacity, r.Len())
	}
}

func TestFeedIsAscending(t *testing.T) {
	r := New(5)
	r.Apply(Batch{Kind: PollSource, Events: []telemetry.LogEvent{
		polled("a", "t1", false, 300),
		polled("a", "t2", false, 100),
		polled("b", "t3", true, 500),
	}})
	r.Apply(Batch{Kind: PushSource, Events: []telemetry.LogEvent{
		pushed("assigned", "c", "t4", 200),
		pushed("finished", "c", "t4", 400),
	}})

	feed := r.Feed()
	for i := 1; i < len(feed); i++ {
		if feed[i-1].TimestampMs > feed[i].TimestampMs {
			t.Fatalf("Feed out of order at %d: %d > %d", i, feed[i-1].TimestampMs, feed[i].TimestampMs)
		}
	}
	if len(feed) != 5 {
		t.Errorf("Expected 5 entries, got %d", len(feed))
	}
}

func TestPollDedupKeepsNewest(t *testing.T) {
	r := New(DefaultCapacity)
	res := r.Apply(Batch{Kind: PollSource, Events: []telemetry.LogEvent{
		polled("a", "t1", false, 100),
		polled("a", "t1", false, 300),
		polled("a", "t1", false, 200),
		polled("a", "t1", true, 400),
	}})

	if res.Accepted != 2 {
		t.Errorf("Expected 2 accepted after dedup, got %d", res.Accepted)
	}
	feed := r.Feed()
	if len(feed) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(feed))
	}
	if feed[0].TimestampMs != 300 || feed[0].Category != telemetry.CategoryAssigned {
		t.Errorf("Expected newest assigned record at 300, got %+v", feed[0])
	}
}

func TestPollReplacesWindow(t *testing.T) {
	r := New(DefaultCapacity)
	r.Apply(Batch{Kind: PollSource, IssueSeq: 1, Events: []telemetry.LogEvent{polled("a", "old", false, 100)}})
	r.Apply(Batch{Kind: PollSource, IssueSeq: 2, Events: []telemetry.LogEvent{polled("a", "new", false, 200)}})

	feed := r.Feed()
	if len(feed) != 1 || feed[0].Task != "new" {
		t.Errorf("Expected the second poll to replace the first, got %+v", feed)
	}
}

func TestStalePollDiscarded(t *testing.T) {
	r := New(DefaultCapacity)
	r.Apply(Batch{Kind: PollSource, IssueSeq: 5, Events: []telemetry.LogEvent{polled("a", "fresh", false, 200)}})
	rev := r.Revision()

	res := r.Apply(Batch{Kind: PollSource, IssueSeq: 4, Events: []telemetry.LogEvent{polled("a", "late", false, 100)}})
	if !res.Stale {
		t.Error("Expected the late poll to be flagged stale")
	}
	if r.Revision() != rev {
		t.Error("Expected revision to be unchanged by a stale poll")
	}
	if feed := r.Feed(); len(feed) != 1 || feed[0].Task != "fresh" {
		t.Errorf("Expected feed to keep the fresh poll, got %+v", feed)
	}
}

func TestRevisionOnlyMovesOnChange(t *testing.T) {
	r := New(DefaultCapacity)
	batch := []telemetry.LogEvent{polled("a", "t1", false, 100), polled("b", "t2", true, 200)}

	r.Apply(Batch{Kind: PollSource, IssueSeq: 1, Events: batch})
	first := r.Revision()
	res := r.Apply(Batch{Kind: PollSource, IssueSeq: 2, Events: batch})
	if res.Changed || r.Revision() != first {
		t.Errorf("Expected identical poll to leave revision at %d, got %d", first, r.Revision())
	}

	r.Apply(Batch{Kind: PushSource, Events: []telemetry.LogEvent{pushed("assigned", "c", "t3", 300)}})
	if r.Revision() == first {
		t.Error("Expected a push event to bump the revision")
	}
}

func TestApplyRejectsEmptyText(t *testing.T) {
	r := New(DefaultCapacity)
	res := r.Apply(Batch{Kind: LocalSource, Events: []telemetry.LogEvent{{TimestampMs: 1}}})
	if res.Rejected != 1 || res.Accepted != 0 {
		t.Errorf("Expected 1 rejected event, got %+v", res)
	}
	if r.Revision() != 0 {
		t.Error("Expected no revision bump for rejected events")
	}
}

func TestLocalEventsTaggedLocal(t *testing.T) {
	r := New(DefaultCapacity)
	r.Apply(Batch{Kind: LocalSource, Events: []telemetry.LogEvent{{Text: "> hello", TimestampMs: 1}}})
	latest, ok := r.Latest()
	if !ok || latest.Source != telemetry.SourceLocal {
		t.Errorf("Expected local source, got %+v", latest)
	}
}
