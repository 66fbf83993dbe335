package api

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskflow-api/domain"
)

type publishJob struct {
	ownerID string
	events  []domain.Event
}

var (
	pubOnce        sync.Once
	pubJobs        chan publishJob
	pubWorkerCount int
	pubJobBuf      int
	publishTimeout time.Duration
	handoffTimeout time.Duration
	bg             = context.Background()
	globalSink     EventSink
	globalLog      *log.Logger
	pubWG          sync.WaitGroup
)

// shutdownEventPublisher stops worker goroutines and clears shared state. It
// is intended for tests.
func shutdownEventPublisher() {
	if pubJobs != nil {
		close(pubJobs)
		pubJobs = nil
	}

	pubWG.Wait()

	globalSink = nil
	globalLog = nil
	pubWorkerCount = 0
	pubJobBuf = 0
	publishTimeout = 0
	handoffTimeout = 0
	pubOnce = sync.Once{}
	pubWG = sync.WaitGroup{}
}

// initEventPublisher starts the write-behind workers that push task change
// events to the durable feed. A nil sink disables publishing entirely (the
// in-memory backend has no feed).
func initEventPublisher(sink EventSink, logger *log.Logger) {
	if sink == nil {
		return
	}
	pubOnce.Do(func() {
		globalSink = sink
		if logger == nil {
			panic("Logger is not initialized")
		}
		globalLog = logger

		pubWorkerCount = envInt("PUBLISH_WORKERS", 8)
		pubJobBuf = envInt("PUBLISH_BUFFER", 1024)
		publishTimeout = envDur("PUBLISH_TIMEOUT", 30*time.Second)
		handoffTimeout = envDur("PUBLISH_HANDOFF_TIMEOUT", 15*time.Millisecond)

		pubJobs = make(chan publishJob, pubJobBuf)
		for i := 0; i < pubWorkerCount; i++ {
			pubWG.Add(1)
			go publishWorker(i, pubJobs)
		}
		globalLog.Infof("event publisher started, workers: %d, buffer: %d, timeout: %v, handoff: %v", pubWorkerCount, pubJobBuf, publishTimeout, handoffTimeout)
	})
}

func publishWorker(id int, jobCh <-chan publishJob) {
	defer pubWG.Done()
	for j := range jobCh {
		ctx, cancel := context.WithTimeout(bg, publishTimeout)
		err := globalSink.PublishEvents(ctx, j.ownerID, j.events)
		cancel()

		if err != nil {
			globalLog.Errorf("publish failed, err: %v, user: %s, count: %d, worker: %d", err, j.ownerID, len(j.events), id)
		}
	}
}

// publishTaskEvent records one change on the feed after the in-memory state
// has settled. Publishing is best effort and never reorders or blocks the
// caller-visible state update.
func publishTaskEvent(ownerID, eventType, taskID string, task *domain.Task) {
	if globalSink == nil {
		return
	}

	ev := domain.Event{
		ID:     uuid.NewString(),
		TaskID: taskID,
		Type:   eventType,
		Time:   nextTimestamp(),
	}
	if task != nil {
		if data, err := sonic.Marshal(task); err == nil {
			ev.Data = data
		}
	}

	job := publishJob{ownerID: ownerID, events: []domain.Event{ev}}
	if tryPublishJob(job) {
		return
	}

	globalLog.Warn("publish buffer saturated; publishing inline")

	ctx, cancel := context.WithTimeout(bg, publishTimeout)
	err := globalSink.PublishEvents(ctx, ownerID, job.events)
	cancel()
	if err != nil {
		globalLog.Errorf("inline publish failed: %v", err)
	}
}

func tryPublishJob(job publishJob) bool {
	if pubJobs == nil {
		return false
	}

	if ok, closed := trySendNonBlocking(pubJobs, job); closed {
		return false
	} else if ok {
		return true
	}

	if handoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(handoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(pubJobs, job, timer.C)
	if closed {
		return false
	}
	return ok
}

func trySendNonBlocking(ch chan publishJob, job publishJob) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan publishJob, job publishJob, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	case <-timer:
		return false, false
	}
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDur(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
