package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/castaway-social/indexer/models"
)

var ingestedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hub_events_ingested",
	Help: "Hub events pulled from the event feed, by event type",
}, []string{"type"})

var processedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "queue_messages_processed",
	Help: "Queue messages handled by workers, by outcome",
}, []string{"outcome"})

// Ingester tails the hub's event feed into a redis stream and runs the
// consumer-group workers that feed the processor. The stream gives us
// at-least-once delivery; the processor's duplicate checks make redelivery
// safe.
type Ingester struct {
	db   *gorm.DB
	hub  HubClient
	rdb  *redis.Client
	proc *Processor
	bf   *Backfiller

	stream string
	group  string

	lastEventID uint64
	idLk        sync.Mutex

	seenFids *lru.TwoQueueCache[uint64, bool]
}

func NewIngester(db *gorm.DB, hub HubClient, rdb *redis.Client, proc *Processor, bf *Backfiller, stream, group string) *Ingester {
	seen, _ := lru.New2Q[uint64, bool](1_000_000)
	return &Ingester{
		db:       db,
		hub:      hub,
		rdb:      rdb,
		proc:     proc,
		bf:       bf,
		stream:   stream,
		group:    group,
		seenFids: seen,
	}
}

func (ing *Ingester) LoadCursor(ctx context.Context) error {
	var rec models.HubCursor
	if err := ing.db.Find(&rec, "id = 1").Error; err != nil {
		return err
	}
	if rec.ID == 0 {
		if err := ing.db.Create(&models.HubCursor{ID: 1}).Error; err != nil {
			return err
		}
	}

	ing.idLk.Lock()
	ing.lastEventID = rec.Val
	ing.idLk.Unlock()
	return nil
}

func (ing *Ingester) FlushCursor() error {
	ing.idLk.Lock()
	v := ing.lastEventID
	ing.idLk.Unlock()

	return ing.db.Model(&models.HubCursor{}).Where("id = 1 AND val < ?", v).Update("val", v).Error
}

func (ing *Ingester) syncCursorRoutine(ctx context.Context) {
	tick := time.NewTicker(time.Second * 5)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := ing.FlushCursor(); err != nil {
				slog.Error("failed to flush cursor", "err", err)
			}
		}
	}
}

// pollEvents follows the hub event feed and pushes merge-message events onto
// the ingest stream.
func (ing *Ingester) pollEvents(ctx context.Context) error {
	ing.idLk.Lock()
	cursor := ing.lastEventID
	ing.idLk.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		events, next, err := ing.hub.Events(ctx, cursor)
		if err != nil {
			slog.Error("hub event fetch failed", "err", err)
			time.Sleep(time.Second * 2)
			continue
		}

		for _, ev := range events {
			ingestedEvents.WithLabelValues(ev.Type).Inc()
			if ev.Type != HubEventTypeMergeMessage || ev.MergeMessageBody == nil || ev.MergeMessageBody.Message == nil {
				slog.Debug("skipping hub event", "type", ev.Type, "id", ev.ID)
				continue
			}

			b, err := json.Marshal(ev.MergeMessageBody.Message)
			if err != nil {
				return err
			}
			if err := ing.rdb.XAdd(ctx, &redis.XAddArgs{
				Stream: ing.stream,
				Values: map[string]any{"message": b},
			}).Err(); err != nil {
				return fmt.Errorf("enqueueing hub message: %w", err)
			}
		}

		if next > cursor {
			cursor = next
			ing.idLk.Lock()
			if cursor > ing.lastEventID {
				ing.lastEventID = cursor
			}
			ing.idLk.Unlock()
		}

		if len(events) == 0 {
			time.Sleep(time.Millisecond * 500)
		}
	}
}

func (ing *Ingester) ensureGroup(ctx context.Context) error {
	err := ing.rdb.XGroupCreateMkStream(ctx, ing.stream, ing.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// runWorker consumes from the group and processes each message completely
// before taking the next. Failed messages stay pending and are redelivered
// by the reclaim loop.
func (ing *Ingester) runWorker(ctx context.Context, name string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := ing.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    ing.group,
			Consumer: name,
			Streams:  []string{ing.stream, ">"},
			Count:    10,
			Block:    time.Second * 5,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("reading from ingest stream failed", "err", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range res {
			for _, entry := range stream.Messages {
				ing.handleEntry(ctx, entry)
			}
		}
	}
}

func (ing *Ingester) handleEntry(ctx context.Context, entry redis.XMessage) {
	raw, ok := entry.Values["message"].(string)
	if !ok {
		slog.Debug("ingest entry without message payload", "id", entry.ID)
		ing.rdb.XAck(ctx, ing.stream, ing.group, entry.ID)
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		slog.Debug("discarding undecodable ingest entry", "id", entry.ID, "err", err)
		processedMessages.WithLabelValues("malformed").Inc()
		ing.rdb.XAck(ctx, ing.stream, ing.group, entry.ID)
		return
	}

	if msg.Data != nil {
		ing.maybeEnqueueBackfill(msg.Data.Fid)
	}

	if err := ing.proc.ProcessMessage(ctx, &msg); err != nil {
		// Leave the entry pending; the reclaim loop redelivers it.
		slog.Error("processing message failed", "id", entry.ID, "err", err)
		processedMessages.WithLabelValues("failed").Inc()
		return
	}

	processedMessages.WithLabelValues("ok").Inc()
	ing.rdb.XAck(ctx, ing.stream, ing.group, entry.ID)
}

// reclaimLoop re-delivers entries that have sat pending too long, so a
// crashed or wedged worker cannot strand messages.
func (ing *Ingester) reclaimLoop(ctx context.Context, name string) {
	tick := time.NewTicker(time.Second * 30)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		entries, _, err := ing.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   ing.stream,
			Group:    ing.group,
			Consumer: name,
			MinIdle:  time.Minute,
			Start:    "0-0",
			Count:    100,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("reclaiming pending entries failed", "err", err)
			continue
		}

		for _, entry := range entries {
			ing.handleEntry(ctx, entry)
		}
	}
}

// maybeEnqueueBackfill lazily queues full hydration for fids we see in live
// traffic.
func (ing *Ingester) maybeEnqueueBackfill(fid uint64) {
	if fid == 0 {
		return
	}
	if _, ok := ing.seenFids.Get(fid); ok {
		return
	}
	if err := ing.bf.GetOrCreateJob(fid); err != nil {
		slog.Error("failed to enqueue backfill job", "fid", fid, "err", err)
		return
	}
	ing.seenFids.Add(fid, true)
}
