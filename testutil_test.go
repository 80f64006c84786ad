package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/castaway-social/indexer/models"
)

const testTimeout = time.Second

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqldb, err := db.DB()
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		models.Cast{},
		models.CastEmbedCast{},
		models.CastEmbedURL{},
		models.CastMention{},
		models.CastStats{},
		models.UserStats{},
		models.ParentURLStats{},
		models.Link{},
		models.CastReaction{},
		models.URLReaction{},
		models.Verification{},
		models.UserData{},
		models.UsernameProof{},
		models.HubCursor{},
		models.BackfillJob{},
	))

	return db
}

// fakeHub serves canned messages and pages. castCalls counts CastByID hits so
// resolver tests can assert walk length.
type fakeHub struct {
	mu        sync.Mutex
	castsByID map[string]*Message
	pages     map[string][][]*Message
	proofs    []*UsernameProofRecord
	castCalls int
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		castsByID: make(map[string]*Message),
		pages:     make(map[string][][]*Message),
	}
}

func (f *fakeHub) addCast(msg *Message) {
	f.castsByID[normalizeHex(msg.Hash)] = msg
}

func (f *fakeHub) CastByID(ctx context.Context, fid uint64, hash string) (*Message, error) {
	f.mu.Lock()
	f.castCalls++
	f.mu.Unlock()

	msg, ok := f.castsByID[normalizeHex(hash)]
	if !ok {
		return nil, ErrCastNotFound
	}
	return msg, nil
}

func pageOf(pages [][]*Message, tok string) ([]*Message, string, error) {
	idx := 0
	if tok != "" {
		idx, _ = strconv.Atoi(tok)
	}
	if idx >= len(pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(pages) {
		next = strconv.Itoa(idx + 1)
	}
	return pages[idx], next, nil
}

func (f *fakeHub) CastsByFid(ctx context.Context, fid uint64, tok string) ([]*Message, string, error) {
	return pageOf(f.pages["casts"], tok)
}

func (f *fakeHub) ReactionsByFid(ctx context.Context, fid uint64, tok string) ([]*Message, string, error) {
	return pageOf(f.pages["reactions"], tok)
}

func (f *fakeHub) LinksByFid(ctx context.Context, fid uint64, tok string) ([]*Message, string, error) {
	return pageOf(f.pages["links"], tok)
}

func (f *fakeHub) VerificationsByFid(ctx context.Context, fid uint64, tok string) ([]*Message, string, error) {
	return pageOf(f.pages["verifications"], tok)
}

func (f *fakeHub) UserDataByFid(ctx context.Context, fid uint64, tok string) ([]*Message, string, error) {
	return pageOf(f.pages["userdata"], tok)
}

func (f *fakeHub) UsernameProofsByFid(ctx context.Context, fid uint64) ([]*UsernameProofRecord, error) {
	return f.proofs, nil
}

func (f *fakeHub) Events(ctx context.Context, fromEventID uint64) ([]*HubEvent, uint64, error) {
	return nil, fromEventID, nil
}

// memPublisher records published events in order.
type memPublisher struct {
	mu     sync.Mutex
	events []*DomainEvent
}

func (m *memPublisher) Publish(ctx context.Context, ev *DomainEvent, highPriority bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memPublisher) byType(typ string) []*DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*DomainEvent
	for _, ev := range m.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// Message builders.

func msgCastAdd(fid uint64, hash string, ts uint32, body *CastAddBody) *Message {
	return &Message{
		Hash: hash,
		Data: &MessageData{
			Type:        MsgTypeCastAdd,
			Fid:         fid,
			Timestamp:   ts,
			CastAddBody: body,
		},
	}
}

func msgCastRemove(fid uint64, targetHash string, ts uint32) *Message {
	return &Message{
		Hash: "0xaaaa" + targetHash[2:],
		Data: &MessageData{
			Type:           MsgTypeCastRemove,
			Fid:            fid,
			Timestamp:      ts,
			CastRemoveBody: &CastRemoveBody{TargetHash: targetHash},
		},
	}
}

func msgReaction(msgType string, fid uint64, ts uint32, body *ReactionBody) *Message {
	return &Message{
		Hash: fmt.Sprintf("0xr%016x%d", fid, ts),
		Data: &MessageData{
			Type:         msgType,
			Fid:          fid,
			Timestamp:    ts,
			ReactionBody: body,
		},
	}
}

func msgLink(msgType string, fid, targetFid uint64, ts uint32) *Message {
	return &Message{
		Hash: fmt.Sprintf("0xl%016x%d", fid, ts),
		Data: &MessageData{
			Type:      msgType,
			Fid:       fid,
			Timestamp: ts,
			LinkBody:  &LinkBody{Type: "follow", TargetFid: targetFid},
		},
	}
}

func testProcessor(t *testing.T, hub *fakeHub) (*Processor, *gorm.DB, *memPublisher) {
	t.Helper()
	db := testDB(t)
	pub := &memPublisher{}
	resolver := NewRootResolver(db, hub, 25, testTimeout)
	return NewProcessor(db, resolver, pub), db, pub
}
