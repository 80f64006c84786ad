package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"

	"github.com/castaway-social/indexer/models"
)

// RootRef identifies the top-most ancestor of a thread.
type RootRef struct {
	Fid  uint64
	Hash string
	URL  string
}

// RootResolver finds the root of a reply thread. It prefers locally indexed
// ancestors and falls back to walking the parent chain over hub RPC. The walk
// is bounded; blowing the bound means a cyclic or corrupted thread and is a
// hard error rather than a silent truncation.
type RootResolver struct {
	db  *gorm.DB
	hub HubClient

	cache *lru.TwoQueueCache[string, *RootRef]

	maxHops    int
	hopTimeout time.Duration
}

func NewRootResolver(db *gorm.DB, hub HubClient, maxHops int, hopTimeout time.Duration) *RootResolver {
	cache, _ := lru.New2Q[string, *RootRef](500_000)
	return &RootResolver{
		db:         db,
		hub:        hub,
		cache:      cache,
		maxHops:    maxHops,
		hopTimeout: hopTimeout,
	}
}

// Resolve returns the thread root for a decoded cast. A nil RootRef with a
// nil error means the ancestor chain could not be fetched; callers store the
// cast with unset root fields and move on. Errors are transport failures or
// a blown hop bound and should fail the whole message.
func (r *RootResolver) Resolve(ctx context.Context, cast *models.Cast) (*RootRef, error) {
	if !cast.IsReply() {
		ref := &RootRef{Fid: cast.Fid, Hash: cast.Hash}
		if cast.ParentURL != nil {
			ref.URL = *cast.ParentURL
		}
		return ref, nil
	}

	curFid := *cast.ParentFid
	curHash := *cast.ParentHash

	var walked []string
	for hops := 0; ; hops++ {
		if hops >= r.maxHops {
			return nil, fmt.Errorf("root walk for %s exceeded %d hops, thread is cyclic or corrupted", cast.Hash, r.maxHops)
		}

		if ref, ok := r.cache.Get(curHash); ok {
			r.fillCache(walked, ref)
			return ref, nil
		}

		// Fast path: an already-indexed ancestor either carries its resolved
		// root or is itself the root.
		var stored models.Cast
		if err := r.db.Find(&stored, "hash = ?", curHash).Error; err != nil {
			return nil, err
		}
		if stored.ID != 0 {
			if stored.RootParentHash != nil {
				ref := &RootRef{Fid: *stored.RootParentFid, Hash: *stored.RootParentHash}
				if stored.RootParentURL != nil {
					ref.URL = *stored.RootParentURL
				}
				r.fillCache(append(walked, curHash), ref)
				return ref, nil
			}
			if !stored.IsReply() {
				ref := &RootRef{Fid: stored.Fid, Hash: stored.Hash}
				if stored.ParentURL != nil {
					ref.URL = *stored.ParentURL
				}
				r.fillCache(append(walked, curHash), ref)
				return ref, nil
			}
			walked = append(walked, curHash)
			curFid = *stored.ParentFid
			curHash = *stored.ParentHash
			continue
		}

		hctx, cancel := context.WithTimeout(ctx, r.hopTimeout)
		msg, err := r.hub.CastByID(hctx, curFid, curHash)
		cancel()
		if errors.Is(err, ErrCastNotFound) {
			// Missing ancestor. The reply is still indexed, just without
			// root fields.
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("fetching ancestor %s: %w", curHash, err)
		}

		rec := decodeCastAdd(msg)
		if rec == nil {
			return nil, nil
		}

		if !rec.Cast.IsReply() {
			ref := &RootRef{Fid: rec.Cast.Fid, Hash: rec.Cast.Hash}
			if rec.Cast.ParentURL != nil {
				ref.URL = *rec.Cast.ParentURL
			}
			r.fillCache(append(walked, curHash), ref)
			return ref, nil
		}

		walked = append(walked, curHash)
		curFid = *rec.Cast.ParentFid
		curHash = *rec.Cast.ParentHash
	}
}

func (r *RootResolver) fillCache(hashes []string, ref *RootRef) {
	for _, h := range hashes {
		r.cache.Add(h, ref)
	}
}
