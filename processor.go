package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/castaway-social/indexer/models"
)

var handleMsgHist = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "handle_message_duration",
	Help:    "A histogram of message handling durations",
	Buckets: prometheus.ExponentialBuckets(1, 2, 15),
}, []string{"type"})

var duplicateMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "duplicate_messages",
	Help: "Messages skipped as duplicates of already-applied state",
}, []string{"type"})

var skippedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skipped_messages",
	Help: "Messages discarded as malformed or unhandled",
}, []string{"type"})

// errDuplicate aborts a transition transaction without treating the message
// as failed. Redelivered and reordered messages land here.
var errDuplicate = errors.New("duplicate message")

// Processor applies protocol messages to the relational store, keeps the
// derived counters in lockstep, and republishes normalized domain events.
// Each transition is a single transaction; the natural-key duplicate checks
// make redelivery of the whole sequence idempotent.
type Processor struct {
	db       *gorm.DB
	resolver *RootResolver
	pub      Publisher
}

func NewProcessor(db *gorm.DB, resolver *RootResolver, pub Publisher) *Processor {
	return &Processor{
		db:       db,
		resolver: resolver,
		pub:      pub,
	}
}

func (p *Processor) ProcessMessage(ctx context.Context, msg *Message) error {
	if msg == nil || msg.Data == nil {
		skippedMessages.WithLabelValues("nil").Inc()
		return nil
	}

	start := time.Now()
	defer func() {
		handleMsgHist.WithLabelValues(msg.Data.Type).Observe(float64(time.Since(start).Milliseconds()))
	}()

	switch msg.Data.Type {
	case MsgTypeCastAdd:
		return p.HandleCastAdd(ctx, msg)
	case MsgTypeCastRemove:
		return p.HandleCastRemove(ctx, msg)
	case MsgTypeReactionAdd:
		return p.HandleReactionAdd(ctx, msg)
	case MsgTypeReactionRemove:
		return p.HandleReactionRemove(ctx, msg)
	case MsgTypeLinkAdd:
		return p.HandleLinkAdd(ctx, msg)
	case MsgTypeLinkRemove:
		return p.HandleLinkRemove(ctx, msg)
	case MsgTypeVerificationAdd:
		return p.HandleVerificationAdd(ctx, msg)
	case MsgTypeVerificationRemove:
		return p.HandleVerificationRemove(ctx, msg)
	case MsgTypeUserDataAdd:
		return p.HandleUserDataAdd(ctx, msg)
	case MsgTypeUsernameProof:
		return p.HandleUsernameProof(ctx, msg)
	default:
		slog.Debug("unhandled message type", "type", msg.Data.Type)
		skippedMessages.WithLabelValues(msg.Data.Type).Inc()
		return nil
	}
}

// finish maps errDuplicate to a clean no-op and publishes the event for
// applied transitions.
func (p *Processor) finish(ctx context.Context, typ string, err error, ev *DomainEvent) error {
	if errors.Is(err, errDuplicate) {
		duplicateMessages.WithLabelValues(typ).Inc()
		return nil
	}
	if err != nil {
		return err
	}
	if err := p.pub.Publish(ctx, ev, false); err != nil {
		slog.Error("publish failed", "type", ev.Type, "err", err)
	}
	return nil
}

func (p *Processor) HandleCastAdd(ctx context.Context, msg *Message) error {
	rec := decodeCastAdd(msg)
	if rec == nil {
		slog.Debug("discarding malformed cast add")
		skippedMessages.WithLabelValues(MsgTypeCastAdd).Inc()
		return nil
	}

	var existing models.Cast
	if err := p.db.Find(&existing, "hash = ?", rec.Cast.Hash).Error; err != nil {
		return err
	}
	if existing.Active() {
		duplicateMessages.WithLabelValues(MsgTypeCastAdd).Inc()
		return nil
	}

	// Root is resolved once. A resurrected cast keeps the root it resolved
	// the first time around.
	if existing.ID != 0 && existing.RootParentHash != nil {
		rec.Cast.RootParentHash = existing.RootParentHash
		rec.Cast.RootParentFid = existing.RootParentFid
		rec.Cast.RootParentURL = existing.RootParentURL
	} else {
		root, err := p.resolver.Resolve(ctx, &rec.Cast)
		if err != nil {
			return fmt.Errorf("resolving thread root: %w", err)
		}
		if root != nil {
			rec.Cast.RootParentFid = &root.Fid
			rec.Cast.RootParentHash = &root.Hash
			if root.URL != "" {
				u := root.URL
				rec.Cast.RootParentURL = &u
			}
		}
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec.Cast)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Row already there: resurrect iff it is soft-deleted, otherwise
			// a concurrent worker beat us to it.
			upd := tx.Model(&models.Cast{}).
				Where("hash = ? AND deleted_at IS NOT NULL", rec.Cast.Hash).
				Updates(map[string]any{
					"fid":              rec.Cast.Fid,
					"text":             rec.Cast.Text,
					"timestamp":        rec.Cast.Timestamp,
					"parent_hash":      rec.Cast.ParentHash,
					"parent_fid":       rec.Cast.ParentFid,
					"parent_url":       rec.Cast.ParentURL,
					"root_parent_hash": rec.Cast.RootParentHash,
					"root_parent_fid":  rec.Cast.RootParentFid,
					"root_parent_url":  rec.Cast.RootParentURL,
					"deleted_at":       nil,
				})
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				return errDuplicate
			}
		}

		if len(rec.EmbedCasts) > 0 {
			if err := tx.Create(&rec.EmbedCasts).Error; err != nil {
				return err
			}
		}
		if len(rec.EmbedURLs) > 0 {
			if err := tx.Create(&rec.EmbedURLs).Error; err != nil {
				return err
			}
		}
		if len(rec.Mentions) > 0 {
			if err := tx.Create(&rec.Mentions).Error; err != nil {
				return err
			}
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.CastStats{CastHash: rec.Cast.Hash}).Error; err != nil {
			return err
		}

		return p.applyCastStats(tx, rec, 1)
	})

	return p.finish(ctx, MsgTypeCastAdd, err, &DomainEvent{
		Type:      EventCastAdd,
		Fid:       rec.Cast.Fid,
		Timestamp: rec.Cast.Timestamp,
		Cast:      &rec.Cast,
	})
}

// applyCastStats applies the add-side counter effects of a cast with the
// given sign. Removal uses dir = -1 with the stored record so decrements
// exactly mirror the original increments.
func (p *Processor) applyCastStats(tx *gorm.DB, rec *CastRecord, dir int64) error {
	cast := &rec.Cast
	if cast.IsReply() {
		if err := bumpCastStats(tx, *cast.ParentHash, castStatsDelta{replies: dir}); err != nil {
			return err
		}
		if err := bumpUserStats(tx, cast.Fid, userStatsDelta{replies: dir}); err != nil {
			return err
		}
		if err := bumpUserStats(tx, *cast.ParentFid, userStatsDelta{repliesReceived: dir}); err != nil {
			return err
		}
		if cast.ParentURL != nil {
			if err := bumpParentURLStats(tx, *cast.ParentURL, parentURLStatsDelta{replies: dir}); err != nil {
				return err
			}
		}
	} else {
		if err := bumpUserStats(tx, cast.Fid, userStatsDelta{casts: dir}); err != nil {
			return err
		}
		if cast.ParentURL != nil {
			if err := bumpParentURLStats(tx, *cast.ParentURL, parentURLStatsDelta{casts: dir}); err != nil {
				return err
			}
		}
	}

	for _, emb := range rec.EmbedCasts {
		if err := bumpCastStats(tx, emb.EmbedHash, castStatsDelta{quotes: dir}); err != nil {
			return err
		}
	}

	return nil
}

func (p *Processor) HandleCastRemove(ctx context.Context, msg *Message) error {
	rm := decodeCastRemove(msg)
	if rm == nil {
		slog.Debug("discarding malformed cast remove")
		skippedMessages.WithLabelValues(MsgTypeCastRemove).Inc()
		return nil
	}

	var cast models.Cast
	if err := p.db.Find(&cast, "hash = ?", rm.TargetHash).Error; err != nil {
		return err
	}
	if !cast.Active() {
		// Never seen, or already removed.
		duplicateMessages.WithLabelValues(MsgTypeCastRemove).Inc()
		return nil
	}

	// The remove message carries only the target hash; the embed list for
	// quote decrements comes from the stored cast's own child rows.
	var embedCasts []models.CastEmbedCast
	if err := p.db.Find(&embedCasts, "cast_hash = ? AND deleted_at IS NULL", cast.Hash).Error; err != nil {
		return err
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Cast{}).
			Where("hash = ? AND deleted_at IS NULL", cast.Hash).
			Update("deleted_at", rm.Timestamp)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errDuplicate
		}

		for _, child := range []any{&models.CastEmbedCast{}, &models.CastEmbedURL{}, &models.CastMention{}} {
			if err := tx.Model(child).
				Where("cast_hash = ? AND deleted_at IS NULL", cast.Hash).
				Update("deleted_at", rm.Timestamp).Error; err != nil {
				return err
			}
		}

		rec := &CastRecord{Cast: cast, EmbedCasts: embedCasts}
		return p.applyCastStats(tx, rec, -1)
	})

	cast.DeletedAt = &rm.Timestamp
	return p.finish(ctx, MsgTypeCastRemove, err, &DomainEvent{
		Type:      EventCastRemove,
		Fid:       cast.Fid,
		Timestamp: rm.Timestamp,
		Cast:      &cast,
	})
}

func (p *Processor) HandleReactionAdd(ctx context.Context, msg *Message) error {
	rr := decodeReaction(msg)
	if rr == nil {
		slog.Debug("discarding malformed reaction add")
		skippedMessages.WithLabelValues(MsgTypeReactionAdd).Inc()
		return nil
	}

	if rr.URL != nil {
		return p.handleURLReactionAdd(ctx, rr)
	}

	react := rr.Cast
	var existing models.CastReaction
	if err := p.db.Find(&existing, "target_hash = ? AND reaction_type = ? AND fid = ?",
		react.TargetHash, react.ReactionType, react.Fid).Error; err != nil {
		return err
	}
	if existing.Active() {
		duplicateMessages.WithLabelValues(MsgTypeReactionAdd).Inc()
		return nil
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(react)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			upd := tx.Model(&models.CastReaction{}).
				Where("target_hash = ? AND reaction_type = ? AND fid = ? AND deleted_at IS NOT NULL",
					react.TargetHash, react.ReactionType, react.Fid).
				Updates(map[string]any{
					"target_fid": react.TargetFid,
					"timestamp":  react.Timestamp,
					"deleted_at": nil,
				})
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				return errDuplicate
			}
		}

		return applyCastReactionStats(tx, rr.Kind, react, 1)
	})

	return p.finish(ctx, MsgTypeReactionAdd, err, &DomainEvent{
		Type:      EventReactionAdd,
		Fid:       react.Fid,
		Timestamp: react.Timestamp,
		Reaction:  react,
	})
}

func (p *Processor) handleURLReactionAdd(ctx context.Context, rr *ReactionRecord) error {
	react := rr.URL
	var existing models.URLReaction
	if err := p.db.Find(&existing, "target_url = ? AND reaction_type = ? AND fid = ?",
		react.TargetURL, react.ReactionType, react.Fid).Error; err != nil {
		return err
	}
	if existing.Active() {
		duplicateMessages.WithLabelValues(MsgTypeReactionAdd).Inc()
		return nil
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(react)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			upd := tx.Model(&models.URLReaction{}).
				Where("target_url = ? AND reaction_type = ? AND fid = ? AND deleted_at IS NOT NULL",
					react.TargetURL, react.ReactionType, react.Fid).
				Updates(map[string]any{
					"timestamp":  react.Timestamp,
					"deleted_at": nil,
				})
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				return errDuplicate
			}
		}

		// URL targets have no author, so only the reactor's own counts move.
		return bumpUserStats(tx, react.Fid, rr.Kind.userDelta(1))
	})

	return p.finish(ctx, MsgTypeReactionAdd, err, &DomainEvent{
		Type:        EventReactionAdd,
		Fid:         react.Fid,
		Timestamp:   react.Timestamp,
		URLReaction: react,
	})
}

func applyCastReactionStats(tx *gorm.DB, kind ReactionKind, react *models.CastReaction, dir int64) error {
	if err := bumpCastStats(tx, react.TargetHash, kind.castDelta(dir)); err != nil {
		return err
	}
	if err := bumpUserStats(tx, react.Fid, kind.userDelta(dir)); err != nil {
		return err
	}
	return bumpUserStats(tx, react.TargetFid, kind.receivedDelta(dir))
}

func (p *Processor) HandleReactionRemove(ctx context.Context, msg *Message) error {
	rr := decodeReaction(msg)
	if rr == nil {
		slog.Debug("discarding malformed reaction remove")
		skippedMessages.WithLabelValues(MsgTypeReactionRemove).Inc()
		return nil
	}
	ts := protoTime(msg.Data.Timestamp)

	if rr.URL != nil {
		return p.handleURLReactionRemove(ctx, rr, ts)
	}

	// The remove body carries only the key; target fid and the rest come
	// from the stored record.
	var stored models.CastReaction
	if err := p.db.Find(&stored, "target_hash = ? AND reaction_type = ? AND fid = ?",
		rr.Cast.TargetHash, rr.Cast.ReactionType, rr.Cast.Fid).Error; err != nil {
		return err
	}
	if !stored.Active() {
		duplicateMessages.WithLabelValues(MsgTypeReactionRemove).Inc()
		return nil
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CastReaction{}).
			Where("id = ? AND deleted_at IS NULL", stored.ID).
			Update("deleted_at", ts)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errDuplicate
		}

		return applyCastReactionStats(tx, rr.Kind, &stored, -1)
	})

	stored.DeletedAt = &ts
	return p.finish(ctx, MsgTypeReactionRemove, err, &DomainEvent{
		Type:      EventReactionRemove,
		Fid:       stored.Fid,
		Timestamp: ts,
		Reaction:  &stored,
	})
}

func (p *Processor) handleURLReactionRemove(ctx context.Context, rr *ReactionRecord, ts time.Time) error {
	var stored models.URLReaction
	if err := p.db.Find(&stored, "target_url = ? AND reaction_type = ? AND fid = ?",
		rr.URL.TargetURL, rr.URL.ReactionType, rr.URL.Fid).Error; err != nil {
		return err
	}
	if !stored.Active() {
		duplicateMessages.WithLabelValues(MsgTypeReactionRemove).Inc()
		return nil
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.URLReaction{}).
			Where("id = ? AND deleted_at IS NULL", stored.ID).
			Update("deleted_at", ts)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errDuplicate
		}

		return bumpUserStats(tx, stored.Fid, rr.Kind.userDelta(-1))
	})

	stored.DeletedAt = &ts
	return p.finish(ctx, MsgTypeReactionRemove, err, &DomainEvent{
		Type:        EventReactionRemove,
		Fid:         stored.Fid,
		Timestamp:   ts,
		URLReaction: &stored,
	})
}

func (p *Processor) HandleLinkAdd(ctx context.Context, msg *Message) error {
	link := decodeLink(msg)
	if link == nil {
		slog.Debug("discarding malformed link add")
		skippedMessages.WithLabelValues(MsgTypeLinkAdd).Inc()
		return nil
	}

	var existing models.Link
	if err := p.db.Find(&existing, "fid = ? AND link_type = ? AND target_fid = ?",
		link.Fid, link.LinkType, link.TargetFid).Error; err != nil {
		return err
	}
	if existing.Active() {
		duplicateMessages.WithLabelValues(MsgTypeLinkAdd).Inc()
		return nil
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(link)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			upd := tx.Model(&models.Link{}).
				Where("fid = ? AND link_type = ? AND target_fid = ? AND deleted_at IS NOT NULL",
					link.Fid, link.LinkType, link.TargetFid).
				Updates(map[string]any{
					"timestamp":  link.Timestamp,
					"deleted_at": nil,
				})
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				return errDuplicate
			}
		}

		return applyLinkStats(tx, link, 1)
	})

	return p.finish(ctx, MsgTypeLinkAdd, err, &DomainEvent{
		Type:      EventLinkAdd,
		Fid:       link.Fid,
		Timestamp: link.Timestamp,
		Link:      link,
	})
}

func applyLinkStats(tx *gorm.DB, link *models.Link, dir int64) error {
	if link.LinkType != "follow" {
		return nil
	}
	if err := bumpUserStats(tx, link.Fid, userStatsDelta{following: dir}); err != nil {
		return err
	}
	return bumpUserStats(tx, link.TargetFid, userStatsDelta{followers: dir})
}

func (p *Processor) HandleLinkRemove(ctx context.Context, msg *Message) error {
	link := decodeLink(msg)
	if link == nil {
		slog.Debug("discarding malformed link remove")
		skippedMessages.WithLabelValues(MsgTypeLinkRemove).Inc()
		return nil
	}
	ts := protoTime(msg.Data.Timestamp)

	var stored models.Link
	if err := p.db.Find(&stored, "fid = ? AND link_type = ? AND target_fid = ?",
		link.Fid, link.LinkType, link.TargetFid).Error; err != nil {
		return err
	}
	if !stored.Active() {
		duplicateMessages.WithLabelValues(MsgTypeLinkRemove).Inc()
		return nil
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Link{}).
			Where("id = ? AND deleted_at IS NULL", stored.ID).
			Update("deleted_at", ts)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errDuplicate
		}

		return applyLinkStats(tx, &stored, -1)
	})

	stored.DeletedAt = &ts
	return p.finish(ctx, MsgTypeLinkRemove, err, &DomainEvent{
		Type:      EventLinkRemove,
		Fid:       stored.Fid,
		Timestamp: ts,
		Link:      &stored,
	})
}

func (p *Processor) HandleVerificationAdd(ctx context.Context, msg *Message) error {
	ver := decodeVerificationAdd(msg)
	if ver == nil {
		slog.Debug("discarding malformed verification add")
		skippedMessages.WithLabelValues(MsgTypeVerificationAdd).Inc()
		return nil
	}

	var existing models.Verification
	if err := p.db.Find(&existing, "fid = ? AND address = ?", ver.Fid, ver.Address).Error; err != nil {
		return err
	}
	if existing.Active() {
		duplicateMessages.WithLabelValues(MsgTypeVerificationAdd).Inc()
		return nil
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(ver)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			upd := tx.Model(&models.Verification{}).
				Where("fid = ? AND address = ? AND deleted_at IS NOT NULL", ver.Fid, ver.Address).
				Updates(map[string]any{
					"protocol":   ver.Protocol,
					"timestamp":  ver.Timestamp,
					"deleted_at": nil,
				})
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				return errDuplicate
			}
		}
		return nil
	})

	return p.finish(ctx, MsgTypeVerificationAdd, err, &DomainEvent{
		Type:         EventVerificationAdd,
		Fid:          ver.Fid,
		Timestamp:    ver.Timestamp,
		Verification: ver,
	})
}

func (p *Processor) HandleVerificationRemove(ctx context.Context, msg *Message) error {
	rm := decodeVerificationRemove(msg)
	if rm == nil {
		slog.Debug("discarding malformed verification remove")
		skippedMessages.WithLabelValues(MsgTypeVerificationRemove).Inc()
		return nil
	}

	var stored models.Verification
	if err := p.db.Find(&stored, "fid = ? AND address = ?", rm.Fid, rm.Address).Error; err != nil {
		return err
	}
	if !stored.Active() {
		duplicateMessages.WithLabelValues(MsgTypeVerificationRemove).Inc()
		return nil
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Verification{}).
			Where("id = ? AND deleted_at IS NULL", stored.ID).
			Update("deleted_at", rm.Timestamp)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errDuplicate
		}
		return nil
	})

	stored.DeletedAt = &rm.Timestamp
	return p.finish(ctx, MsgTypeVerificationRemove, err, &DomainEvent{
		Type:         EventVerificationRemove,
		Fid:          stored.Fid,
		Timestamp:    rm.Timestamp,
		Verification: &stored,
	})
}

func (p *Processor) HandleUserDataAdd(ctx context.Context, msg *Message) error {
	ud := decodeUserData(msg)
	if ud == nil {
		slog.Debug("discarding malformed user data")
		skippedMessages.WithLabelValues(MsgTypeUserDataAdd).Inc()
		return nil
	}

	// Last write wins, no soft-delete state for profile fields.
	if err := p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fid"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "timestamp"}),
	}).Create(ud).Error; err != nil {
		return err
	}

	return p.finish(ctx, MsgTypeUserDataAdd, nil, &DomainEvent{
		Type:      EventUserDataAdd,
		Fid:       ud.Fid,
		Timestamp: ud.Timestamp,
		UserData:  ud,
	})
}

func (p *Processor) HandleUsernameProof(ctx context.Context, msg *Message) error {
	proof := decodeUsernameProof(msg)
	if proof == nil {
		slog.Debug("discarding malformed username proof")
		skippedMessages.WithLabelValues(MsgTypeUsernameProof).Inc()
		return nil
	}

	if err := upsertUsernameProof(p.db, proof); err != nil {
		return err
	}

	return p.finish(ctx, MsgTypeUsernameProof, nil, &DomainEvent{
		Type:          EventUsernameProofAdd,
		Fid:           proof.Fid,
		Timestamp:     proof.Timestamp,
		UsernameProof: proof,
	})
}

func upsertUsernameProof(db *gorm.DB, proof *models.UsernameProof) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"fid", "timestamp"}),
	}).Create(proof).Error
}
