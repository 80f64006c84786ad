package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/castaway-social/indexer/models"
)

var backfillRows = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "backfill_rows",
	Help: "Rows written during backfill, by record type",
}, []string{"type"})

// Backfiller hydrates an account's full history by paging the hub's per-type
// message sets. Bulk inserts skip duplicates at the constraint level and no
// stats or events are produced; counters are rebuilt separately, so backfill
// never pays per-message lookup cost.
type Backfiller struct {
	db       *gorm.DB
	hub      HubClient
	resolver *RootResolver

	resolveConcurrency int
	batchSize          int
}

func NewBackfiller(db *gorm.DB, hub HubClient, resolver *RootResolver) *Backfiller {
	return &Backfiller{
		db:                 db,
		hub:                hub,
		resolver:           resolver,
		resolveConcurrency: 10,
		batchSize:          100,
	}
}

type pageFunc func(ctx context.Context, fid uint64, pageToken string) ([]*Message, string, error)

func (b *Backfiller) eachPage(ctx context.Context, fid uint64, fetch pageFunc, handle func([]*Message) error) error {
	var tok string
	for {
		msgs, next, err := fetch(ctx, fid, tok)
		if err != nil {
			return err
		}
		if len(msgs) > 0 {
			if err := handle(msgs); err != nil {
				return err
			}
		}
		if next == "" {
			return nil
		}
		tok = next
	}
}

func (b *Backfiller) BackfillFid(ctx context.Context, fid uint64) error {
	if err := b.eachPage(ctx, fid, b.hub.CastsByFid, func(msgs []*Message) error {
		return b.backfillCastPage(ctx, msgs)
	}); err != nil {
		return fmt.Errorf("backfilling casts for fid %d: %w", fid, err)
	}

	if err := b.eachPage(ctx, fid, b.hub.ReactionsByFid, b.backfillReactionPage); err != nil {
		return fmt.Errorf("backfilling reactions for fid %d: %w", fid, err)
	}

	if err := b.eachPage(ctx, fid, b.hub.LinksByFid, b.backfillLinkPage); err != nil {
		return fmt.Errorf("backfilling links for fid %d: %w", fid, err)
	}

	if err := b.eachPage(ctx, fid, b.hub.VerificationsByFid, b.backfillVerificationPage); err != nil {
		return fmt.Errorf("backfilling verifications for fid %d: %w", fid, err)
	}

	if err := b.eachPage(ctx, fid, b.hub.UserDataByFid, b.backfillUserDataPage); err != nil {
		return fmt.Errorf("backfilling user data for fid %d: %w", fid, err)
	}

	proofs, err := b.hub.UsernameProofsByFid(ctx, fid)
	if err != nil {
		return fmt.Errorf("backfilling username proofs for fid %d: %w", fid, err)
	}
	for _, pr := range proofs {
		if pr == nil || pr.Name == "" {
			continue
		}
		if err := upsertUsernameProof(b.db, &models.UsernameProof{
			Username:  pr.Name,
			Fid:       pr.Fid,
			Timestamp: protoTime(pr.Timestamp),
		}); err != nil {
			return err
		}
		backfillRows.WithLabelValues("username_proof").Inc()
	}

	return nil
}

func (b *Backfiller) backfillCastPage(ctx context.Context, msgs []*Message) error {
	var recs []*CastRecord
	for _, msg := range msgs {
		if msg.Data == nil || msg.Data.Type != MsgTypeCastAdd {
			continue
		}
		if rec := decodeCastAdd(msg); rec != nil {
			recs = append(recs, rec)
		}
	}
	if len(recs) == 0 {
		return nil
	}

	// Roots are resolved inline, fanned out across the page.
	sema := make(chan bool, b.resolveConcurrency)
	errs := make([]error, len(recs))
	for i, rec := range recs {
		sema <- true
		go func(i int, rec *CastRecord) {
			defer func() { <-sema }()
			root, err := b.resolver.Resolve(ctx, &rec.Cast)
			if err != nil {
				errs[i] = err
				return
			}
			if root != nil {
				rec.Cast.RootParentFid = &root.Fid
				rec.Cast.RootParentHash = &root.Hash
				if root.URL != "" {
					u := root.URL
					rec.Cast.RootParentURL = &u
				}
			}
		}(i, rec)
	}
	for i := 0; i < b.resolveConcurrency; i++ {
		sema <- true
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	casts := make([]models.Cast, 0, len(recs))
	var embedCasts []models.CastEmbedCast
	var embedURLs []models.CastEmbedURL
	var mentions []models.CastMention
	stats := make([]models.CastStats, 0, len(recs))
	for _, rec := range recs {
		casts = append(casts, rec.Cast)
		embedCasts = append(embedCasts, rec.EmbedCasts...)
		embedURLs = append(embedURLs, rec.EmbedURLs...)
		mentions = append(mentions, rec.Mentions...)
		stats = append(stats, models.CastStats{CastHash: rec.Cast.Hash})
	}

	if err := b.bulkInsert(&casts, "cast", len(casts)); err != nil {
		return err
	}
	if err := b.bulkInsert(&embedCasts, "cast_embed_cast", len(embedCasts)); err != nil {
		return err
	}
	if err := b.bulkInsert(&embedURLs, "cast_embed_url", len(embedURLs)); err != nil {
		return err
	}
	if err := b.bulkInsert(&mentions, "cast_mention", len(mentions)); err != nil {
		return err
	}
	return b.bulkInsert(&stats, "cast_stats", len(stats))
}

func (b *Backfiller) backfillReactionPage(msgs []*Message) error {
	var castReactions []models.CastReaction
	var urlReactions []models.URLReaction
	for _, msg := range msgs {
		if msg.Data == nil || msg.Data.Type != MsgTypeReactionAdd {
			continue
		}
		rr := decodeReaction(msg)
		if rr == nil {
			continue
		}
		if rr.Cast != nil {
			castReactions = append(castReactions, *rr.Cast)
		} else {
			urlReactions = append(urlReactions, *rr.URL)
		}
	}

	if err := b.bulkInsert(&castReactions, "cast_reaction", len(castReactions)); err != nil {
		return err
	}
	return b.bulkInsert(&urlReactions, "url_reaction", len(urlReactions))
}

func (b *Backfiller) backfillLinkPage(msgs []*Message) error {
	var links []models.Link
	for _, msg := range msgs {
		if msg.Data == nil || msg.Data.Type != MsgTypeLinkAdd {
			continue
		}
		if link := decodeLink(msg); link != nil {
			links = append(links, *link)
		}
	}
	return b.bulkInsert(&links, "link", len(links))
}

func (b *Backfiller) backfillVerificationPage(msgs []*Message) error {
	var vers []models.Verification
	for _, msg := range msgs {
		if msg.Data == nil || msg.Data.Type != MsgTypeVerificationAdd {
			continue
		}
		if ver := decodeVerificationAdd(msg); ver != nil {
			vers = append(vers, *ver)
		}
	}
	return b.bulkInsert(&vers, "verification", len(vers))
}

func (b *Backfiller) backfillUserDataPage(msgs []*Message) error {
	for _, msg := range msgs {
		if msg.Data == nil || msg.Data.Type != MsgTypeUserDataAdd {
			continue
		}
		ud := decodeUserData(msg)
		if ud == nil {
			continue
		}
		if err := b.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fid"}, {Name: "type"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "timestamp"}),
		}).Create(ud).Error; err != nil {
			return err
		}
		backfillRows.WithLabelValues("user_data").Inc()
	}
	return nil
}

func (b *Backfiller) bulkInsert(batch any, label string, n int) error {
	if n == 0 {
		return nil
	}
	if err := b.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(batch, b.batchSize).Error; err != nil {
		return err
	}
	backfillRows.WithLabelValues(label).Add(float64(n))
	return nil
}

// GetOrCreateJob enqueues a backfill job for a fid, once.
func (b *Backfiller) GetOrCreateJob(fid uint64) error {
	return b.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.BackfillJob{
		Fid:   fid,
		State: models.BackfillStateEnqueued,
	}).Error
}

// Run claims and processes enqueued jobs until the context is done.
func (b *Backfiller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		claimed, err := b.claimNext()
		if err != nil {
			slog.Error("claiming backfill job failed", "err", err)
			time.Sleep(time.Second * 5)
			continue
		}
		if claimed == nil {
			time.Sleep(time.Second * 5)
			continue
		}

		start := time.Now()
		if err := b.BackfillFid(ctx, claimed.Fid); err != nil {
			slog.Error("backfill failed", "fid", claimed.Fid, "err", err)
			b.db.Model(&models.BackfillJob{}).Where("id = ?", claimed.ID).Updates(map[string]any{
				"state": models.BackfillStateFailed,
				"error": err.Error(),
			})
			continue
		}

		slog.Info("backfill complete", "fid", claimed.Fid, "took", time.Since(start))
		b.db.Model(&models.BackfillJob{}).Where("id = ?", claimed.ID).Update("state", models.BackfillStateComplete)
	}
}

func (b *Backfiller) claimNext() (*models.BackfillJob, error) {
	var job models.BackfillJob
	if err := b.db.Where("state = ?", models.BackfillStateEnqueued).Order("id").Limit(1).Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}

	// Conditional claim so concurrent runners never grab the same job.
	res := b.db.Model(&models.BackfillJob{}).
		Where("id = ? AND state = ?", job.ID, models.BackfillStateEnqueued).
		Update("state", models.BackfillStateInProgress)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &job, nil
}
