package main

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/castaway-social/indexer/models"
)

// Counter deltas are small typed structs so every stat mutation is spelled
// out at the call site; only non-zero fields turn into update expressions.

type castStatsDelta struct {
	likes   int64
	recasts int64
	replies int64
	quotes  int64
}

type userStatsDelta struct {
	casts           int64
	replies         int64
	repliesReceived int64
	likes           int64
	likesReceived   int64
	recasts         int64
	recastsReceived int64
	following       int64
	followers       int64
}

type parentURLStatsDelta struct {
	casts   int64
	replies int64
}

func (k ReactionKind) castDelta(n int64) castStatsDelta {
	switch k {
	case ReactionRecast:
		return castStatsDelta{recasts: n}
	default:
		return castStatsDelta{likes: n}
	}
}

func (k ReactionKind) userDelta(n int64) userStatsDelta {
	switch k {
	case ReactionRecast:
		return userStatsDelta{recasts: n}
	default:
		return userStatsDelta{likes: n}
	}
}

func (k ReactionKind) receivedDelta(n int64) userStatsDelta {
	switch k {
	case ReactionRecast:
		return userStatsDelta{recastsReceived: n}
	default:
		return userStatsDelta{likesReceived: n}
	}
}

func addExpr(upd map[string]any, col string, n int64) {
	if n != 0 {
		upd[col] = gorm.Expr(col+" + ?", n)
	}
}

func bumpCastStats(tx *gorm.DB, hash string, d castStatsDelta) error {
	upd := make(map[string]any)
	addExpr(upd, "likes", d.likes)
	addExpr(upd, "recasts", d.recasts)
	addExpr(upd, "replies", d.replies)
	addExpr(upd, "quotes", d.quotes)
	if len(upd) == 0 {
		return nil
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.CastStats{CastHash: hash}).Error; err != nil {
		return err
	}
	return tx.Model(&models.CastStats{}).Where("cast_hash = ?", hash).Updates(upd).Error
}

func bumpUserStats(tx *gorm.DB, fid uint64, d userStatsDelta) error {
	upd := make(map[string]any)
	addExpr(upd, "casts", d.casts)
	addExpr(upd, "replies", d.replies)
	addExpr(upd, "replies_received", d.repliesReceived)
	addExpr(upd, "likes", d.likes)
	addExpr(upd, "likes_received", d.likesReceived)
	addExpr(upd, "recasts", d.recasts)
	addExpr(upd, "recasts_received", d.recastsReceived)
	addExpr(upd, "following", d.following)
	addExpr(upd, "followers", d.followers)
	if len(upd) == 0 {
		return nil
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserStats{Fid: fid}).Error; err != nil {
		return err
	}
	return tx.Model(&models.UserStats{}).Where("fid = ?", fid).Updates(upd).Error
}

func bumpParentURLStats(tx *gorm.DB, url string, d parentURLStatsDelta) error {
	upd := make(map[string]any)
	addExpr(upd, "casts", d.casts)
	addExpr(upd, "replies", d.replies)
	if len(upd) == 0 {
		return nil
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.ParentURLStats{URL: url}).Error; err != nil {
		return err
	}
	return tx.Model(&models.ParentURLStats{}).Where("url = ?", url).Updates(upd).Error
}
