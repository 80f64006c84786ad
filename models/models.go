package models

import (
	"time"
)

// Cast is a post or reply. Hash is the protocol message hash, 0x-prefixed
// lowercase hex, and is the natural key for everything cast-related.
type Cast struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time

	Hash      string `gorm:"uniqueIndex"`
	Fid       uint64 `gorm:"index"`
	Text      string
	Timestamp time.Time

	ParentHash *string
	ParentFid  *uint64
	ParentURL  *string

	// Root of the whole thread, resolved once at insert time. Left null when
	// the ancestor chain could not be fetched.
	RootParentHash *string
	RootParentFid  *uint64
	RootParentURL  *string

	DeletedAt *time.Time
}

func (c *Cast) Active() bool {
	return c.ID != 0 && c.DeletedAt == nil
}

func (c *Cast) IsReply() bool {
	return c.ParentHash != nil
}

// CastEmbedCast is a quote: a cast embedding another cast by hash.
type CastEmbedCast struct {
	ID        uint   `gorm:"primarykey"`
	CastHash  string `gorm:"index"`
	Fid       uint64
	EmbedHash string `gorm:"index"`
	EmbedFid  uint64
	DeletedAt *time.Time
}

type CastEmbedURL struct {
	ID        uint   `gorm:"primarykey"`
	CastHash  string `gorm:"index"`
	Fid       uint64
	URL       string
	DeletedAt *time.Time
}

// CastMention records an @mention. Position is a byte offset into the UTF-8
// cast text, carried through from the protocol untouched.
type CastMention struct {
	ID         uint   `gorm:"primarykey"`
	CastHash   string `gorm:"index"`
	Fid        uint64
	MentionFid uint64
	Position   uint32
	DeletedAt  *time.Time
}

// CastStats is a derived counter cache per cast hash. Not authoritative;
// maintained in lockstep with cast/reaction lifecycle by the processor.
type CastStats struct {
	CastHash string `gorm:"primaryKey"`
	Likes    int64
	Recasts  int64
	Replies  int64
	Quotes   int64
}

type UserStats struct {
	Fid             uint64 `gorm:"primaryKey"`
	Casts           int64
	Replies         int64
	RepliesReceived int64
	Likes           int64
	LikesReceived   int64
	Recasts         int64
	RecastsReceived int64
	Following       int64
	Followers       int64
}

// ParentURLStats tracks channel activity keyed by parent URL.
type ParentURLStats struct {
	URL     string `gorm:"primaryKey;column:url"`
	Casts   int64
	Replies int64
}

func (ParentURLStats) TableName() string {
	return "parent_url_stats"
}

// Link is a directed fid->fid edge, e.g. a follow.
type Link struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	Fid       uint64 `gorm:"uniqueIndex:idx_link_key"`
	LinkType  string `gorm:"uniqueIndex:idx_link_key"`
	TargetFid uint64 `gorm:"uniqueIndex:idx_link_key"`
	Timestamp time.Time
	DeletedAt *time.Time
}

func (l *Link) Active() bool {
	return l.ID != 0 && l.DeletedAt == nil
}

// CastReaction is a like or recast on a cast. TargetFid is the cast author,
// denormalized at add time so removes can decrement received counts without
// another lookup.
type CastReaction struct {
	ID           uint `gorm:"primarykey"`
	CreatedAt    time.Time
	TargetHash   string `gorm:"uniqueIndex:idx_cast_reaction_key"`
	ReactionType int    `gorm:"uniqueIndex:idx_cast_reaction_key"`
	Fid          uint64 `gorm:"uniqueIndex:idx_cast_reaction_key"`
	TargetFid    uint64
	Timestamp    time.Time
	DeletedAt    *time.Time
}

func (r *CastReaction) Active() bool {
	return r.ID != 0 && r.DeletedAt == nil
}

type URLReaction struct {
	ID           uint `gorm:"primarykey"`
	CreatedAt    time.Time
	TargetURL    string `gorm:"uniqueIndex:idx_url_reaction_key"`
	ReactionType int    `gorm:"uniqueIndex:idx_url_reaction_key"`
	Fid          uint64 `gorm:"uniqueIndex:idx_url_reaction_key"`
	Timestamp    time.Time
	DeletedAt    *time.Time
}

func (r *URLReaction) Active() bool {
	return r.ID != 0 && r.DeletedAt == nil
}

// Verification proves an fid controls an on-chain address.
type Verification struct {
	ID        uint   `gorm:"primarykey"`
	CreatedAt time.Time
	Fid       uint64 `gorm:"uniqueIndex:idx_verification_key"`
	Address   string `gorm:"uniqueIndex:idx_verification_key"`
	Protocol  string
	Timestamp time.Time
	DeletedAt *time.Time
}

func (v *Verification) Active() bool {
	return v.ID != 0 && v.DeletedAt == nil
}

// UserData is a single-valued profile field, last write wins. No soft delete
// in the protocol for these.
type UserData struct {
	ID        uint   `gorm:"primarykey"`
	Fid       uint64 `gorm:"uniqueIndex:idx_user_data_key"`
	Type      int    `gorm:"uniqueIndex:idx_user_data_key"`
	Value     string
	Timestamp time.Time
}

type UsernameProof struct {
	ID        uint   `gorm:"primarykey"`
	Username  string `gorm:"uniqueIndex"`
	Fid       uint64
	Timestamp time.Time
}

// HubCursor is the single-row record of the last hub event id we consumed.
type HubCursor struct {
	ID  uint `gorm:"primarykey"`
	Val uint64
}

const (
	BackfillStateEnqueued   = "enqueued"
	BackfillStateInProgress = "in_progress"
	BackfillStateComplete   = "complete"
	BackfillStateFailed     = "failed"
)

type BackfillJob struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Fid       uint64 `gorm:"uniqueIndex"`
	State     string `gorm:"index"`
	Error     string
}
