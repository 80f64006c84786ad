package main

import (
	"strings"
	"time"

	"github.com/castaway-social/indexer/models"
)

// Protocol timestamps count seconds from the Farcaster epoch.
var farcasterEpoch = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

func protoTime(ts uint32) time.Time {
	return farcasterEpoch.Add(time.Duration(ts) * time.Second)
}

// normalizeHex canonicalizes a hash or address to 0x-prefixed lowercase hex
// so every downstream comparison is plain string equality.
func normalizeHex(s string) string {
	s = strings.ToLower(s)
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return s
}

// ReactionKind is the protocol reaction type. Each kind maps to its stat
// columns through the typed delta helpers in stats.go, so handlers never
// index counters by runtime strings.
type ReactionKind int

const (
	ReactionLike   ReactionKind = 1
	ReactionRecast ReactionKind = 2
)

func reactionKindFromProto(s string) (ReactionKind, bool) {
	switch s {
	case ReactionTypeLike:
		return ReactionLike, true
	case ReactionTypeRecast:
		return ReactionRecast, true
	default:
		return 0, false
	}
}

// userDataTypeFromProto maps the hub's enum strings onto small stable ints
// for storage. Unknown types decode to 0 and are skipped.
func userDataTypeFromProto(s string) int {
	switch s {
	case "USER_DATA_TYPE_PFP":
		return 1
	case "USER_DATA_TYPE_DISPLAY":
		return 2
	case "USER_DATA_TYPE_BIO":
		return 3
	case "USER_DATA_TYPE_URL":
		return 5
	case "USER_DATA_TYPE_USERNAME":
		return 6
	default:
		return 0
	}
}

// CastRecord bundles a decoded cast with its owned child rows.
type CastRecord struct {
	Cast       models.Cast
	EmbedCasts []models.CastEmbedCast
	EmbedURLs  []models.CastEmbedURL
	Mentions   []models.CastMention
}

// decodeCastAdd turns a cast-add message into a CastRecord. Returns nil when
// the body is missing or unusable; malformed hub messages are routine and are
// skipped, never treated as failures.
func decodeCastAdd(msg *Message) *CastRecord {
	if msg == nil || msg.Data == nil || msg.Data.CastAddBody == nil || msg.Hash == "" {
		return nil
	}
	body := msg.Data.CastAddBody

	hash := normalizeHex(msg.Hash)
	rec := &CastRecord{
		Cast: models.Cast{
			Hash:      hash,
			Fid:       msg.Data.Fid,
			Text:      body.Text,
			Timestamp: protoTime(msg.Data.Timestamp),
		},
	}

	if body.ParentCastID != nil && body.ParentCastID.Hash != "" {
		ph := normalizeHex(body.ParentCastID.Hash)
		pf := body.ParentCastID.Fid
		rec.Cast.ParentHash = &ph
		rec.Cast.ParentFid = &pf
	}
	if body.ParentURL != "" {
		pu := body.ParentURL
		rec.Cast.ParentURL = &pu
	}

	for _, emb := range body.Embeds {
		switch {
		case emb.CastID != nil && emb.CastID.Hash != "":
			rec.EmbedCasts = append(rec.EmbedCasts, models.CastEmbedCast{
				CastHash:  hash,
				Fid:       msg.Data.Fid,
				EmbedHash: normalizeHex(emb.CastID.Hash),
				EmbedFid:  emb.CastID.Fid,
			})
		case emb.URL != "":
			rec.EmbedURLs = append(rec.EmbedURLs, models.CastEmbedURL{
				CastHash: hash,
				Fid:      msg.Data.Fid,
				URL:      emb.URL,
			})
		}
	}

	// Mention positions are byte offsets into the UTF-8 text, exactly as the
	// protocol hands them over.
	for i, mfid := range body.Mentions {
		if i >= len(body.MentionsPositions) {
			break
		}
		rec.Mentions = append(rec.Mentions, models.CastMention{
			CastHash:   hash,
			Fid:        msg.Data.Fid,
			MentionFid: mfid,
			Position:   body.MentionsPositions[i],
		})
	}

	return rec
}

// CastRemoveRecord is the key carried by a cast-remove plus the removal time.
type CastRemoveRecord struct {
	Fid        uint64
	TargetHash string
	Timestamp  time.Time
}

func decodeCastRemove(msg *Message) *CastRemoveRecord {
	if msg == nil || msg.Data == nil || msg.Data.CastRemoveBody == nil || msg.Data.CastRemoveBody.TargetHash == "" {
		return nil
	}
	return &CastRemoveRecord{
		Fid:        msg.Data.Fid,
		TargetHash: normalizeHex(msg.Data.CastRemoveBody.TargetHash),
		Timestamp:  protoTime(msg.Data.Timestamp),
	}
}

// ReactionRecord is a decoded reaction targeting either a cast or a URL;
// exactly one of Cast and URL is set.
type ReactionRecord struct {
	Kind ReactionKind
	Cast *models.CastReaction
	URL  *models.URLReaction
}

func decodeReaction(msg *Message) *ReactionRecord {
	if msg == nil || msg.Data == nil || msg.Data.ReactionBody == nil {
		return nil
	}
	body := msg.Data.ReactionBody

	kind, ok := reactionKindFromProto(body.Type)
	if !ok {
		return nil
	}

	ts := protoTime(msg.Data.Timestamp)
	switch {
	case body.TargetCastID != nil && body.TargetCastID.Hash != "":
		return &ReactionRecord{
			Kind: kind,
			Cast: &models.CastReaction{
				TargetHash:   normalizeHex(body.TargetCastID.Hash),
				ReactionType: int(kind),
				Fid:          msg.Data.Fid,
				TargetFid:    body.TargetCastID.Fid,
				Timestamp:    ts,
			},
		}
	case body.TargetURL != "":
		return &ReactionRecord{
			Kind: kind,
			URL: &models.URLReaction{
				TargetURL:    body.TargetURL,
				ReactionType: int(kind),
				Fid:          msg.Data.Fid,
				Timestamp:    ts,
			},
		}
	default:
		return nil
	}
}

func decodeLink(msg *Message) *models.Link {
	if msg == nil || msg.Data == nil || msg.Data.LinkBody == nil || msg.Data.LinkBody.Type == "" {
		return nil
	}
	body := msg.Data.LinkBody
	if body.TargetFid == 0 {
		return nil
	}
	return &models.Link{
		Fid:       msg.Data.Fid,
		LinkType:  body.Type,
		TargetFid: body.TargetFid,
		Timestamp: protoTime(msg.Data.Timestamp),
	}
}

func decodeVerificationAdd(msg *Message) *models.Verification {
	if msg == nil || msg.Data == nil || msg.Data.VerificationAddBody == nil || msg.Data.VerificationAddBody.Address == "" {
		return nil
	}
	body := msg.Data.VerificationAddBody
	return &models.Verification{
		Fid:       msg.Data.Fid,
		Address:   normalizeHex(body.Address),
		Protocol:  body.Protocol,
		Timestamp: protoTime(msg.Data.Timestamp),
	}
}

// VerificationRemoveRecord is the (fid, address) key carried by the remove.
type VerificationRemoveRecord struct {
	Fid       uint64
	Address   string
	Timestamp time.Time
}

func decodeVerificationRemove(msg *Message) *VerificationRemoveRecord {
	if msg == nil || msg.Data == nil || msg.Data.VerificationRemoveBody == nil || msg.Data.VerificationRemoveBody.Address == "" {
		return nil
	}
	return &VerificationRemoveRecord{
		Fid:       msg.Data.Fid,
		Address:   normalizeHex(msg.Data.VerificationRemoveBody.Address),
		Timestamp: protoTime(msg.Data.Timestamp),
	}
}

func decodeUserData(msg *Message) *models.UserData {
	if msg == nil || msg.Data == nil || msg.Data.UserDataBody == nil {
		return nil
	}
	typ := userDataTypeFromProto(msg.Data.UserDataBody.Type)
	if typ == 0 {
		return nil
	}
	return &models.UserData{
		Fid:       msg.Data.Fid,
		Type:      typ,
		Value:     msg.Data.UserDataBody.Value,
		Timestamp: protoTime(msg.Data.Timestamp),
	}
}

func decodeUsernameProof(msg *Message) *models.UsernameProof {
	if msg == nil || msg.Data == nil || msg.Data.UsernameProofBody == nil || msg.Data.UsernameProofBody.Name == "" {
		return nil
	}
	body := msg.Data.UsernameProofBody
	return &models.UsernameProof{
		Username:  body.Name,
		Fid:       body.Fid,
		Timestamp: protoTime(body.Timestamp),
	}
}
