package main

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtoTime(t *testing.T) {
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), protoTime(0))
	assert.Equal(t, time.Date(2021, 1, 1, 0, 1, 40, 0, time.UTC), protoTime(100))
}

func TestNormalizeHex(t *testing.T) {
	assert.Equal(t, "0xabcdef", normalizeHex("0xABCDEF"))
	assert.Equal(t, "0xabcdef", normalizeHex("ABCDef"))
	assert.Equal(t, "0x1234", normalizeHex("0x1234"))
}

func TestDecodeCastAdd(t *testing.T) {
	msg := msgCastAdd(7, "0xDEADBEEF", 1000, &CastAddBody{
		Text:              "hello @alice",
		Mentions:          []uint64{42},
		MentionsPositions: []uint32{6},
		ParentCastID:      &CastID{Fid: 9, Hash: "0xCAFE"},
		Embeds: []Embed{
			{URL: "https://example.com"},
			{CastID: &CastID{Fid: 11, Hash: "0xF00D"}},
		},
	})

	rec := decodeCastAdd(msg)
	require.NotNil(t, rec)

	assert.Equal(t, "0xdeadbeef", rec.Cast.Hash)
	assert.Equal(t, uint64(7), rec.Cast.Fid)
	assert.Equal(t, "hello @alice", rec.Cast.Text)
	assert.Equal(t, protoTime(1000), rec.Cast.Timestamp)

	require.NotNil(t, rec.Cast.ParentHash)
	assert.Equal(t, "0xcafe", *rec.Cast.ParentHash)
	assert.Equal(t, uint64(9), *rec.Cast.ParentFid)
	assert.Nil(t, rec.Cast.ParentURL)

	require.Len(t, rec.EmbedURLs, 1)
	assert.Equal(t, "https://example.com", rec.EmbedURLs[0].URL)
	require.Len(t, rec.EmbedCasts, 1)
	assert.Equal(t, "0xf00d", rec.EmbedCasts[0].EmbedHash)
	assert.Equal(t, uint64(11), rec.EmbedCasts[0].EmbedFid)

	// Byte offsets pass through untouched.
	require.Len(t, rec.Mentions, 1)
	assert.Equal(t, uint64(42), rec.Mentions[0].MentionFid)
	assert.Equal(t, uint32(6), rec.Mentions[0].Position)
}

func TestDecodeCastAddChannel(t *testing.T) {
	msg := msgCastAdd(7, "0x01", 0, &CastAddBody{
		Text:      "gm",
		ParentURL: "https://warpcast.com/~/channel/dev",
	})

	rec := decodeCastAdd(msg)
	require.NotNil(t, rec)
	assert.Nil(t, rec.Cast.ParentHash)
	require.NotNil(t, rec.Cast.ParentURL)
	assert.Equal(t, "https://warpcast.com/~/channel/dev", *rec.Cast.ParentURL)
	assert.False(t, rec.Cast.IsReply())
}

func TestDecodeCastAddMalformed(t *testing.T) {
	assert.Nil(t, decodeCastAdd(nil))
	assert.Nil(t, decodeCastAdd(&Message{Hash: "0x01"}))
	assert.Nil(t, decodeCastAdd(&Message{Hash: "0x01", Data: &MessageData{Type: MsgTypeCastAdd}}))
	assert.Nil(t, decodeCastAdd(&Message{Data: &MessageData{CastAddBody: &CastAddBody{Text: "x"}}}))
}

func TestDecodeCastAddMentionsWithoutPositions(t *testing.T) {
	msg := msgCastAdd(7, "0x01", 0, &CastAddBody{
		Text:     "hi",
		Mentions: []uint64{1, 2, 3},
		// positions truncated; trailing mentions are dropped rather than
		// guessed at
		MentionsPositions: []uint32{0},
	})

	rec := decodeCastAdd(msg)
	require.NotNil(t, rec)
	require.Len(t, rec.Mentions, 1)
	assert.Equal(t, uint64(1), rec.Mentions[0].MentionFid)
}

func TestDecodeCastRemove(t *testing.T) {
	rm := decodeCastRemove(msgCastRemove(5, "0xBEEF", 77))
	require.NotNil(t, rm)
	assert.Equal(t, "0xbeef", rm.TargetHash)
	assert.Equal(t, uint64(5), rm.Fid)
	assert.Equal(t, protoTime(77), rm.Timestamp)

	assert.Nil(t, decodeCastRemove(&Message{Data: &MessageData{Type: MsgTypeCastRemove}}))
}

func TestDecodeReaction(t *testing.T) {
	rr := decodeReaction(msgReaction(MsgTypeReactionAdd, 3, 10, &ReactionBody{
		Type:         ReactionTypeLike,
		TargetCastID: &CastID{Fid: 8, Hash: "0xAB"},
	}))
	require.NotNil(t, rr)
	assert.Equal(t, ReactionLike, rr.Kind)
	require.NotNil(t, rr.Cast)
	assert.Nil(t, rr.URL)
	assert.Equal(t, "0xab", rr.Cast.TargetHash)
	assert.Equal(t, uint64(8), rr.Cast.TargetFid)
	assert.Equal(t, uint64(3), rr.Cast.Fid)

	rr = decodeReaction(msgReaction(MsgTypeReactionAdd, 3, 10, &ReactionBody{
		Type:      ReactionTypeRecast,
		TargetURL: "https://example.com/a",
	}))
	require.NotNil(t, rr)
	assert.Equal(t, ReactionRecast, rr.Kind)
	require.NotNil(t, rr.URL)
	assert.Nil(t, rr.Cast)

	// Unknown kind or missing target is a skip.
	assert.Nil(t, decodeReaction(msgReaction(MsgTypeReactionAdd, 3, 10, &ReactionBody{Type: "REACTION_TYPE_NONE", TargetURL: "x"})))
	assert.Nil(t, decodeReaction(msgReaction(MsgTypeReactionAdd, 3, 10, &ReactionBody{Type: ReactionTypeLike})))
}

func TestDecodeLink(t *testing.T) {
	link := decodeLink(msgLink(MsgTypeLinkAdd, 1, 2, 5))
	require.NotNil(t, link)
	assert.Equal(t, "follow", link.LinkType)
	assert.Equal(t, uint64(1), link.Fid)
	assert.Equal(t, uint64(2), link.TargetFid)

	assert.Nil(t, decodeLink(&Message{Data: &MessageData{Type: MsgTypeLinkAdd, LinkBody: &LinkBody{Type: "follow"}}}))
	assert.Nil(t, decodeLink(&Message{Data: &MessageData{Type: MsgTypeLinkAdd}}))
}

func TestDecodeVerification(t *testing.T) {
	ver := decodeVerificationAdd(&Message{
		Hash: "0x99",
		Data: &MessageData{
			Type:      MsgTypeVerificationAdd,
			Fid:       4,
			Timestamp: 1,
			VerificationAddBody: &VerificationAddBody{
				Address:  "0xD8DA6BF26964AF9D7EED9E03E53415D37AA96045",
				Protocol: "PROTOCOL_ETHEREUM",
			},
		},
	})
	require.NotNil(t, ver)
	assert.Equal(t, "0xd8da6bf26964af9d7eed9e03e53415d37aa96045", ver.Address)

	rm := decodeVerificationRemove(&Message{
		Hash: "0x98",
		Data: &MessageData{
			Type:                   MsgTypeVerificationRemove,
			Fid:                    4,
			VerificationRemoveBody: &VerificationRemoveBody{Address: "0xD8DA"},
		},
	})
	require.NotNil(t, rm)
	assert.Equal(t, "0xd8da", rm.Address)
}

func TestDecodeUserData(t *testing.T) {
	ud := decodeUserData(&Message{
		Hash: "0x97",
		Data: &MessageData{
			Type:         MsgTypeUserDataAdd,
			Fid:          4,
			UserDataBody: &UserDataBody{Type: "USER_DATA_TYPE_DISPLAY", Value: "Alice"},
		},
	})
	require.NotNil(t, ud)
	assert.Equal(t, 2, ud.Type)
	assert.Equal(t, "Alice", ud.Value)

	assert.Nil(t, decodeUserData(&Message{
		Data: &MessageData{UserDataBody: &UserDataBody{Type: "USER_DATA_TYPE_BANNER_WEIRD", Value: "x"}},
	}))
}

func TestDecodeUsernameProof(t *testing.T) {
	proof := decodeUsernameProof(&Message{
		Hash: "0x96",
		Data: &MessageData{
			Type:              MsgTypeUsernameProof,
			Fid:               4,
			UsernameProofBody: &UsernameProofBody{Name: "alice", Fid: 4, Timestamp: 100},
		},
	})
	require.NotNil(t, proof)
	assert.Equal(t, "alice", proof.Username)
	assert.Equal(t, protoTime(100), proof.Timestamp)
}

func TestDecodeWireMessage(t *testing.T) {
	// A cast add as the hub HTTP API renders it.
	raw := `{
		"data": {
			"type": "MESSAGE_TYPE_CAST_ADD",
			"fid": 2,
			"timestamp": 48994466,
			"castAddBody": {
				"text": "cast text",
				"mentions": [3],
				"mentionsPositions": [5],
				"parentCastId": {"fid": 226, "hash": "0xA48DD46161D8E57725F5E26E34EC19C13FF7F3B9"},
				"embeds": [{"url": "https://example.com"}]
			}
		},
		"hash": "0xD2B1DDC6C88E865A33CB1A565E0058D757042974"
	}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	rec := decodeCastAdd(&msg)
	require.NotNil(t, rec)
	assert.Equal(t, "0xd2b1ddc6c88e865a33cb1a565e0058d757042974", rec.Cast.Hash)
	require.NotNil(t, rec.Cast.ParentHash)
	assert.Equal(t, "0xa48dd46161d8e57725f5e26e34ec19c13ff7f3b9", *rec.Cast.ParentHash)
	assert.Equal(t, uint64(226), *rec.Cast.ParentFid)
	require.Len(t, rec.Mentions, 1)
	assert.Equal(t, uint32(5), rec.Mentions[0].Position)
}
