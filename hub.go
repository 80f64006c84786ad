package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// ErrCastNotFound is returned by CastByID when the hub does not know the
// message. Expected during root resolution; not a transport failure.
var ErrCastNotFound = errors.New("cast not found on hub")

// Protocol message type strings as the hub's HTTP API renders them.
const (
	MsgTypeCastAdd            = "MESSAGE_TYPE_CAST_ADD"
	MsgTypeCastRemove         = "MESSAGE_TYPE_CAST_REMOVE"
	MsgTypeReactionAdd        = "MESSAGE_TYPE_REACTION_ADD"
	MsgTypeReactionRemove     = "MESSAGE_TYPE_REACTION_REMOVE"
	MsgTypeLinkAdd            = "MESSAGE_TYPE_LINK_ADD"
	MsgTypeLinkRemove         = "MESSAGE_TYPE_LINK_REMOVE"
	MsgTypeVerificationAdd    = "MESSAGE_TYPE_VERIFICATION_ADD_ETH_ADDRESS"
	MsgTypeVerificationRemove = "MESSAGE_TYPE_VERIFICATION_REMOVE"
	MsgTypeUserDataAdd        = "MESSAGE_TYPE_USER_DATA_ADD"
	MsgTypeUsernameProof      = "MESSAGE_TYPE_USERNAME_PROOF"
)

const (
	ReactionTypeLike   = "REACTION_TYPE_LIKE"
	ReactionTypeRecast = "REACTION_TYPE_RECAST"
)

type CastID struct {
	Fid  uint64 `json:"fid"`
	Hash string `json:"hash"`
}

type Embed struct {
	URL    string  `json:"url,omitempty"`
	CastID *CastID `json:"castId,omitempty"`
}

type CastAddBody struct {
	Text              string   `json:"text"`
	Mentions          []uint64 `json:"mentions"`
	MentionsPositions []uint32 `json:"mentionsPositions"`
	ParentCastID      *CastID  `json:"parentCastId,omitempty"`
	ParentURL         string   `json:"parentUrl,omitempty"`
	Embeds            []Embed  `json:"embeds"`
}

type CastRemoveBody struct {
	TargetHash string `json:"targetHash"`
}

type ReactionBody struct {
	Type         string  `json:"type"`
	TargetCastID *CastID `json:"targetCastId,omitempty"`
	TargetURL    string  `json:"targetUrl,omitempty"`
}

type LinkBody struct {
	Type      string `json:"type"`
	TargetFid uint64 `json:"targetFid"`
}

type VerificationAddBody struct {
	Address  string `json:"address"`
	Protocol string `json:"protocol"`
}

type VerificationRemoveBody struct {
	Address  string `json:"address"`
	Protocol string `json:"protocol"`
}

type UserDataBody struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type UsernameProofBody struct {
	Name      string `json:"name"`
	Fid       uint64 `json:"fid"`
	Timestamp uint32 `json:"timestamp"`
}

type MessageData struct {
	Type      string `json:"type"`
	Fid       uint64 `json:"fid"`
	Timestamp uint32 `json:"timestamp"`

	CastAddBody            *CastAddBody            `json:"castAddBody,omitempty"`
	CastRemoveBody         *CastRemoveBody         `json:"castRemoveBody,omitempty"`
	ReactionBody           *ReactionBody           `json:"reactionBody,omitempty"`
	LinkBody               *LinkBody               `json:"linkBody,omitempty"`
	VerificationAddBody    *VerificationAddBody    `json:"verificationAddAddressBody,omitempty"`
	VerificationRemoveBody *VerificationRemoveBody `json:"verificationRemoveBody,omitempty"`
	UserDataBody           *UserDataBody           `json:"userDataBody,omitempty"`
	UsernameProofBody      *UsernameProofBody      `json:"usernameProofBody,omitempty"`
}

// Message is a raw protocol message as served by the hub's HTTP API.
type Message struct {
	Data *MessageData `json:"data"`
	Hash string       `json:"hash"`
}

type UsernameProofRecord struct {
	Name      string `json:"name"`
	Fid       uint64 `json:"fid"`
	Timestamp uint32 `json:"timestamp"`
}

const (
	HubEventTypeMergeMessage = "HUB_EVENT_TYPE_MERGE_MESSAGE"
)

type MergeMessageBody struct {
	Message *Message `json:"message"`
}

type HubEvent struct {
	ID               uint64            `json:"id"`
	Type             string            `json:"type"`
	MergeMessageBody *MergeMessageBody `json:"mergeMessageBody,omitempty"`
}

// HubClient is the read-only hub RPC surface the indexer needs. The hub is a
// possibly-unavailable remote; timeouts and not-found are routine.
type HubClient interface {
	CastByID(ctx context.Context, fid uint64, hash string) (*Message, error)

	CastsByFid(ctx context.Context, fid uint64, pageToken string) ([]*Message, string, error)
	ReactionsByFid(ctx context.Context, fid uint64, pageToken string) ([]*Message, string, error)
	LinksByFid(ctx context.Context, fid uint64, pageToken string) ([]*Message, string, error)
	VerificationsByFid(ctx context.Context, fid uint64, pageToken string) ([]*Message, string, error)
	UserDataByFid(ctx context.Context, fid uint64, pageToken string) ([]*Message, string, error)
	UsernameProofsByFid(ctx context.Context, fid uint64) ([]*UsernameProofRecord, error)

	Events(ctx context.Context, fromEventID uint64) ([]*HubEvent, uint64, error)
}

type HTTPHubClient struct {
	host   string
	client *http.Client
}

func NewHTTPHubClient(host string) *HTTPHubClient {
	return &HTTPHubClient{
		host: host,
		client: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

func (h *HTTPHubClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := h.host + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("hub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return ErrCastNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hub returned status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, out)
}

func (h *HTTPHubClient) CastByID(ctx context.Context, fid uint64, hash string) (*Message, error) {
	params := url.Values{}
	params.Set("fid", strconv.FormatUint(fid, 10))
	params.Set("hash", hash)

	var msg Message
	if err := h.get(ctx, "/v1/castById", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

type messagesPage struct {
	Messages      []*Message `json:"messages"`
	NextPageToken string     `json:"nextPageToken"`
}

func (h *HTTPHubClient) pagedMessages(ctx context.Context, path string, fid uint64, pageToken string) ([]*Message, string, error) {
	params := url.Values{}
	params.Set("fid", strconv.FormatUint(fid, 10))
	params.Set("pageSize", "100")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var page messagesPage
	if err := h.get(ctx, path, params, &page); err != nil {
		return nil, "", err
	}
	return page.Messages, page.NextPageToken, nil
}

func (h *HTTPHubClient) CastsByFid(ctx context.Context, fid uint64, pageToken string) ([]*Message, string, error) {
	return h.pagedMessages(ctx, "/v1/castsByFid", fid, pageToken)
}

func (h *HTTPHubClient) ReactionsByFid(ctx context.Context, fid uint64, pageToken string) ([]*Message, string, error) {
	return h.pagedMessages(ctx, "/v1/reactionsByFid", fid, pageToken)
}

func (h *HTTPHubClient) LinksByFid(ctx context.Context, fid uint64, pageToken string) ([]*Message, string, error) {
	return h.pagedMessages(ctx, "/v1/linksByFid", fid, pageToken)
}

func (h *HTTPHubClient) VerificationsByFid(ctx context.Context, fid uint64, pageToken string) ([]*Message, string, error) {
	return h.pagedMessages(ctx, "/v1/verificationsByFid", fid, pageToken)
}

func (h *HTTPHubClient) UserDataByFid(ctx context.Context, fid uint64, pageToken string) ([]*Message, string, error) {
	return h.pagedMessages(ctx, "/v1/userDataByFid", fid, pageToken)
}

func (h *HTTPHubClient) UsernameProofsByFid(ctx context.Context, fid uint64) ([]*UsernameProofRecord, error) {
	params := url.Values{}
	params.Set("fid", strconv.FormatUint(fid, 10))

	var out struct {
		Proofs []*UsernameProofRecord `json:"proofs"`
	}
	if err := h.get(ctx, "/v1/userNameProofsByFid", params, &out); err != nil {
		return nil, err
	}
	return out.Proofs, nil
}

func (h *HTTPHubClient) Events(ctx context.Context, fromEventID uint64) ([]*HubEvent, uint64, error) {
	params := url.Values{}
	if fromEventID > 0 {
		params.Set("from_event_id", strconv.FormatUint(fromEventID, 10))
	}

	var out struct {
		NextPageEventID uint64      `json:"nextPageEventId"`
		Events          []*HubEvent `json:"events"`
	}
	if err := h.get(ctx, "/v1/events", params, &out); err != nil {
		return nil, 0, err
	}
	return out.Events, out.NextPageEventID, nil
}
