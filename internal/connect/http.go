package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/context/ctxhttp"

	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
)

const (
	// DefaultConnectTimeout bounds establishing a connection.
	DefaultConnectTimeout = 2 * time.Second
	// DefaultReadTimeout bounds waiting for the response once connected.
	DefaultReadTimeout = 10 * time.Second

	maxResponseSize = 16 << 20
	contentTypeJSON = "application/json"
)

// HTTPConnector is a Connector talking JSON over HTTP. Every call gets its
// own connect and read deadline.
//
// HTTPConnector is safe for concurrent use by multiple goroutines.
type HTTPConnector struct {
	logger         log.Logger
	client         *http.Client
	connectTimeout time.Duration
	readTimeout    time.Duration
}

var _ Connector = (*HTTPConnector)(nil)

// NewHTTPConnector creates a connector with the given timeouts. Zero values
// select the defaults.
func NewHTTPConnector(logger log.Logger, connectTimeout, readTimeout time.Duration) *HTTPConnector {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: readTimeout,
	}

	return &HTTPConnector{
		logger:         logger.With("module", "connector"),
		client:         &http.Client{Transport: transport},
		connectTimeout: connectTimeout,
		readTimeout:    readTimeout,
	}
}

type heightResponse struct {
	Height int64 `json:"height"`
}

type heightRequest struct {
	Height int64 `json:"height"`
}

type listResponse struct {
	Data json.RawMessage `json:"data"`
}

func (c *HTTPConnector) ChainHeight(ctx context.Context, node *types.Node) (int64, error) {
	var resp heightResponse
	if err := c.get(ctx, node, types.APIChainHeight, &resp); err != nil {
		return 0, err
	}
	return resp.Height, nil
}

func (c *HTTPConnector) LastBlock(ctx context.Context, node *types.Node) (*types.Block, error) {
	block := new(types.Block)
	if err := c.get(ctx, node, types.APIChainLastBlock, block); err != nil {
		return nil, err
	}
	return block, nil
}

func (c *HTTPConnector) BlocksAfter(ctx context.Context, node *types.Node, height int64) ([]*types.Block, error) {
	var blocks []*types.Block
	if err := c.postList(ctx, node, types.APIChainBlocksAfter, heightRequest{Height: height}, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (c *HTTPConnector) HashChain(ctx context.Context, node *types.Node, height int64) (types.HashChain, error) {
	var hashes types.HashChain
	if err := c.postList(ctx, node, types.APIChainHashesFrom, heightRequest{Height: height}, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

func (c *HTTPConnector) UnconfirmedTransactions(ctx context.Context, node *types.Node) ([]*types.Transaction, error) {
	var resp listResponse
	if err := c.get(ctx, node, types.APIUnconfirmedTransactions, &resp); err != nil {
		return nil, err
	}

	var txs []*types.Transaction
	if err := decodeList(resp, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *HTTPConnector) GetInfo(ctx context.Context, node *types.Node) (*types.Node, error) {
	info := new(types.Node)
	if err := c.get(ctx, node, types.APINodeInfo, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *HTTPConnector) GetKnownPeers(ctx context.Context, node *types.Node) ([]*types.Node, error) {
	var resp listResponse
	if err := c.get(ctx, node, types.APINodePeerListActive, &resp); err != nil {
		return nil, err
	}

	var peers []*types.Node
	if err := decodeList(resp, &peers); err != nil {
		return nil, err
	}
	return peers, nil
}

func (c *HTTPConnector) GetNodeExperiences(ctx context.Context, node *types.Node) (trust.NodeExperiencesPair, error) {
	var pair trust.NodeExperiencesPair
	if err := c.get(ctx, node, types.APINodeExperiences, &pair); err != nil {
		return trust.NodeExperiencesPair{}, err
	}
	if pair.Node == nil {
		return trust.NodeExperiencesPair{}, errors.Wrap(ErrFatalPeer, "experiences without a node")
	}
	return pair, nil
}

func (c *HTTPConnector) Announce(ctx context.Context, node *types.Node, messageType types.NodeAPIID, entity interface{}) error {
	return c.post(ctx, node, messageType, entity, nil)
}

func (c *HTTPConnector) GetCommunicationTimeStamps(ctx context.Context, node *types.Node) (types.CommunicationTimeStamps, error) {
	var stamps types.CommunicationTimeStamps
	if err := c.get(ctx, node, types.APITimeSync, &stamps); err != nil {
		return types.CommunicationTimeStamps{}, err
	}
	return stamps, nil
}

func (c *HTTPConnector) get(ctx context.Context, node *types.Node, api types.NodeAPIID, result interface{}) error {
	return c.do(ctx, node, api, http.MethodGet, nil, result)
}

func (c *HTTPConnector) post(ctx context.Context, node *types.Node, api types.NodeAPIID, body, result interface{}) error {
	bz, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}
	return c.do(ctx, node, api, http.MethodPost, bz, result)
}

func (c *HTTPConnector) postList(ctx context.Context, node *types.Node, api types.NodeAPIID, body, result interface{}) error {
	var resp listResponse
	if err := c.post(ctx, node, api, body, &resp); err != nil {
		return err
	}
	return decodeList(resp, result)
}

func (c *HTTPConnector) do(
	ctx context.Context,
	node *types.Node,
	api types.NodeAPIID,
	method string,
	body []byte,
	result interface{},
) error {
	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout+c.readTimeout)
	defer cancel()

	url := node.Endpoint().URL(api)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := ctxhttp.Do(ctx, c.client, req)
	if err != nil {
		err = classify(err)
		c.logger.Debug("request failed", "url", url, "err", err)
		return err
	}
	defer resp.Body.Close() // nolint: errcheck

	bz, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Wrapf(ErrFatalPeer, "%s returned status %d", url, resp.StatusCode)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(bz, result); err != nil {
		return errors.Wrapf(ErrFatalPeer, "failed to decode %s response: %v", api, err)
	}
	return nil
}

func decodeList(resp listResponse, result interface{}) error {
	if len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, result); err != nil {
		return errors.Wrapf(ErrFatalPeer, "failed to decode list: %v", err)
	}
	return nil
}

// classify maps transport errors onto the peer error classes. Failing to
// connect makes the peer inactive, timing out afterwards makes it busy.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return errors.Wrap(ErrInactivePeer, err.Error())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errors.Wrap(ErrBusyPeer, err.Error())
	}

	return errors.Wrap(ErrInactivePeer, err.Error())
}
