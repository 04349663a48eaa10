package types

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// NodeAPIID names a remote API reachable on a node endpoint.
type NodeAPIID int

const (
	APIChainHeight NodeAPIID = iota + 1
	APIChainLastBlock
	APIChainBlocksAfter
	APIChainHashesFrom
	APIUnconfirmedTransactions
	APINodeInfo
	APINodePeerListActive
	APINodeExperiences
	APITimeSync
	APIPushBlocks
	APIPushTransactions
	APINodePing
)

var nodeAPIPaths = map[NodeAPIID]string{
	APIChainHeight:             "/chain/height",
	APIChainLastBlock:          "/chain/last-block",
	APIChainBlocksAfter:        "/chain/blocks-after",
	APIChainHashesFrom:         "/chain/hashes-from",
	APIUnconfirmedTransactions: "/transactions/unconfirmed",
	APINodeInfo:                "/node/info",
	APINodePeerListActive:      "/node/peer-list/active",
	APINodeExperiences:         "/node/experiences",
	APITimeSync:                "/time-sync/network-time",
	APIPushBlocks:              "/push/blocks",
	APIPushTransactions:        "/push/transactions",
	APINodePing:                "/node/ping",
}

// Path returns the URL path of the API.
func (id NodeAPIID) Path() string { return nodeAPIPaths[id] }

func (id NodeAPIID) String() string {
	if p, ok := nodeAPIPaths[id]; ok {
		return p
	}
	return "api(" + strconv.Itoa(int(id)) + ")"
}

// NodeEndpoint is the network location of a node.
type NodeEndpoint struct {
	Protocol string `json:"protocol"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
}

// NewNodeEndpoint validates and returns an endpoint.
func NewNodeEndpoint(protocol, host string, port int) (NodeEndpoint, error) {
	ep := NodeEndpoint{Protocol: protocol, Host: host, Port: port}
	return ep, ep.Validate()
}

// ParseNodeEndpoint parses "protocol://host:port".
func ParseNodeEndpoint(raw string) (NodeEndpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return NodeEndpoint{}, fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return NodeEndpoint{}, fmt.Errorf("invalid endpoint port %q: %w", raw, err)
	}

	return NewNodeEndpoint(u.Scheme, u.Hostname(), port)
}

// Validate performs basic validation.
func (ep NodeEndpoint) Validate() error {
	switch ep.Protocol {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported protocol %q", ep.Protocol)
	}
	if ep.Host == "" {
		return errors.New("no host")
	}
	if ep.Port <= 0 || ep.Port > 65535 {
		return fmt.Errorf("invalid port %d", ep.Port)
	}
	return nil
}

// BaseURL returns the root URL of the endpoint.
func (ep NodeEndpoint) BaseURL() string {
	u := url.URL{Scheme: ep.Protocol, Host: net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port))}
	return u.String()
}

// URL returns the URL of the given API on the endpoint.
func (ep NodeEndpoint) URL(api NodeAPIID) string {
	return ep.BaseURL() + api.Path()
}

func (ep NodeEndpoint) String() string { return ep.BaseURL() }
