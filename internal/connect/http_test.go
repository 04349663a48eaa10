package connect

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
)

// serve starts a server and returns a node pointing at it.
func serve(t *testing.T, handler http.Handler) *types.Node {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	endpoint, err := types.ParseNodeEndpoint(server.URL)
	require.NoError(t, err)

	node := types.MakeTestNode("remote")
	node.SetEndpoint(endpoint)
	return node
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestHTTPConnector_ChainHeight(t *testing.T) {
	node := serve(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, types.APIChainHeight.Path(), r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		writeJSON(t, w, map[string]int64{"height": 1234})
	}))

	c := NewHTTPConnector(log.TestingLogger(), 0, 0)
	height, err := c.ChainHeight(context.Background(), node)
	require.NoError(t, err)
	require.EqualValues(t, 1234, height)
}

func TestHTTPConnector_BlocksAfter(t *testing.T) {
	blocks := []*types.Block{
		{Height: 11, Timestamp: time.Unix(100, 0).UTC()},
		{Height: 12, Timestamp: time.Unix(160, 0).UTC()},
	}
	node := serve(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req heightRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.EqualValues(t, 10, req.Height)

		writeJSON(t, w, map[string]interface{}{"data": blocks})
	}))

	c := NewHTTPConnector(log.TestingLogger(), 0, 0)
	received, err := c.BlocksAfter(context.Background(), node, 10)
	require.NoError(t, err)
	require.Len(t, received, 2)
	assert.EqualValues(t, 12, received[1].Height)
	assert.True(t, blocks[1].Timestamp.Equal(received[1].Timestamp))
}

func TestHTTPConnector_GetInfoAndExperiences(t *testing.T) {
	remote := types.MakeTestNode("remote")
	peer := types.MakeTestNode("peer")

	mux := http.NewServeMux()
	mux.HandleFunc(types.APINodeInfo.Path(), func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, remote)
	})
	mux.HandleFunc(types.APINodeExperiences.Path(), func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, trust.NodeExperiencesPair{
			Node:        remote,
			Experiences: []trust.NodeExperiencePair{{Node: peer, Experience: trust.NewNodeExperience(7, 2)}},
		})
	})
	node := serve(t, mux)

	c := NewHTTPConnector(log.TestingLogger(), 0, 0)

	info, err := c.GetInfo(context.Background(), node)
	require.NoError(t, err)
	require.True(t, info.Equal(remote))
	require.Equal(t, remote.MetaData(), info.MetaData())

	pair, err := c.GetNodeExperiences(context.Background(), node)
	require.NoError(t, err)
	require.True(t, pair.Node.Equal(remote))
	require.Len(t, pair.Experiences, 1)
	require.EqualValues(t, 7, pair.Experiences[0].Experience.SuccessfulCalls())
}

func TestHTTPConnector_Announce(t *testing.T) {
	received := make(chan []byte, 1)
	node := serve(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, types.APIPushTransactions.Path(), r.URL.Path)
		bz, err := ioutil.ReadAll(r.Body)
		require.NoError(t, err)
		received <- bz
	}))

	c := NewHTTPConnector(log.TestingLogger(), 0, 0)
	err := c.Announce(context.Background(), node, types.APIPushTransactions, map[string]int{"a": 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(<-received))
}

func TestHTTPConnector_ErrorClasses(t *testing.T) {
	t.Run("status code", func(t *testing.T) {
		node := serve(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		_, err := NewHTTPConnector(log.TestingLogger(), 0, 0).ChainHeight(context.Background(), node)
		require.True(t, errors.Is(err, ErrFatalPeer), err)
	})

	t.Run("malformed body", func(t *testing.T) {
		node := serve(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))

		_, err := NewHTTPConnector(log.TestingLogger(), 0, 0).ChainHeight(context.Background(), node)
		require.True(t, errors.Is(err, ErrFatalPeer), err)
	})

	t.Run("connection refused", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := listener.Addr().(*net.TCPAddr).Port
		require.NoError(t, listener.Close())

		node := types.MakeTestNode("gone")
		node.SetEndpoint(types.NodeEndpoint{Protocol: "http", Host: "127.0.0.1", Port: port})

		_, err = NewHTTPConnector(log.TestingLogger(), 0, 0).ChainHeight(context.Background(), node)
		require.True(t, errors.Is(err, ErrInactivePeer), err)
		require.Equal(t, types.NodeStatusInactive, NodeStatus(err))
		require.Equal(t, types.InteractionFailure, InteractionResult(err))
	})

	t.Run("slow peer", func(t *testing.T) {
		release := make(chan struct{})
		node := serve(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		// runs before the server is closed
		t.Cleanup(func() { close(release) })

		_, err := NewHTTPConnector(log.TestingLogger(), time.Second, 50*time.Millisecond).ChainHeight(context.Background(), node)
		require.True(t, errors.Is(err, ErrBusyPeer), err)
		require.Equal(t, types.NodeStatusBusy, NodeStatus(err))
		require.Equal(t, types.InteractionNeutral, InteractionResult(err))
	})
}

func TestInteractionResultAndNodeStatus(t *testing.T) {
	assert.Equal(t, types.InteractionSuccess, InteractionResult(nil))
	assert.Equal(t, types.NodeStatusActive, NodeStatus(nil))

	assert.Equal(t, types.InteractionFailure, InteractionResult(ErrFatalPeer))
	assert.Equal(t, types.NodeStatusFailure, NodeStatus(ErrFatalPeer))

	assert.Equal(t, types.InteractionNeutral, InteractionResult(context.Canceled))
}
