package node

import (
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
)

// maxRequestBodySize bounds the body of pushed entities and list requests.
const maxRequestBodySize = 4 << 20

type heightRequest struct {
	Height int64 `json:"height"`
}

type heightResponse struct {
	Height int64 `json:"height"`
}

type listResponse struct {
	Data interface{} `json:"data"`
}

// apiHandler serves the node API other nodes reach through the HTTP
// connector.
type apiHandler struct {
	logger log.Logger
	node   *nodeImpl
}

func newAPIRouter(n *nodeImpl) http.Handler {
	h := &apiHandler{logger: n.logger.With("module", "api"), node: n}

	router := mux.NewRouter()
	router.HandleFunc(types.APIChainHeight.Path(), h.chainHeight).Methods(http.MethodGet)
	router.HandleFunc(types.APIChainLastBlock.Path(), h.lastBlock).Methods(http.MethodGet)
	router.HandleFunc(types.APIChainBlocksAfter.Path(), h.blocksAfter).Methods(http.MethodPost)
	router.HandleFunc(types.APIChainHashesFrom.Path(), h.hashesFrom).Methods(http.MethodPost)
	router.HandleFunc(types.APIUnconfirmedTransactions.Path(), h.unconfirmedTransactions).Methods(http.MethodGet)
	router.HandleFunc(types.APINodeInfo.Path(), h.nodeInfo).Methods(http.MethodGet)
	router.HandleFunc(types.APINodePeerListActive.Path(), h.activePeers).Methods(http.MethodGet)
	router.HandleFunc(types.APINodeExperiences.Path(), h.experiences).Methods(http.MethodGet)
	router.HandleFunc(types.APITimeSync.Path(), h.networkTime).Methods(http.MethodGet)
	router.HandleFunc(types.APIPushBlocks.Path(), h.pushBlocks).Methods(http.MethodPost)
	router.HandleFunc(types.APIPushTransactions.Path(), h.pushTransactions).Methods(http.MethodPost)
	router.HandleFunc(types.APINodePing.Path(), h.ping).Methods(http.MethodGet)

	router.Use(bodySizeLimitMiddleware(maxRequestBodySize))
	if limit := n.config.Peer.APIRateLimit; limit > 0 {
		router.Use(rateLimitMiddleware(newIPRateLimiter(limit)))
	}
	return router
}

func (h *apiHandler) chainHeight(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, heightResponse{Height: h.node.chain.Height()})
}

func (h *apiHandler) lastBlock(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.node.chain.LastBlock())
}

func (h *apiHandler) blocksAfter(w http.ResponseWriter, r *http.Request) {
	var req heightRequest
	if !h.decode(w, r, &req) {
		return
	}
	blocks := h.node.chain.BlocksAfter(req.Height, h.node.config.Sync.MaxHashes)
	h.writeJSON(w, listResponse{Data: nonNilBlocks(blocks)})
}

func (h *apiHandler) hashesFrom(w http.ResponseWriter, r *http.Request) {
	var req heightRequest
	if !h.decode(w, r, &req) {
		return
	}
	hashes := h.node.chain.HashesFrom(req.Height, h.node.config.Sync.MaxHashes)
	if hashes == nil {
		hashes = types.HashChain{}
	}
	h.writeJSON(w, listResponse{Data: hashes})
}

func (h *apiHandler) unconfirmedTransactions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, listResponse{Data: h.node.pool.Transactions()})
}

func (h *apiHandler) nodeInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.node.localNode)
}

func (h *apiHandler) activePeers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, listResponse{Data: h.node.state.Nodes().ActiveNodes()})
}

func (h *apiHandler) experiences(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.node.state.LocalNodeExperiences())
}

// networkTime answers a time synchronization request. Both stamps are taken
// in network time, the receive stamp first.
func (h *apiHandler) networkTime(w http.ResponseWriter, r *http.Request) {
	stamps := types.CommunicationTimeStamps{ReceiveTimeStamp: h.node.networkTime.Now()}
	stamps.SendTimeStamp = h.node.networkTime.Now()
	h.writeJSON(w, stamps)
}

// pushBlocks appends announced blocks extending the local chain and queues
// them for further broadcast.
func (h *apiHandler) pushBlocks(w http.ResponseWriter, r *http.Request) {
	var blocks []*types.Block
	if !h.decode(w, r, &blocks) {
		return
	}

	result := h.node.acceptBlocks(r.Context(), blocks)
	h.writeValidationResult(w, result)
}

// pushTransactions adds announced transactions to the pool and queues the new
// ones for further broadcast.
func (h *apiHandler) pushTransactions(w http.ResponseWriter, r *http.Request) {
	var txs []*types.Transaction
	if !h.decode(w, r, &txs) {
		return
	}

	result := h.node.acceptTransactions(txs)
	h.writeValidationResult(w, result)
}

func (h *apiHandler) ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *apiHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debug("invalid request body", "path", r.URL.Path, "err", err)
		if strings.Contains(err.Error(), "request body too large") {
			http.Error(w, "Payload Too Large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *apiHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", "err", err)
	}
}

func (h *apiHandler) writeValidationResult(w http.ResponseWriter, result types.ValidationResult) {
	if result.IsFailure() {
		http.Error(w, result.String(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, struct {
		Result string `json:"result"`
	}{result.String()})
}

func nonNilBlocks(blocks []*types.Block) []*types.Block {
	if blocks == nil {
		return []*types.Block{}
	}
	return blocks
}

func sortBlocks(blocks []*types.Block) {
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Height < blocks[j].Height })
}

// ipRateLimiter keeps one token bucket per client address.
type ipRateLimiter struct {
	mtx      sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newIPRateLimiter(requestsPerMinute int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    requestsPerMinute,
	}
}

func (l *ipRateLimiter) limiter(ip string) *rate.Limiter {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

func rateLimitMiddleware(limiter *ipRateLimiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.limiter(clientIP(r)).Allow() {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bodySizeLimitMiddleware(maxBytes int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP uses the connection address. Forwarding headers are ignored since
// nodes talk to each other directly.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
