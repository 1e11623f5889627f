package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Client is a read-only Backend over JSON-RPC. Every request is retried with
// exponential backoff; block timestamps and the chain id are cached.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger

	mu      sync.RWMutex
	chainID *big.Int
	tsCache map[uint64]uint64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetries sets the retry budget per request.
func WithRetries(maxRetries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// WithLogger logs failed attempts at warn level.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient dials rpcURL.
func NewClient(ctx context.Context, rpcURL string, opts ...ClientOption) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return NewClientFromRPC(rpcClient, opts...), nil
}

// NewClientFromRPC wraps an existing connection; Close closes it.
func NewClientFromRPC(rpcClient *rpc.Client, opts ...ClientOption) *Client {
	c := &Client{
		rpcClient:  rpcClient,
		ethClient:  ethclient.NewClient(rpcClient),
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
		logger:     zap.NewNop(),
		tsCache:    make(map[uint64]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) retry(ctx context.Context, method string, fn func(context.Context) error) error {
	attempt := 0
	return WithRetry(ctx, c.maxRetries, c.backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && attempt <= c.maxRetries {
			c.logger.Warn("rpc request failed", zap.String("method", method), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
}

// ChainID returns the remote chain id.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.RLock()
	cached := c.chainID
	c.mu.RUnlock()
	if cached != nil {
		return new(big.Int).Set(cached), nil
	}

	var id *big.Int
	err := c.retry(ctx, "eth_chainId", func(ctx context.Context) error {
		var err error
		id, err = c.ethClient.ChainID(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.chainID = id
	c.mu.Unlock()
	return new(big.Int).Set(id), nil
}

// LatestBlockNumber returns the head block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	err := c.retry(ctx, "eth_blockNumber", func(ctx context.Context) error {
		var err error
		number, err = c.ethClient.BlockNumber(ctx)
		return err
	})
	return number, err
}

// BlockTimestamp returns the timestamp of block number.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	err := c.retry(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
		header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			return err
		}
		ts = header.Time
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()
	return ts, nil
}

// CallContract performs an eth_call.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := c.retry(ctx, "eth_call", func(ctx context.Context) error {
		var err error
		out, err = c.ethClient.CallContract(ctx, msg, blockNumber)
		return err
	})
	return out, err
}
