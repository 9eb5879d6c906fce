package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/dxsocial/backend/internal/config"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/dxsocial/backend/pkg/retry"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// ErrNoSigner is returned by write calls when no platform key is loaded.
var ErrNoSigner = errors.New("platform signer is not configured")

const (
	txMaxRetries = 3
	txRetryDelay = time.Second
)

type contract struct {
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
}

// Client wraps an ethclient connection and the four platform contracts.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	key     *ecdsa.PrivateKey

	dxToken      contract
	nftMedia     contract
	marketplace  contract
	subscription contract
	decoder      *eventDecoder

	// serialises submissions so the pending nonce is read once per tx
	txMu sync.Mutex
}

// NewClient dials the RPC endpoint. key may be nil for a read-only client.
func NewClient(ctx context.Context, cfg *config.Config, key *ecdsa.PrivateKey) (*Client, error) {
	if !cfg.Contracts.Complete() {
		return nil, errors.New("contract addresses are not configured")
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %v", cfg.RPCURL, err)
	}

	abis, err := ParseABIs()
	if err != nil {
		return nil, err
	}

	bindTo := func(hexAddr string, parsed abi.ABI) contract {
		address := common.HexToAddress(hexAddr)
		return contract{
			address: address,
			abi:     parsed,
			bound:   bind.NewBoundContract(address, parsed, eth, eth, eth),
		}
	}

	c := &Client{
		eth:          eth,
		chainID:      big.NewInt(cfg.ChainID),
		key:          key,
		dxToken:      bindTo(cfg.Contracts.DXToken, abis.DXToken),
		nftMedia:     bindTo(cfg.Contracts.NFTMedia, abis.NFTMedia),
		marketplace:  bindTo(cfg.Contracts.Marketplace, abis.Marketplace),
		subscription: bindTo(cfg.Contracts.Subscription, abis.Subscription),
	}
	c.decoder = &eventDecoder{
		abis:        abis,
		nftMedia:    c.nftMedia.address,
		marketplace: c.marketplace.address,
		sub:         c.subscription.address,
	}

	fields := logrus.Fields{"rpc": cfg.RPCURL, "chainId": cfg.ChainID}
	if key != nil {
		fields["signer"] = crypto.PubkeyToAddress(key.PublicKey).Hex()
	}
	logrus.WithFields(fields).Info("Blockchain client initialised")
	return c, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) MarketplaceAddress() string {
	return ethutil.NormalizeAddress(c.marketplace.address.Hex())
}

func (c *Client) call(ctx context.Context, ct contract, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := ct.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s call failed: %v", method, err)
	}
	return out, nil
}

func (c *Client) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	out, err := c.call(ctx, c.dxToken, "balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (c *Client) GetSubscription(ctx context.Context, address string) (*SubscriptionInfo, error) {
	out, err := c.call(ctx, c.subscription, "getSubscription", common.HexToAddress(address))
	if err != nil {
		return nil, err
	}
	return subscriptionFromChain(out[0].(uint8), out[1].(*big.Int), time.Now()), nil
}

func (c *Client) SubscriptionFee(ctx context.Context, level int) (*big.Int, error) {
	method, ok := feeMethods[level]
	if !ok {
		return nil, fmt.Errorf("unknown subscription level %d", level)
	}
	out, err := c.call(ctx, c.subscription, method)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (c *Client) TokenCounter(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, c.nftMedia, "tokenIdCounter")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

func parseTokenID(tokenID string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("invalid token id %q", tokenID)
	}
	return id, nil
}

func (c *Client) OwnerOf(ctx context.Context, tokenID *big.Int) (string, error) {
	out, err := c.call(ctx, c.nftMedia, "ownerOf", tokenID)
	if err != nil {
		return "", err
	}
	return addr(out[0].(common.Address)), nil
}

func (c *Client) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	out, err := c.call(ctx, c.nftMedia, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// MediaNFT returns creator, media type and royalty in basis points.
func (c *Client) MediaNFT(ctx context.Context, tokenID *big.Int) (string, string, int64, error) {
	out, err := c.call(ctx, c.nftMedia, "mediaNFTs", tokenID)
	if err != nil {
		return "", "", 0, err
	}
	return addr(out[0].(common.Address)), out[1].(string), out[2].(*big.Int).Int64(), nil
}

// Listing returns the marketplace listing of a token.
func (c *Client) Listing(ctx context.Context, tokenID *big.Int) (seller string, price *big.Int, active bool, err error) {
	out, err := c.call(ctx, c.marketplace, "listings", tokenID)
	if err != nil {
		return "", nil, false, err
	}
	return addr(out[0].(common.Address)), out[1].(*big.Int), out[2].(bool), nil
}

// NFTState reads owner, URI, media info and listing of one token.
func (c *Client) NFTState(ctx context.Context, tokenID string) (*models.ChainNFTState, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return nil, err
	}
	owner, err := c.OwnerOf(ctx, id)
	if err != nil {
		return nil, err
	}
	uri, err := c.TokenURI(ctx, id)
	if err != nil {
		return nil, err
	}
	_, mediaType, royaltyBps, err := c.MediaNFT(ctx, id)
	if err != nil {
		return nil, err
	}
	_, price, active, err := c.Listing(ctx, id)
	if err != nil {
		return nil, err
	}

	state := &models.ChainNFTState{
		Owner:          owner,
		TokenURI:       uri,
		MediaType:      mediaType,
		RoyaltyPercent: float64(royaltyBps) / 100,
		ForSale:        active,
		Price:          "0",
	}
	if active {
		state.Price = ethutil.FormatTokenAmount(price)
	}
	return state, nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read block number: %v", err)
	}
	return n, nil
}

func (c *Client) BlockTime(ctx context.Context, number uint64) (time.Time, error) {
	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read block %d: %v", number, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// FilterEvents returns the decoded platform events in [from, to], in chain order.
func (c *Client) FilterEvents(ctx context.Context, from, to uint64) ([]Event, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.nftMedia.address, c.marketplace.address, c.subscription.address},
		Topics:    [][]common.Hash{c.decoder.topics()},
	}
	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs %d-%d: %v", from, to, err)
	}

	events := make([]Event, 0, len(logs))
	for _, lg := range logs {
		ev, err := c.decoder.decode(lg)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"tx":    lg.TxHash.Hex(),
				"error": err,
			}).Warn("Skipping undecodable log")
			continue
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	SortEvents(events)
	return events, nil
}

// transact submits method through the platform key and waits for the receipt.
func (c *Client) transact(ctx context.Context, ct contract, method string, args ...interface{}) (*types.Receipt, error) {
	if c.key == nil {
		return nil, ErrNoSigner
	}
	data, err := ct.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %v", method, err)
	}

	c.txMu.Lock()
	var tx *types.Transaction
	err = retry.Do(ctx, txMaxRetries, txRetryDelay, retry.ShouldRetryTransaction, func(ctx context.Context) error {
		opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
		if err != nil {
			return err
		}
		opts.Context = ctx

		gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: opts.From, To: &ct.address, Data: data})
		if err != nil {
			return fmt.Errorf("gas estimation failed: %w", err)
		}
		opts.GasLimit = gas * 12 / 10

		tx, err = ct.bound.Transact(opts, method, args...)
		return err
	})
	c.txMu.Unlock()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"method": method,
			"error":  err,
		}).Error("Transaction submission failed")
		return nil, fmt.Errorf("%s transaction failed: %w", method, err)
	}

	logrus.WithFields(logrus.Fields{"method": method, "tx": tx.Hash().Hex()}).Info("Transaction submitted")

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %v", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%s transaction %s reverted", method, tx.Hash().Hex())
	}
	return receipt, nil
}

// MintNFT mints through NFTMedia and reads the token id from the NFTCreated log.
func (c *Client) MintNFT(ctx context.Context, tokenURI, mediaType string, royaltyBps int64) (*MintResult, error) {
	receipt, err := c.transact(ctx, c.nftMedia, "mintNFT", tokenURI, mediaType, big.NewInt(royaltyBps))
	if err != nil {
		return nil, err
	}
	for _, lg := range receipt.Logs {
		ev, err := c.decoder.decode(*lg)
		if err != nil || ev == nil || ev.Kind != EventNFTCreated {
			continue
		}
		return &MintResult{
			TokenID:  ev.TokenID,
			Creator:  ev.Creator,
			TokenURI: ev.TokenURI,
			TxHash:   receipt.TxHash.Hex(),
		}, nil
	}
	return nil, fmt.Errorf("NFTCreated event missing from receipt %s", receipt.TxHash.Hex())
}

// MintTokens mints DX to a wallet and returns the transaction hash.
func (c *Client) MintTokens(ctx context.Context, to string, amount *big.Int) (string, error) {
	receipt, err := c.transact(ctx, c.dxToken, "mint", common.HexToAddress(to), amount)
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

// LoadPrivateKey parses a hex private key with or without 0x.
func LoadPrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}
	return key, nil
}
