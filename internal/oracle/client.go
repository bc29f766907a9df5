package oracle

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"sentifi/internal/sentiment"
)

const sentimentOracleABIJSON = `[{"inputs":[{"internalType":"string","name":"token","type":"string"},{"internalType":"int256","name":"score","type":"int256"}],"name":"updateSentiment","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"string","name":"token","type":"string"}],"name":"getSentiment","outputs":[{"internalType":"int256","name":"","type":"int256"}],"stateMutability":"view","type":"function"}]`

var sentimentOracleABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(sentimentOracleABIJSON))
	if err != nil {
		panic("failed to parse SentimentOracle ABI: " + err.Error())
	}
	sentimentOracleABI = parsed
}

// ErrFeeTooLow is raised before submission when the configured gas-price
// floor is below the network's required minimum. Submitting anyway would
// burn the nonce on a guaranteed network-level rejection.
var ErrFeeTooLow = errors.New("oracle: configured gas price floor below network minimum")

// Options parameterise the oracle client.
type Options struct {
	RPCURL          string
	ContractAddress string
	PrivateKey      string
	GasPriceFloor   *big.Int
	RequestTimeout  time.Duration
	ConfirmTimeout  time.Duration
	ExplorerBaseURL string
}

// Receipt summarises a confirmed publish transaction.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
	ExplorerURL string
}

// ConnectionInfo reports RPC reachability for the status command.
type ConnectionInfo struct {
	ChainID     *big.Int
	LatestBlock uint64
}

// Client publishes encoded sentiment scores to the SentimentOracle
// contract and reads them back.
type Client struct {
	opts      Options
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex

	key  *ecdsa.PrivateKey
	from common.Address
}

// NewClient builds an oracle client. The private key is only required for
// publishing; read-only use may leave it empty.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	return &Client{
		opts:   opts,
		logger: logger.With().Str("component", "oracle_client").Logger(),
	}
}

// Publish submits updateSentiment(symbol, score) as a signed transaction
// and waits for the mined receipt. Each call overwrites the previous
// record for the symbol; callers must not retry after a confirmed
// success.
func (c *Client) Publish(ctx context.Context, symbol string, score int64) (Receipt, error) {
	if symbol == "" {
		return Receipt{}, errors.New("symbol must not be empty")
	}
	if score < sentiment.EncodedMin || score > sentiment.EncodedMax {
		return Receipt{}, fmt.Errorf("encoded score %d outside [%d, %d]", score, sentiment.EncodedMin, sentiment.EncodedMax)
	}
	if c.opts.ContractAddress == "" {
		return Receipt{}, errors.New("oracle contract address not configured")
	}
	if c.opts.GasPriceFloor == nil || c.opts.GasPriceFloor.Sign() <= 0 {
		return Receipt{}, errors.New("gas price floor not configured")
	}

	key, err := c.signingKey()
	if err != nil {
		return Receipt{}, err
	}

	timeout := c.opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := c.getClient(callCtx)
	if err != nil {
		return Receipt{}, err
	}

	required, err := client.SuggestGasPrice(callCtx)
	if err != nil {
		return Receipt{}, fmt.Errorf("probe network gas price: %w", err)
	}
	if c.opts.GasPriceFloor.Cmp(required) < 0 {
		return Receipt{}, fmt.Errorf("%w: floor %s wei, network requires %s wei",
			ErrFeeTooLow, c.opts.GasPriceFloor.String(), required.String())
	}

	payload, err := sentimentOracleABI.Pack("updateSentiment", symbol, big.NewInt(score))
	if err != nil {
		return Receipt{}, err
	}

	contract := common.HexToAddress(c.opts.ContractAddress)

	nonce, err := client.PendingNonceAt(callCtx, c.from)
	if err != nil {
		return Receipt{}, fmt.Errorf("fetch nonce: %w", err)
	}

	gasLimit, err := client.EstimateGas(callCtx, ethereum.CallMsg{
		From:     c.from,
		To:       &contract,
		GasPrice: c.opts.GasPriceFloor,
		Data:     payload,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("estimate gas: %w", err)
	}

	chainID, err := client.ChainID(callCtx)
	if err != nil {
		return Receipt{}, fmt.Errorf("fetch chain id: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: c.opts.GasPriceFloor,
		Gas:      gasLimit,
		To:       &contract,
		Data:     payload,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return Receipt{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := client.SendTransaction(callCtx, signed); err != nil {
		return Receipt{}, fmt.Errorf("submit transaction: %w", err)
	}

	c.logger.Info().Str("symbol", symbol).Int64("score", score).
		Str("tx", signed.Hash().Hex()).Msg("transaction submitted")

	confirmTimeout := c.opts.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 2 * time.Minute
	}
	// The write is in flight; from here on cancellation of the outer ctx
	// no longer prevents it taking effect on-chain.
	waitCtx, cancelWait := context.WithTimeout(ctx, confirmTimeout)
	defer cancelWait()

	mined, err := bind.WaitMined(waitCtx, client, signed)
	if err != nil {
		return Receipt{}, fmt.Errorf("await confirmation: %w", err)
	}
	if mined.Status != types.ReceiptStatusSuccessful {
		return Receipt{}, fmt.Errorf("transaction reverted: %s", signed.Hash().Hex())
	}

	return Receipt{
		TxHash:      signed.Hash().Hex(),
		BlockNumber: mined.BlockNumber.Uint64(),
		GasUsed:     mined.GasUsed,
		ExplorerURL: c.ExplorerURL(signed.Hash().Hex()),
	}, nil
}

// Read returns the stored score for a symbol via getSentiment. The
// contract's storage is zero-initialized, so a symbol that was never
// published reads as 0 — indistinguishable from a published neutral
// score at this layer.
func (c *Client) Read(ctx context.Context, symbol string) (int64, error) {
	if symbol == "" {
		return 0, errors.New("symbol must not be empty")
	}
	if c.opts.ContractAddress == "" {
		return 0, errors.New("oracle contract address not configured")
	}

	timeout := c.opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return 0, err
	}

	payload, err := sentimentOracleABI.Pack("getSentiment", symbol)
	if err != nil {
		return 0, err
	}

	contract := common.HexToAddress(c.opts.ContractAddress)
	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: payload}, nil)
	if err != nil {
		return 0, err
	}

	outputs, err := sentimentOracleABI.Unpack("getSentiment", res)
	if err != nil {
		return 0, err
	}
	if len(outputs) != 1 {
		return 0, errors.New("unexpected getSentiment response")
	}

	score, ok := outputs[0].(*big.Int)
	if !ok {
		return 0, errors.New("failed to decode getSentiment output")
	}
	if !score.IsInt64() {
		return 0, fmt.Errorf("stored score out of range: %s", score.String())
	}

	return score.Int64(), nil
}

// CheckConnection probes the RPC endpoint.
func (c *Client) CheckConnection(ctx context.Context) (ConnectionInfo, error) {
	timeout := c.opts.RequestTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return ConnectionInfo{}, err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return ConnectionInfo{}, err
	}
	block, err := client.BlockNumber(ctx)
	if err != nil {
		return ConnectionInfo{}, err
	}

	return ConnectionInfo{ChainID: chainID, LatestBlock: block}, nil
}

// ExplorerURL returns the block-explorer link for a transaction hash.
func (c *Client) ExplorerURL(txHash string) string {
	base := strings.TrimRight(c.opts.ExplorerBaseURL, "/")
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/0x%s", base, strings.TrimPrefix(txHash, "0x"))
}

func (c *Client) signingKey() (*ecdsa.PrivateKey, error) {
	if c.key != nil {
		return c.key, nil
	}
	if c.opts.PrivateKey == "" {
		return nil, errors.New("oracle private key not configured")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(c.opts.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	c.key = key
	c.from = crypto.PubkeyToAddress(key.PublicKey)
	return key, nil
}

func (c *Client) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.opts.RPCURL == "" {
		return nil, errors.New("oracle rpc url not configured")
	}

	client, err := ethclient.DialContext(ctx, c.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}
