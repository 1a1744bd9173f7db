package executor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/solatra/solatra-backend/internal/httputil"
)

const (
	solMint        = "So11111111111111111111111111111111111111112"
	lamportsPerSOL = 1e9
)

// JupiterExecutor routes swaps through the Jupiter aggregator and submits
// the signed transactions to a Solana RPC node.
type JupiterExecutor struct {
	rpcClient   *rpc.Client
	wallet      solana.PrivateKey
	quoteURL    string
	swapURL     string
	httpClient  *http.Client
	retry       httputil.RetryConfig
	slippageBps int
	priorityFee uint64
	log         *logrus.Logger
}

type JupiterOptions struct {
	QuoteURL            string
	SwapURL             string
	SlippageBps         int
	PriorityFeeLamports uint64
	Logger              *logrus.Logger
}

func NewJupiterExecutor(rpcEndpoint, privateKeyBase58 string, opts JupiterOptions) (*JupiterExecutor, error) {
	wallet, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	quoteURL := opts.QuoteURL
	if quoteURL == "" {
		quoteURL = "https://api.jup.ag/swap/v1/quote"
	}
	swapURL := opts.SwapURL
	if swapURL == "" {
		swapURL = "https://api.jup.ag/swap/v1/swap"
	}
	slippage := opts.SlippageBps
	if slippage <= 0 {
		slippage = 250
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &JupiterExecutor{
		rpcClient:   rpc.New(rpcEndpoint),
		wallet:      wallet,
		quoteURL:    quoteURL,
		swapURL:     swapURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		slippageBps: slippage,
		priorityFee: opts.PriorityFeeLamports,
		log:         log,
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    3 * time.Second,
			Logger:      log,
		},
	}, nil
}

func (j *JupiterExecutor) ExecuteBuy(ctx context.Context, order Order) (*Fill, error) {
	lamports := uint64(order.AmountSOL * lamportsPerSOL)
	quote, err := j.getQuote(ctx, solMint, order.Mint, lamports)
	if err != nil {
		return nil, fmt.Errorf("buy quote: %w", err)
	}

	outRaw, err := quoteAmount(quote, "outAmount")
	if err != nil {
		return nil, fmt.Errorf("buy quote: %w", err)
	}
	if outRaw == 0 {
		return nil, fmt.Errorf("zero outAmount for %s, no route", order.Mint)
	}

	sig, err := j.swapAndSend(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("buy swap: %w", err)
	}

	tokenQty := rawToDecimal(outRaw, order.TokenDecimals)
	solAmount := decimal.NewFromFloat(order.AmountSOL)
	sigStr := sig.String()

	j.log.Infof("[JUPITER] BUY %s: %s tokens for %.4f SOL tx=%s",
		order.Symbol, tokenQty.StringFixed(4), order.AmountSOL, sigStr)

	return &Fill{
		TokenAmount: tokenQty,
		SOLAmount:   solAmount,
		PriceSOL:    safeDiv(solAmount, tokenQty),
		TxSignature: &sigStr,
	}, nil
}

func (j *JupiterExecutor) ExecuteSell(ctx context.Context, order Order) (*Fill, error) {
	raw := decimalToRaw(order.TokenAmount, order.TokenDecimals)
	if raw == 0 {
		return nil, fmt.Errorf("sell amount for %s rounds to zero", order.Mint)
	}

	quote, err := j.getQuote(ctx, order.Mint, solMint, raw)
	if err != nil {
		return nil, fmt.Errorf("sell quote: %w", err)
	}

	outLamports, err := quoteAmount(quote, "outAmount")
	if err != nil {
		return nil, fmt.Errorf("sell quote: %w", err)
	}

	sig, err := j.swapAndSend(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("sell swap: %w", err)
	}

	solAmount := rawToDecimal(outLamports, 9)
	sigStr := sig.String()

	j.log.Infof("[JUPITER] SELL %s: %s tokens for %s SOL tx=%s",
		order.Symbol, order.TokenAmount.StringFixed(4), solAmount.StringFixed(4), sigStr)

	return &Fill{
		TokenAmount: order.TokenAmount,
		SOLAmount:   solAmount,
		PriceSOL:    safeDiv(solAmount, order.TokenAmount),
		TxSignature: &sigStr,
	}, nil
}

func (j *JupiterExecutor) BalanceSOL(ctx context.Context) (float64, error) {
	balance, err := j.rpcClient.GetBalance(ctx, j.wallet.PublicKey(), rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return float64(balance.Value) / lamportsPerSOL, nil
}

// getQuote fetches a swap quote. The full response is kept as a map because
// the swap endpoint expects it echoed back verbatim.
func (j *JupiterExecutor) getQuote(ctx context.Context, inputMint, outputMint string, amount uint64) (map[string]any, error) {
	url := fmt.Sprintf("%s?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d&swapMode=ExactIn",
		j.quoteURL, inputMint, outputMint, amount, j.slippageBps)

	resp, err := httputil.Do(ctx, j.httpClient, j.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote returned status %d", resp.StatusCode)
	}

	var quote map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if errMsg, ok := quote["error"].(string); ok {
		return nil, fmt.Errorf("quote error: %s", errMsg)
	}
	return quote, nil
}

// swapAndSend builds the swap transaction, signs it, simulates it, and
// submits it, then waits for confirmation.
func (j *JupiterExecutor) swapAndSend(ctx context.Context, quote map[string]any) (solana.Signature, error) {
	body, _ := json.Marshal(map[string]any{
		"quoteResponse":             quote,
		"userPublicKey":             j.wallet.PublicKey().String(),
		"wrapAndUnwrapSol":          true,
		"dynamicComputeUnitLimit":   true,
		"prioritizationFeeLamports": j.priorityFee,
	})

	resp, err := httputil.Do(ctx, j.httpClient, j.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.swapURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return solana.Signature{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return solana.Signature{}, fmt.Errorf("swap returned status %d", resp.StatusCode)
	}

	var swap struct {
		SwapTransaction string `json:"swapTransaction"`
		Error           string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&swap); err != nil {
		return solana.Signature{}, fmt.Errorf("decode swap: %w", err)
	}
	if swap.Error != "" {
		return solana.Signature{}, fmt.Errorf("swap error: %s", swap.Error)
	}
	if swap.SwapTransaction == "" {
		return solana.Signature{}, fmt.Errorf("no swapTransaction in response")
	}

	txBytes, err := base64.StdEncoding.DecodeString(swap.SwapTransaction)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("decode transaction: %w", err)
	}
	tx, err := solana.TransactionFromBytes(txBytes)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("parse transaction: %w", err)
	}

	_, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(j.wallet.PublicKey()) {
			return &j.wallet
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	sim, err := j.rpcClient.SimulateTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("simulate: %w", err)
	}
	if sim.Value.Err != nil {
		return solana.Signature{}, fmt.Errorf("simulation error: %v", sim.Value.Err)
	}

	sig, err := j.sendWithRetry(ctx, tx, 3)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send: %w", err)
	}

	if err := j.awaitConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

func (j *JupiterExecutor) sendWithRetry(ctx context.Context, tx *solana.Transaction, maxRetries int) (solana.Signature, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		sig, err := j.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       true,
			PreflightCommitment: rpc.CommitmentProcessed,
		})
		if err == nil {
			return sig, nil
		}
		lastErr = err
		j.log.Warnf("[JUPITER] Send attempt %d failed: %v", i+1, err)
		if i < maxRetries-1 {
			time.Sleep(time.Duration(50*(i+1)) * time.Millisecond)
		}
	}
	return solana.Signature{}, lastErr
}

func (j *JupiterExecutor) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}

		statuses, err := j.rpcClient.GetSignatureStatuses(ctx, true, sig)
		if err != nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
			continue
		}
		st := statuses.Value[0]
		if st.Err != nil {
			return fmt.Errorf("transaction %s failed on chain: %v", sig, st.Err)
		}
		if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return nil
		}
	}
	return fmt.Errorf("transaction %s not confirmed within 60s", sig)
}

// --- helpers ---

func quoteAmount(quote map[string]any, key string) (uint64, error) {
	s, ok := quote[key].(string)
	if !ok {
		return 0, fmt.Errorf("missing %s in quote", key)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func rawToDecimal(raw uint64, decimals int) decimal.Decimal {
	return decimal.New(int64(raw), 0).Shift(int32(-decimals))
}

func decimalToRaw(d decimal.Decimal, decimals int) uint64 {
	raw := d.Shift(int32(decimals)).IntPart()
	if raw < 0 {
		return 0
	}
	return uint64(raw)
}

func safeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}
