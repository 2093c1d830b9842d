package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// PriceOracle supplies the settlement price for a token symbol. Resolution
// depends on this interface only, so tests plug in a stub.
type PriceOracle interface {
	GetFinalPrice(ctx context.Context, token string) (float64, error)
}

// PriceService resolves token symbols to USD prices.
// Uses CoinGecko API (not geo-blocked like Binance from Railway) with a
// CryptoCompare fallback.
type PriceService struct {
	pricesMux sync.RWMutex
	prices    map[string]float64 // coingecko id -> price
	lastFetch map[string]time.Time

	client *http.Client
}

// coinGeckoIDs maps supported token symbols to CoinGecko coin ids
var coinGeckoIDs = map[string]string{
	"SOL":  "solana",
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"PUMP": "pump-fun",
}

const priceCacheTTL = 5 * time.Second

func NewPriceService() *PriceService {
	return &PriceService{
		prices:    make(map[string]float64),
		lastFetch: make(map[string]time.Time),
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetFinalPrice returns the latest USD price for a token symbol (e.g. "SOL")
func (ps *PriceService) GetFinalPrice(ctx context.Context, token string) (float64, error) {
	symbol := strings.ToUpper(token)
	coinID, ok := coinGeckoIDs[symbol]
	if !ok {
		return 0, fmt.Errorf("unsupported token: %s", token)
	}

	ps.pricesMux.RLock()
	price, hasPrice := ps.prices[coinID]
	lastFetch, hasFetch := ps.lastFetch[coinID]
	ps.pricesMux.RUnlock()

	if hasPrice && hasFetch && time.Since(lastFetch) < priceCacheTTL {
		return price, nil
	}

	log.Printf("[PriceService] Fetching fresh price for %s from CoinGecko...", symbol)
	ps.fetchCoinGeckoPrice(ctx, coinID)

	ps.pricesMux.RLock()
	price, hasPrice = ps.prices[coinID]
	ps.pricesMux.RUnlock()

	if !hasPrice || price == 0 {
		log.Printf("[PriceService] CoinGecko failed for %s, trying CryptoCompare...", symbol)
		return ps.fetchCryptoComparePrice(ctx, symbol)
	}

	return price, nil
}

// fetchCoinGeckoPrice fetches one coin's USD price from CoinGecko
// Example: GET https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd
// Response: {"solana":{"usd":195.83}}
func (ps *PriceService) fetchCoinGeckoPrice(ctx context.Context, coinID string) {
	reqURL := fmt.Sprintf("https://api.coingecko.com/api/v3/simple/price?ids=%s&vs_currencies=usd",
		url.QueryEscape(coinID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		log.Printf("[PriceService] CoinGecko request build failed: %v", err)
		return
	}

	resp, err := ps.client.Do(req)
	if err != nil {
		log.Printf("[PriceService] CoinGecko request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[PriceService] CoinGecko returned %d: %s", resp.StatusCode, string(body))
		return
	}

	var result map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("[PriceService] CoinGecko parse error: %v", err)
		return
	}

	usd, ok := result[coinID]["usd"]
	if !ok || usd == 0 {
		log.Printf("[PriceService] CoinGecko response missing %s/usd", coinID)
		return
	}

	ps.pricesMux.Lock()
	ps.prices[coinID] = usd
	ps.lastFetch[coinID] = time.Now()
	ps.pricesMux.Unlock()
}

// fetchCryptoComparePrice is the fallback price source
// Example: GET https://min-api.cryptocompare.com/data/price?fsym=SOL&tsyms=USD
func (ps *PriceService) fetchCryptoComparePrice(ctx context.Context, symbol string) (float64, error) {
	reqURL := fmt.Sprintf("https://min-api.cryptocompare.com/data/price?fsym=%s&tsyms=USD",
		url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("cryptocompare request build failed: %w", err)
	}

	resp, err := ps.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("cryptocompare request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("cryptocompare returned %d", resp.StatusCode)
	}

	var result map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("cryptocompare parse error: %w", err)
	}

	price, ok := result["USD"]
	if !ok || price == 0 {
		return 0, fmt.Errorf("cryptocompare has no USD price for %s", symbol)
	}

	return price, nil
}
