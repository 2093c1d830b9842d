package blockchain

import (
	"context"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
)

// SolanaClient is the transaction-reference collaborator: it checks the
// shape of caller-supplied transaction references and can confirm them
// against an RPC node. The engine itself stores references as opaque
// strings and never parses them beyond this.
type SolanaClient struct {
	rpcClient *rpc.Client
	network   string
}

// NewSolanaClient creates a new Solana client for the given network
func NewSolanaClient(network string) *SolanaClient {
	var rpcURL string
	switch network {
	case "mainnet-beta":
		rpcURL = "https://api.mainnet-beta.solana.com"
	case "devnet":
		rpcURL = "https://api.devnet.solana.com"
	case "testnet":
		rpcURL = "https://api.testnet.solana.com"
	default:
		rpcURL = "https://api.devnet.solana.com"
	}

	return &SolanaClient{
		rpcClient: rpc.New(rpcURL),
		network:   network,
	}
}

// ValidateTxRef checks that a transaction reference decodes as a Solana
// transaction signature (64 bytes of base58).
func (s *SolanaClient) ValidateTxRef(txRef string) error {
	decoded, err := base58.Decode(txRef)
	if err != nil {
		return fmt.Errorf("invalid transaction reference encoding: %w", err)
	}
	if len(decoded) != 64 {
		return fmt.Errorf("invalid transaction reference length: %d", len(decoded))
	}
	return nil
}

// ValidateWalletAddress checks that a wallet address decodes as a Solana
// public key.
func (s *SolanaClient) ValidateWalletAddress(address string) error {
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return fmt.Errorf("invalid wallet address: %w", err)
	}
	return nil
}

// ConfirmTransaction checks whether a transaction reference has been
// confirmed on-chain.
func (s *SolanaClient) ConfirmTransaction(ctx context.Context, txRef string) (bool, error) {
	sig, err := solana.SignatureFromBase58(txRef)
	if err != nil {
		return false, fmt.Errorf("invalid transaction signature: %w", err)
	}

	resp, err := s.rpcClient.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return false, fmt.Errorf("failed to get signature status: %w", err)
	}

	if len(resp.Value) == 0 || resp.Value[0] == nil {
		return false, nil
	}

	status := resp.Value[0]
	if status.Err != nil {
		log.Printf("[SolanaClient] Transaction %s failed on-chain: %v", txRef, status.Err)
		return false, nil
	}

	confirmed := status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		status.ConfirmationStatus == rpc.ConfirmationStatusFinalized
	return confirmed, nil
}
