package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Word lists lean on market slang so generated names fit the product.
var moods = []string{
	"Bullish", "Bearish", "Lucky", "Sharp", "Fearless",
	"Patient", "Degen", "Contrarian", "Early", "Late",
	"Golden", "Diamond", "Paper", "Steady", "Volatile",
	"Quiet", "Loud", "Cosmic", "Midnight", "Solar",
}

var callsigns = []string{
	"Oracle", "Forecaster", "Whale", "Bull", "Bear",
	"Hawk", "Shark", "Maverick", "Prophet", "Scout",
	"Pioneer", "Hunter", "Trader", "Sniper", "Sage",
	"Drifter", "Navigator", "Gambler", "Strategist", "Voyager",
}

func pickWord(list []string) (string, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
	if err != nil {
		return "", err
	}
	return list[idx.Int64()], nil
}

// GenerateNickname builds a display name like "Bullish_Oracle_4821" for
// wallets that sign in without one.
func GenerateNickname() (string, error) {
	mood, err := pickWord(moods)
	if err != nil {
		return "", fmt.Errorf("failed to pick nickname words: %w", err)
	}
	callsign, err := pickWord(callsigns)
	if err != nil {
		return "", fmt.Errorf("failed to pick nickname words: %w", err)
	}
	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate nickname suffix: %w", err)
	}

	return fmt.Sprintf("%s_%s_%04d", mood, callsign, suffix.Int64()), nil
}
