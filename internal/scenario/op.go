// Package scenario replays scripted pair operations on the chain simulator.
package scenario

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	OpFund         = "fund"
	OpTokenSend    = "token_transfer"
	OpTokenMode    = "token_mode"
	OpBorrower     = "deploy_borrower"
	OpAdvance      = "advance"
	OpMint         = "mint"
	OpBurn         = "burn"
	OpSwap         = "swap"
	OpSkim         = "skim"
	OpSync         = "sync"
	OpApprove      = "approve"
	OpTransfer     = "transfer"
	OpTransferFrom = "transfer_from"
	OpSetFeeTo     = "set_fee_to"
)

// Op is one line of a scenario file. Accounts are hex addresses or names;
// a name maps to the last 20 bytes of its keccak256 hash.
type Op struct {
	Op          string `json:"op"`
	Caller      string `json:"caller,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Token       int    `json:"token,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Amount0     string `json:"amount0,omitempty"`
	Amount1     string `json:"amount1,omitempty"`
	Data        string `json:"data,omitempty"`
	Seconds     uint64 `json:"seconds,omitempty"`
	Timestamp   uint64 `json:"timestamp,omitempty"`
	Mode        string `json:"mode,omitempty"`
	FeeBps      uint64 `json:"fee_bps,omitempty"`
	ExpectError string `json:"expect_error,omitempty"`
}

// ParseOps reads JSONL ops, skipping blank lines and lines starting with #.
func ParseOps(r io.Reader) ([]Op, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var ops []Op
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var op Op
		if err := json.Unmarshal(line, &op); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if op.Op == "" {
			return nil, fmt.Errorf("line %d: missing op", lineNo)
		}
		if op.Token != 0 && op.Token != 1 {
			return nil, fmt.Errorf("line %d: token must be 0 or 1", lineNo)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan scenario: %w", err)
	}
	return ops, nil
}

// ResolveAccount turns a hex address or a name into an address.
func ResolveAccount(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("empty account")
	}
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		if !common.IsHexAddress(input) {
			return common.Address{}, fmt.Errorf("invalid address: %s", input)
		}
		return common.HexToAddress(input), nil
	}
	if input == "zero" {
		return common.Address{}, nil
	}
	return common.BytesToAddress(crypto.Keccak256([]byte(input))[12:]), nil
}
