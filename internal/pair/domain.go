package pair

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const (
	domainName    = "Uniswap V2"
	domainVersion = "1"
)

var domainTypeHash = crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))

// DomainSeparator returns the EIP-712 domain hash of the share token.
func (p *Pair) DomainSeparator() common.Hash {
	return crypto.Keccak256Hash(
		domainTypeHash,
		crypto.Keccak256([]byte(domainName)),
		crypto.Keccak256([]byte(domainVersion)),
		common.LeftPadBytes(p.chainID.Bytes(), 32),
		common.LeftPadBytes(p.address.Bytes(), 32),
	)
}

// Permit is not supported for shares.
func (p *Pair) Permit(owner, spender common.Address, value, deadline *uint256.Int, v uint8, r, s [32]byte) error {
	return ErrUnsupported
}
