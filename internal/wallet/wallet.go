// Package wallet 钱包地址规范化与签名校验
package wallet

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

// Chain 地址所属链
type Chain string

const (
	ChainEVM    Chain = "evm"
	ChainSolana Chain = "solana"
)

var (
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Normalize 识别地址类型，EVM 地址统一小写
func Normalize(address string) (string, Chain, error) {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		if !common.IsHexAddress(address) {
			return "", "", ErrInvalidAddress
		}
		return strings.ToLower(common.HexToAddress(address).Hex()), ChainEVM, nil
	}

	raw, err := base58.Decode(address)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return "", "", ErrInvalidAddress
	}
	return address, ChainSolana, nil
}

// Verifier 按地址类型校验消息签名
type Verifier struct{}

// Verify EVM 使用 personal_sign (EIP-191)，Solana 使用 ed25519 且签名为 base58
func (Verifier) Verify(address, message, signature string) error {
	addr, chain, err := Normalize(address)
	if err != nil {
		return err
	}
	switch chain {
	case ChainEVM:
		return verifyEVM(addr, message, signature)
	default:
		return verifySolana(addr, message, signature)
	}
}

func verifyEVM(address, message, signature string) error {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil || len(sig) != crypto.SignatureLength {
		return ErrInvalidSignature
	}
	// 钱包返回的 v 为 27/28
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(address) {
		return ErrInvalidSignature
	}
	return nil
}

func verifySolana(address, message, signature string) error {
	pub, err := base58.Decode(address)
	if err != nil {
		return ErrInvalidAddress
	}
	sig, err := base58.Decode(strings.TrimSpace(signature))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(message), sig) {
		return ErrInvalidSignature
	}
	return nil
}
