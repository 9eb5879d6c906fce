package blockchain

import (
	"errors"
	"fmt"

	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignMessage is the text a wallet signs to log in.
func SignMessage(address, nonce string) string {
	return "Welcome to DeSo Social!\n\n" +
		"Please sign this message to authenticate with your wallet.\n\n" +
		"This signature will not trigger a blockchain transaction or cost any gas fees.\n\n" +
		"Wallet Address: " + address + "\n" +
		"Nonce: " + nonce
}

// RecoverAddress returns the lowercase address that produced an EIP-191 personal_sign signature.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("invalid signature encoding: %v", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", errors.New("invalid signature length")
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover signer: %v", err)
	}
	return ethutil.NormalizeAddress(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// VerifySignature reports whether signature over message was made by address.
func VerifySignature(address, message, signature string) bool {
	signer, err := RecoverAddress(message, signature)
	if err != nil {
		return false
	}
	return signer == ethutil.NormalizeAddress(address)
}
