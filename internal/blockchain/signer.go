package blockchain

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/dxsocial/backend/internal/blockchain/keystore"
	"github.com/dxsocial/backend/internal/config"
	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// LoadSigner returns the platform key from PRIVATE_KEY or, failing that,
// from the encrypted keystore entry for PLATFORM_ADDRESS. It returns nil
// when neither is configured, which leaves the client read-only.
func LoadSigner(cfg *config.Config) (*ecdsa.PrivateKey, error) {
	if cfg.PrivateKey != "" {
		return LoadPrivateKey(cfg.PrivateKey)
	}
	if cfg.EncryptionKey == "" || cfg.SignerAddress == "" {
		logrus.Warn("No platform signer configured, blockchain writes are disabled")
		return nil, nil
	}

	store, err := keystore.Open(cfg.KeystorePath, cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	raw, err := store.Get(cfg.SignerAddress)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("no key for %s in keystore %s", cfg.SignerAddress, cfg.KeystorePath)
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid keystore key: %v", err)
	}

	signer := crypto.PubkeyToAddress(key.PublicKey).Hex()
	if ethutil.NormalizeAddress(signer) != ethutil.NormalizeAddress(cfg.SignerAddress) {
		return nil, fmt.Errorf("keystore key belongs to %s, not %s", signer, cfg.SignerAddress)
	}
	return key, nil
}

// StoreSigner encrypts hexKey into the keystore at cfg.KeystorePath and returns
// the address to set as PLATFORM_ADDRESS.
func StoreSigner(cfg *config.Config, hexKey string) (string, error) {
	if cfg.EncryptionKey == "" {
		return "", fmt.Errorf("ENCRYPTION_KEY is required to use the keystore")
	}
	key, err := LoadPrivateKey(hexKey)
	if err != nil {
		return "", err
	}
	address := ethutil.NormalizeAddress(crypto.PubkeyToAddress(key.PublicKey).Hex())

	store, err := keystore.Open(cfg.KeystorePath, cfg.EncryptionKey)
	if err != nil {
		return "", err
	}
	if err := store.Save(address, crypto.FromECDSA(key)); err != nil {
		return "", err
	}
	return address, nil
}
