// Command keystore encrypts the platform private key into KEYSTORE_PATH so the
// server can run without PRIVATE_KEY in its environment.
//
//	echo 0x<private key> | ENCRYPTION_KEY=... go run ./cmd/keystore
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/dxsocial/backend/internal/blockchain"
	"github.com/dxsocial/backend/internal/config"
	"github.com/dxsocial/backend/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()
	logger.InitLogger(cfg.LogLevel)

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		logger.Log.Fatal("Expected a hex private key on stdin")
	}

	address, err := blockchain.StoreSigner(cfg, scanner.Text())
	if err != nil {
		logger.Log.Fatalf("Failed to store key: %v", err)
	}

	logger.Log.WithField("keystore", cfg.KeystorePath).Info("Platform key stored")
	fmt.Printf("PLATFORM_ADDRESS=%s\n", address)
}
