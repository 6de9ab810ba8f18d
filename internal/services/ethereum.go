package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/securedocs/backend/config"
	"github.com/securedocs/backend/pkg/logger"
)

const erc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}]`

var ErrNoTokenContract = errors.New("premium token contract is not configured")

// LoginMessage is the text a wallet signs to log in.
func LoginMessage(nonce string) string {
	return fmt.Sprintf("Sign this message to authenticate with SecureDocs: %s", nonce)
}

// EthereumService verifies wallet signatures and reads the premium token balance.
type EthereumService struct {
	config config.EthereumConfig
	caller ethereum.ContractCaller
	logger logger.Logger
	abi    abi.ABI
}

// NewEthereumService creates a new Ethereum service. Without an RPC URL the
// service can still verify signatures but cannot read balances.
func NewEthereumService(cfg config.EthereumConfig, log logger.Logger) (*EthereumService, error) {
	var caller ethereum.ContractCaller
	if cfg.RPCURL != "" {
		client, err := ethclient.Dial(cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Ethereum client: %w", err)
		}
		caller = client
	}

	return newEthereumService(cfg, caller, log)
}

func newEthereumService(cfg config.EthereumConfig, caller ethereum.ContractCaller, log logger.Logger) (*EthereumService, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	return &EthereumService{
		config: cfg,
		caller: caller,
		logger: log,
		abi:    parsedABI,
	}, nil
}

// VerifySignature checks that signature is an EIP-191 personal_sign signature
// of message produced by address.
func (s *EthereumService) VerifySignature(address, message, signature string) (bool, error) {
	prefix := "\x19Ethereum Signed Message:\n"
	prefixedMessage := prefix + strconv.Itoa(len(message)) + message

	messageHash := crypto.Keccak256Hash([]byte(prefixedMessage))

	signatureBytes, err := hexutil.Decode(signature)
	if err != nil || len(signatureBytes) != crypto.SignatureLength {
		return false, errors.New("invalid signature format")
	}

	if signatureBytes[crypto.RecoveryIDOffset] > 1 {
		signatureBytes[crypto.RecoveryIDOffset] -= 27
	}

	publicKeyBytes, err := crypto.Ecrecover(messageHash.Bytes(), signatureBytes)
	if err != nil {
		return false, errors.New("failed to recover public key")
	}
	publicKey, err := crypto.UnmarshalPubkey(publicKeyBytes)
	if err != nil {
		return false, errors.New("failed to unmarshal public key")
	}

	recoveredAddress := crypto.PubkeyToAddress(*publicKey).Hex()

	return strings.EqualFold(recoveredAddress, address), nil
}

// TokenBalanceAvailable reports whether balances can be read.
func (s *EthereumService) TokenBalanceAvailable() bool {
	return s.caller != nil && s.config.PremiumTokenContract != ""
}

// GetTokenBalance returns the wallet's balance of the premium token.
func (s *EthereumService) GetTokenBalance(ctx context.Context, walletAddress string) (*big.Int, error) {
	if !s.TokenBalanceAvailable() {
		return nil, ErrNoTokenContract
	}

	data, err := s.abi.Pack("balanceOf", common.HexToAddress(walletAddress))
	if err != nil {
		return nil, fmt.Errorf("failed to pack ABI call: %w", err)
	}

	contractAddr := common.HexToAddress(s.config.PremiumTokenContract)
	msg := ethereum.CallMsg{
		To:   &contractAddr,
		Data: data,
	}

	result, err := s.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call contract: %w", err)
	}

	var balance *big.Int
	if err := s.abi.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, fmt.Errorf("failed to unpack result: %w", err)
	}

	return balance, nil
}
