package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const signatureLength = 65

// Signer holds the server key whose signatures the RewardClaim contract trusts.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewSigner(privateKeyHex string) (*Signer, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, fmt.Errorf("signer private key is not set")
	}
	key, err := ethcrypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "parse signer private key")
	}
	return &Signer{key: key, address: ethcrypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

// SignDigest returns a 65 byte r||s||v signature with v in {27, 28}.
func (s *Signer) SignDigest(digest common.Hash) ([]byte, error) {
	sig, err := ethcrypto.Sign(ClaimMessageHash(digest), s.key)
	if err != nil {
		return nil, errors.Wrap(err, "sign claim digest")
	}
	sig[64] += 27
	return sig, nil
}

func (s *Signer) SignDigestHex(digest common.Hash) (string, error) {
	sig, err := s.SignDigest(digest)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

// RecoverSigner returns the address that produced sig over digest.
// Both legacy (27/28) and raw (0/1) recovery ids are accepted.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != signatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(sig))
	}
	normalized := make([]byte, signatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id %d", sig[64])
	}
	pub, err := ethcrypto.SigToPub(ClaimMessageHash(digest), normalized)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "recover signer")
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

func RecoverSignerHex(digest common.Hash, sigHex string) (common.Address, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(sigHex))
	if err != nil {
		return common.Address{}, errors.Wrap(err, "decode signature")
	}
	return RecoverSigner(digest, sig)
}
