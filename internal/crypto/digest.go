package crypto

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// RewardDigest binds a claim to (user, amount, epoch). It must match the
// RewardClaim contract byte for byte:
//
//	keccak256(bytes(userAddress + ":" + amount + ":" + epoch))
//
// userAddress and amount are hashed verbatim: a lowercase and a checksummed
// spelling of the same account give different digests.
func RewardDigest(userAddress string, amount string, epoch uint64) common.Hash {
	return ethcrypto.Keccak256Hash([]byte(fmt.Sprintf("%s:%s:%d", userAddress, amount, epoch)))
}

// ClaimMessageHash is the EIP-191 hash actually signed: the digest is signed as
// its 0x prefixed lowercase hex text, like ethers' signMessage(digestHex).
func ClaimMessageHash(digest common.Hash) []byte {
	return accounts.TextHash([]byte(digest.Hex()))
}
