package encryption

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ReceiptAlgorithm names the signature scheme of a receipt.
const ReceiptAlgorithm = "secp256k1-keccak256"

// Receipt is the ledger's signed acknowledgement of a block hash. Kid is the
// address of the signing key.
type Receipt struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Sig string `json:"sig"`
}

type ReceiptSigner struct {
	cs  *CryptoService
	key *ecdsa.PrivateKey
	kid string
}

func NewReceiptSigner(key *ecdsa.PrivateKey) *ReceiptSigner {
	cs := NewCryptoService()
	return &ReceiptSigner{
		cs:  cs,
		key: key,
		kid: cs.Address(&key.PublicKey),
	}
}

// KeyID returns the address receipts are signed under.
func (s *ReceiptSigner) KeyID() string {
	return s.kid
}

// IssueReceipt signs blockHash.
func (s *ReceiptSigner) IssueReceipt(blockHash string) (*Receipt, error) {
	signature, err := s.cs.Sign([]byte(blockHash), s.key)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		Alg: ReceiptAlgorithm,
		Kid: s.kid,
		Sig: hexutil.Encode(signature),
	}, nil
}

// VerifyReceipt checks that receipt is a signature over blockHash by the key
// named in its Kid.
func VerifyReceipt(blockHash string, receipt *Receipt) bool {
	if receipt == nil || receipt.Alg != ReceiptAlgorithm {
		return false
	}
	signature, err := hexutil.Decode(receipt.Sig)
	if err != nil {
		return false
	}

	cs := NewCryptoService()
	pub, err := cs.RecoverSigner([]byte(blockHash), signature)
	if err != nil {
		return false
	}
	return strings.EqualFold(cs.Address(pub), receipt.Kid)
}
