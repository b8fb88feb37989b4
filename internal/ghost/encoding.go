package ghost

import "github.com/mr-tron/base58"

func base58Encode(pk [32]byte) string {
	return base58.Encode(pk[:])
}
