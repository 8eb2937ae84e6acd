package liqpay

import "checkout-service/signature"

// Accepted inbound algorithms, in priority order.
var acceptedAlgorithms = []signature.Algorithm{signature.SHA1, signature.SHA3256}

// Sign returns base64(sha1(privateKey + data + privateKey)).
func Sign(data, privateKey string) string {
	return signature.Sandwich(signature.SHA1, privateKey, data)
}

// SignSHA3 is Sign with sha3-256.
func SignSHA3(data, privateKey string) string {
	return signature.Sandwich(signature.SHA3256, privateKey, data)
}

// Verify checks sig against data under sha1 then sha3-256.
func Verify(data, sig, privateKey string) signature.Result {
	return signature.Verify(sig, privateKey, data, acceptedAlgorithms...)
}

// SignedRequest is the form body sent to LiqPay.
type SignedRequest struct {
	Data      string
	Signature string
}

// SignPayload encodes and signs p.
func SignPayload(p Payload, privateKey string) (SignedRequest, error) {
	data, err := Encode(p)
	if err != nil {
		return SignedRequest{}, err
	}
	return SignedRequest{Data: data, Signature: Sign(data, privateKey)}, nil
}
