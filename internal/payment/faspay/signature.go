package faspay

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
)

// Signature computes hex(SHA1(hex(MD5(userID + password + payload)))).
// Payment requests sign the bill number; callbacks sign bill_no + payment_status_code.
func Signature(userID, password, payload string) string {
	inner := md5.Sum([]byte(userID + password + payload))
	outer := sha1.Sum([]byte(hex.EncodeToString(inner[:])))
	return hex.EncodeToString(outer[:])
}

// VerifyCallbackSignature checks a payment notification signature.
func VerifyCallbackSignature(userID, password, billNo, statusCode, signature string) bool {
	expected := Signature(userID, password, billNo+statusCode)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
