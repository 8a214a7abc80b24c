// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// uploadAuthTTL is how long a signed upload authorization stays valid.
const uploadAuthTTL = 30 * time.Minute

// UploadAuthParams are the signed parameters a client presents to the media
// service for a direct upload.
type UploadAuthParams struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
}

// UploadSigner produces short-lived upload authorizations. The signature is
// an HMAC-SHA1 of token+expire keyed with the media service's private key,
// matching the service's verification scheme.
type UploadSigner struct {
	privateKey []byte
}

// NewUploadSigner creates a signer. Returns nil if no key is configured,
// which disables the upload-auth endpoint.
func NewUploadSigner(privateKey string) *UploadSigner {
	if privateKey == "" {
		return nil
	}
	return &UploadSigner{privateKey: []byte(privateKey)}
}

// Sign issues fresh upload parameters valid for uploadAuthTTL from now.
func (s *UploadSigner) Sign(now time.Time) UploadAuthParams {
	token := uuid.New().String()
	expire := now.Add(uploadAuthTTL).Unix()

	mac := hmac.New(sha1.New, s.privateKey)
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))

	return UploadAuthParams{
		Token:     token,
		Expire:    expire,
		Signature: hex.EncodeToString(mac.Sum(nil)),
	}
}
