package webhooks

import "github.com/goliatone/go-inbox/core"

var _ core.SignatureVerifier = HMACVerifier{}
