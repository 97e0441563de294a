// Package xid generates prefixed identifiers such as
// "batch-sk2v0d8qlmn4-9f04a1c27be3". The base-36 timestamp keeps ids
// of the same prefix roughly creation-ordered.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

func New(prefix string) string {
	ts := strconv.FormatInt(time.Now().UnixNano(), 36)
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return prefix + "-" + ts
	}
	return prefix + "-" + ts + "-" + hex.EncodeToString(buf)
}
