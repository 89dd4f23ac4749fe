package utils

import (
	"crypto/rand"
	"github.com/oklog/ulid/v2"
)

// GenerateID 生成按时间有序的ULID
func GenerateID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
